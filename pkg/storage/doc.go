/*
Package storage persists champion snapshots keyed by champion id.

A Database wraps one Backend (SQLite, Badger, Redis or in-memory) and
converts between stored snapshot bytes and champion.Champion values. Load
never fails: a missing or unreadable snapshot yields a fresh champion.
Callers about to write back should use Fetch instead, so that a backend
error is not mistaken for an empty champion and overwritten.
*/
package storage
