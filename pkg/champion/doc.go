/*
Package champion implements a character-level Markov chain used to learn
nicknames for a single champion and to generate new ones.

A Champion owns a transition table mapping every character to the characters
that followed it in the training data, together with how many times each
transition was seen. Every training nickname is implicitly terminated by the
Terminator rune, so the table also records which characters end a nickname.

A Champion is not safe for concurrent use. Callers that share one between
goroutines must serialize access themselves; see the registry package.
*/
package champion
