/*
Package collector runs the external data-collection process and decodes
what it prints.

The process writes a single JSON envelope to stdout:

	{"status": 0, "content_type": "nicknames", "cooldown": 60,
	 "content": {"14": ["foo", "bar"], "81": ["hello"]}}

A non-zero status carries an error message as content. The envelope is
decoded into a typed Response up front so callers never inspect loosely
typed values.
*/
package collector
