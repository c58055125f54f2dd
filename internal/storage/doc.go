// Package storage provides the key-value backends that hold history and
// preferences.
//
// Three implementations satisfy [Backend]: [Memory] for tests and ephemeral
// use, [Dir] with one JSON file per key, and [SQLite] with a single kv table
// managed by embedded migrations. Each can enforce a total byte quota; a write
// that would exceed it fails with [ErrQuotaExceeded] and leaves the old value
// in place.
//
// The default location is $XDG_DATA_HOME/codelens (or the OS-appropriate
// equivalent).
package storage
