// Package history keeps a bounded, most-recent-first list of past analyses.
//
// The list lives as a single JSON array under [Key] in a storage backend and
// never holds more than [MaxEntries] entries. Read failures degrade to an
// empty history; write failures are logged and returned.
package history
