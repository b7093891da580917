// Package storage defines the object store contract shared by the filesystem
// and SQLite backends.
//
// Recordings are listed from a source prefix; documents, the ledger and the
// vocabulary are written back under their configured paths. Get reports a
// missing object with ErrNotFound so callers can distinguish "create" from a
// transport failure.
package storage
