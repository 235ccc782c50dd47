// Package sqlite provides a SQLite-backed secret store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Secrets are kept in a single table keyed by the storage
// key from domain.KeyFor.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.git-credential-broker/secrets.db
// with 0600 permissions.
//
// # Thread Safety
//
// All operations are safe for concurrent use, including from several git
// processes, through SQLite's WAL mode and busy timeout.
package sqlite
