// Package sqlite provides the SQLite-backed implementation of the storage
// backend contract. Workspace streams live in a single-file database with
// WAL mode inside a per-identity working folder, with embedded migrations
// and a format-version marker that turns incompatible on-disk state into a
// corruption-classified open failure.
package sqlite
