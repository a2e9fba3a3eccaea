// Package store defines the backing store that sits below the root
// persistence context, together with its implementations.
//
// A Backend persists flat Records. Each Record carries two identities:
//   - ID: the internal, storage-assigned identity (a UUID), unique per row.
//   - UID: the external unique identifier supplied by imported records.
//
// The backend enforces uniqueness of ID only. UID uniqueness is a property the
// reconciler maintains; DuplicateFinder implementations report violations.
//
// # Implementations
//
//   - Memory: a mutex-guarded map, used by tests and the "memory" backend setting.
//   - Gorm: a single "objects" table managed through GORM (MySQL, PostgreSQL, SQLite).
//
// # Commit
//
// Commit applies a ChangeSet atomically. Updates use optimistic versioning:
// the Version carried by an update must match the stored row, otherwise the
// whole commit fails with ErrConflict.
package store
