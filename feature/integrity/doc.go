// Package integrity provides health checks over the stored graph and the
// infrastructure around it.
//
// # Checks Provided
//
//   - Structure: the bucket holds the imports/ and exports/ folders.
//   - Duplicates: no external identifier is held by more than one row of an
//     entity. Rows like these are what a reentrant reconciliation leaves behind.
//   - Schema: the objects table of the database backend exposes every column
//     of its GORM model.
//
// A full run executes every check; concurrent full runs share one execution.
//
// # HTTP Endpoints
//
//   - GET /integrity : runs all checks.
//   - GET /integrity/structure : structure check (supports ?fix=true).
//   - GET /integrity/duplicates[/:entity] : duplicate scan.
//   - GET /integrity/schema : schema check.
package integrity
