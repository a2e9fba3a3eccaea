// Package middleware groups the HTTP middleware of the Fiber application.
//
//   - auth: API key validation (X-API-Key or Bearer token).
//   - rayid: a unique request ID (ray ID) stored in the fiber locals and
//     echoed in the X-Ray-ID response header, picked up by logger.WithRayID.
//
// Register rayid first so every later log line carries the ray ID.
package middleware
