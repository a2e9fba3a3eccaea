// Package export writes snapshots of stored entities to object storage.
//
// Each entity is read through its own background context and encoded as a
// JSON array of flat records, the same shape the importer accepts, then
// uploaded to exports/<entity>.json. Several entities are exported
// concurrently.
//
// # HTTP Endpoints
//
//   - POST /export : exports every entity of the model.
//   - POST /export/:entity : exports one entity.
//   - GET /export/:entity : returns the snapshot without uploading it.
package export
