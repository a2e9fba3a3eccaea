// Package importer loads external records into the context stack.
//
// An import decodes a JSON array of flat records of one entity, reconciles it
// into a fresh background context (insert or update by unique identifier) and
// saves that context through the main and root contexts down to the backend.
// The reconciliation path is chosen per call: simple, batch, or auto, which
// switches to batch once the record count reaches the configured threshold.
//
// # HTTP Endpoints
//
//   - POST /import/:entity : imports the request body (?mode=auto|simple|batch).
//   - POST /import/:entity?object=name : imports a file from the bucket's imports/ folder.
//   - GET /objects/:entity/:uid : returns one object as the main context sees it.
package importer
