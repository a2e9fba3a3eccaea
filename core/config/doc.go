// Package config loads the application configuration.
//
// Values come from environment variables, optionally seeded from a .env file,
// on top of the defaults declared in the 'default' struct tags of every
// section. Keys are nested with dots and mapped to upper-case environment
// names with underscores (store.batch_threshold -> STORE_BATCH_THRESHOLD).
//
// Sections:
//   - Server: HTTP port, API key, body limit
//   - Storage: S3/MinIO credentials and bucket
//   - Log: level and encoding
//   - Database: driver and connection details
//   - Store: backend, model file, batch threshold, queue buffer
//
//	cfg, err := config.LoadConfig(".")
package config
