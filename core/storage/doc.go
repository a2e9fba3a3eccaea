// Package storage wraps the MinIO Go client for the object storage side of
// the service: record files are read from imports/ and entity snapshots are
// written to exports/. It works against AWS S3 and self-hosted MinIO.
//
// The Client interface makes storage interactions mockable (see
// core/storage/mocks). ReadObject, WriteObject and EnsureBucket are thin
// helpers over it.
//
//	client, err := storage.NewClient(cfg.Storage)
//	data, err := storage.ReadObject(ctx, client, cfg.Storage.Bucket, "imports/person.json")
package storage
