// Package miniostore provides an objstore.ObjectStore backed by MinIO or any
// S3-compatible endpoint via the minio-go client.
//
// Missing keys map to objstore.ErrNotFound; deletes of absent keys succeed,
// matching the contract the cache engine relies on.
package miniostore
