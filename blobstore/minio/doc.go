// Package minio provides a blobstore.Store backed by MinIO or any
// S3-compatible object storage, for replicating pack directories off-box.
package minio
