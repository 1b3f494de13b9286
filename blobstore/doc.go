// Package blobstore abstracts the destinations a saved pack directory can
// be copied to.
//
// A Store is a flat namespace of immutable blobs. The local implementation
// serves reads through memory mapping; Memory backs tests; the minio and s3
// subpackages target S3-compatible object storage for off-box replication.
package blobstore
