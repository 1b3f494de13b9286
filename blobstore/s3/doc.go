// Package s3 provides a blobstore.Store backed by AWS S3, for replicating
// pack directories to object storage.
//
// Put uses the S3 transfer manager, so large array files are uploaded as
// parallel multipart requests.
package s3
