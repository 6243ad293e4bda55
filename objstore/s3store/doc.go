// Package s3store provides an objstore.ObjectStore backed by Amazon S3
// through the AWS SDK for Go v2.
//
// The store works against AWS itself or any S3-compatible endpoint when
// Options.Endpoint and path-style addressing are set.
package s3store
