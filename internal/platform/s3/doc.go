// Package s3 uploads run reports to S3-compatible object storage.
//
// It wraps the AWS SDK v2 client with the few calls fanout needs: make sure
// the report bucket exists, put a report object, and read it back. Error
// classification falls back to smithy API error codes so that non-AWS
// providers are handled too.
package s3
