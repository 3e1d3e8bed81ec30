// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "ensembles/")
//	err = persistence.Save(ctx, store, "credit-model", ensemble)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large array payloads
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
