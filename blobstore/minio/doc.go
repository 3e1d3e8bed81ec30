// Package minio provides a blobstore.Store implementation using the MinIO
// client.
//
// MinIO is an S3-compatible object store. This package uses the official
// MinIO Go client, which also works against Ceph, SeaweedFS and Garage.
//
// # Basic Usage
//
//	store, err := minio.New("localhost:9000", "minioadmin", "minioadmin", false, "models", "ensembles/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = persistence.Save(ctx, store, "credit-model", ensemble)
//
// For custom transports or regions build the client yourself and call
// NewStore.
package minio
