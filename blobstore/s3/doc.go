// Package s3 implements blobstore.BlobStore for Amazon S3.
//
// Reads use ranged GETs so large archived store files can be inspected
// without downloading them whole; writes go through the SDK's managed
// multipart uploader.
//
// Usage:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := s3store.NewStore(s3.NewFromConfig(cfg), "my-bucket", "datasets/")
package s3
