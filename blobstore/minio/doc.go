// Package minio implements blobstore.BlobStore for MinIO and any
// S3-compatible object storage.
//
// Usage:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := miniostore.NewStore(client, "my-bucket", "datasets/")
package minio
