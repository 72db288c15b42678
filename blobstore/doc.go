// Package blobstore provides storage abstraction for external objects.
//
// Datasets keep media payloads inline in the store file's blob section; this
// package covers everything outside that file: ingesting payloads from local
// directories or buckets into reference columns, and archiving store files to
// remote storage. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads
//   - MemoryStore: In-memory store for testing
//   - minio.Store: MinIO and S3-compatible storage
//   - s3.Store: Amazon S3 with range reads and parallel uploads
package blobstore
