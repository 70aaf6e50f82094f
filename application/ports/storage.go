// Package ports declares the interfaces the application layer depends on.
// Infrastructure packages provide the implementations.
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned by lease acquisition when another writer holds the
// builder lease for the index. Contention is retryable, not fatal.
var ErrLockHeld = errors.New("builder lease already held")

// ObjectStore is the uniform interface to an S3-compatible store. Bucket
// arguments are user-visible vector-bucket names; the implementation alone
// knows the physical bucket-name prefix.
//
// Missing objects surface as NotFound AppErrors so callers can treat them as
// absence; network and 5xx failures surface as Dependency errors. No retry
// policy is baked in at this layer.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	ListBuckets(ctx context.Context) ([]string, error)

	// PutBytes writes an object and returns its etag. The put is the
	// commit point: there is no rename on an object store.
	PutBytes(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error)
	// GetBytes reads an object and returns its body and etag.
	GetBytes(ctx context.Context, bucket, key string) ([]byte, string, error)

	PutJSON(ctx context.Context, bucket, key string, v interface{}) (string, error)
	GetJSON(ctx context.Context, bucket, key string, v interface{}) (string, error)

	// ListPrefix returns all keys under the prefix in lexicographic
	// order, with pagination hidden.
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	// DeletePrefix removes every object under the prefix, batching up to
	// 1000 keys per call.
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	DeleteObject(ctx context.Context, bucket, key string) error

	// PutIfAbsent writes an object only when the key does not exist yet,
	// returning ErrLockHeld on a losing race. Used for the builder lease.
	PutIfAbsent(ctx context.Context, bucket, key string, body []byte) error
}

// Lease is an acquired advisory builder lease
type Lease interface {
	Release(ctx context.Context) error
}

// LeaseManager grants the single-writer builder lease for an index
type LeaseManager interface {
	// Acquire takes the lease or fails with ErrLockHeld after bounded
	// retries when another writer is active.
	Acquire(ctx context.Context, bucket, index string, ttl time.Duration) (Lease, error)
}
