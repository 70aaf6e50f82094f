// Package memory provides an in-memory ObjectStore used by tests and local
// development. It mirrors the semantics of the S3 adapter: NotFound for
// missing objects, lexicographic prefix listing, conditional puts.
package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"s3vectors/application/ports"
	apperrors "s3vectors/pkg/errors"
)

type object struct {
	body        []byte
	contentType string
	etag        string
}

// Store is a thread-safe in-memory object store
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{buckets: make(map[string]map[string]object)}
}

var _ ports.ObjectStore = (*Store)(nil)

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]object)
	}
	return nil
}

func (s *Store) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket]
	return ok, nil
}

func (s *Store) ListBuckets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) PutBytes(_ context.Context, bucket, key string, body []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return "", apperrors.NewNotFoundError("bucket", bucket)
	}
	obj := object{body: append([]byte(nil), body...), contentType: contentType, etag: etagOf(body)}
	objects[key] = obj
	return obj.etag, nil
}

func (s *Store) GetBytes(_ context.Context, bucket, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, "", apperrors.NewNotFoundError("bucket", bucket)
	}
	obj, ok := objects[key]
	if !ok {
		return nil, "", apperrors.NewNotFoundError("object", key)
	}
	return append([]byte(nil), obj.body...), obj.etag, nil
}

func (s *Store) PutJSON(ctx context.Context, bucket, key string, v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", apperrors.NewInternalError("marshal JSON object").WithCause(err)
	}
	return s.PutBytes(ctx, bucket, key, body, "application/json")
}

func (s *Store) GetJSON(ctx context.Context, bucket, key string, v interface{}) (string, error) {
	body, etag, err := s.GetBytes(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return "", apperrors.NewDependencyError("decode JSON object", err)
	}
	return etag, nil
}

func (s *Store) ListPrefix(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, apperrors.NewNotFoundError("bucket", bucket)
	}
	var keys []string
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) DeletePrefix(_ context.Context, bucket, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return apperrors.NewNotFoundError("bucket", bucket)
	}
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			delete(objects, key)
		}
	}
	return nil
}

func (s *Store) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if objects, ok := s.buckets[bucket]; ok {
		delete(objects, key)
	}
	return nil
}

func (s *Store) PutIfAbsent(_ context.Context, bucket, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return apperrors.NewNotFoundError("bucket", bucket)
	}
	if _, exists := objects[key]; exists {
		return ports.ErrLockHeld
	}
	objects[key] = object{body: append([]byte(nil), body...), contentType: "application/json", etag: etagOf(body)}
	return nil
}

func etagOf(body []byte) string {
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}
