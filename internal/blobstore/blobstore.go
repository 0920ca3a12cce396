// Package blobstore abstracts the object store holding source and
// quarantined images.
package blobstore

import (
	"context"
	"errors"
	"sync"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo carries object metadata returned alongside its bytes.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// Store reads and writes whole objects. Both operations are synchronous and
// honor the passed context.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}

// Get returns a copy of the stored object's bytes and metadata.
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, ObjectInfo{ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

// Put stores a copy of data under bucket/key.
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[memoryKey(bucket, key)] = memoryObject{data: stored, contentType: contentType}
	return nil
}
