// Package memstore is an in-process storage.Backend. It backs the tests
// and the CLI's "memory" backend for dry runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thebluefowl/mediastash/internal/storage"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = fmt.Errorf("memstore: no such key")

type object struct {
	data     []byte
	metadata map[string]string
	acl      storage.ACL
	modified time.Time
}

// Store keeps objects per container in memory. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]map[string]object
	closed  bool

	// PutHook, when set, runs before every Put and can fail it.
	PutHook func(container, key string) error
}

var _ storage.Backend = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string]map[string]object)}
}

// List returns the objects in container whose keys start with prefix,
// sorted by key.
func (s *Store) List(ctx context.Context, container, prefix string) ([]storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("memstore: closed")
	}

	var out []storage.ObjectInfo
	for key, obj := range s.objects[container] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, storage.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Put stores a copy of data and metadata under key.
func (s *Store) Put(ctx context.Context, container, key string, data []byte, metadata map[string]string, acl storage.ACL) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.PutHook != nil {
		if err := s.PutHook(container, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memstore: closed")
	}

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	if s.objects[container] == nil {
		s.objects[container] = make(map[string]object)
	}
	s.objects[container][key] = object{
		data:     append([]byte(nil), data...),
		metadata: meta,
		acl:      acl,
		modified: time.Now(),
	}
	return nil
}

// Get returns copies of the object's data and metadata.
func (s *Store) Get(ctx context.Context, container, key string) ([]byte, map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, fmt.Errorf("memstore: closed")
	}

	obj, ok := s.objects[container][key]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, key)
	}
	return append([]byte(nil), obj.data...), storage.NormalizeMetadata(obj.metadata), nil
}

// URL returns a mem:// address for key.
func (s *Store) URL(container, key string) string {
	return "mem://" + container + "/" + key
}

// ACL reports the access policy an object was stored with.
func (s *Store) ACL(container, key string) (storage.ACL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[container][key]
	return obj.acl, ok
}

// Keys returns the sorted keys stored in container.
func (s *Store) Keys(container string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects[container]))
	for k := range s.objects[container] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close marks the store closed. Later reads and writes fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
