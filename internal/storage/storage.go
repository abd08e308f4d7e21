package storage

import (
	"context"
	"strings"
	"time"
)

// Backend is the object-storage capability the repository stashes to.
// It abstracts storage operations to support multiple providers (S3,
// MinIO, Azure Blob, in-memory).
//
// A Backend wraps one client handle. Adapters are used sequentially by
// a repository unless they document otherwise; Close releases the
// handle.
type Backend interface {
	// List returns every object in container whose key starts with
	// prefix, following pagination. An empty result is not an error.
	List(ctx context.Context, container, prefix string) ([]ObjectInfo, error)

	// Put uploads data to key, overwriting any existing object.
	// metadata keys are provider identifiers.
	Put(ctx context.Context, container, key string, data []byte, metadata map[string]string, acl ACL) error

	// Get downloads key and returns its bytes and metadata. Metadata
	// keys are lower-cased regardless of how the service returns them.
	Get(ctx context.Context, container, key string) ([]byte, map[string]string, error)

	// URL returns the canonical public address of key.
	URL(container, key string) string

	Close() error
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ACL is the access policy applied on upload.
type ACL string

const (
	ACLPrivate    ACL = "private"
	ACLPublicRead ACL = "public-read"
)

// ParseACL maps a config value to an ACL; empty means public-read.
func ParseACL(s string) ACL {
	if ACL(strings.ToLower(s)) == ACLPrivate {
		return ACLPrivate
	}
	return ACLPublicRead
}

// NormalizeMetadata lower-cases metadata keys. S3 and MinIO return
// canonicalized header names, so adapters pass their results through
// this before handing them to the pipeline.
func NormalizeMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
