// Package media holds the data model shared by the pipeline, the
// repository and the walker: named byte payloads and the containers
// that group them under a logical storage path.
package media

import (
	"path"
	"strings"
)

// Media is a named byte payload. Data is replaced in place as pipeline
// stages run, and Name may be rewritten by a provider (the encryption
// suffix, for example).
//
// Metadata records which providers applied their forward transform to
// this entity, keyed by provider identifier. Reversal is driven by it.
type Media struct {
	Name     string
	Data     []byte
	Metadata map[string]string
	// URI is the resolved public address, set after stash or retrieve.
	URI string
}

// New returns a Media with an empty metadata map.
func New(name string, data []byte) *Media {
	return &Media{
		Name:     name,
		Data:     data,
		Metadata: make(map[string]string),
	}
}

// Ext returns the lower-cased extension of the media name, including
// the leading dot.
func (m *Media) Ext() string {
	return strings.ToLower(path.Ext(m.Name))
}

// Tagged reports whether the provider with the given identifier was
// applied to this entity.
func (m *Media) Tagged(id string) bool {
	if m.Metadata == nil {
		return false
	}
	_, ok := m.Metadata[id]
	return ok
}

// Tag records that the provider with the given identifier was applied.
func (m *Media) Tag(id string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[id] = id
}

// Size returns the payload length in bytes.
func (m *Media) Size() int {
	return len(m.Data)
}

// Container is an ordered group of media under one logical path.
// Order is upload order; a retrieved container follows listing order.
type Container struct {
	Path  string
	Media []*Media
}

// NewContainer builds a container rooted at p.
func NewContainer(p string, items ...*Media) *Container {
	return &Container{Path: CleanPath(p), Media: items}
}

// Key returns the object key of m inside the container.
func (c *Container) Key(m *Media) string {
	return JoinKey(c.Path, m.Name)
}

// CleanPath normalizes a logical path: backslashes become forward
// slashes, "." and ".." segments are resolved without climbing above
// the root, and surrounding separators are trimmed.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.Trim(path.Clean("/"+p), "/")
}

// JoinKey builds "{path}/{name}". An empty path yields just the name.
func JoinKey(p, name string) string {
	p = CleanPath(p)
	if p == "" {
		return name
	}
	return p + "/" + name
}

// Prefix returns the listing prefix for a logical path. The trailing
// separator keeps sibling paths such as "a" and "ab" apart.
func Prefix(p string) string {
	p = CleanPath(p)
	if p == "" {
		return ""
	}
	return p + "/"
}
