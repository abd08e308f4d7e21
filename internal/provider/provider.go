// Package provider defines the reversible byte transforms applied to
// media before upload and after download.
//
// A Provider carries a stable identifier. When its forward transform
// runs, the pipeline records the identifier in the entity's metadata;
// on retrieval only tagged providers are reversed. Identifiers end up
// as object metadata keys, so they are restricted to lower-case
// letters, digits and hyphens.
package provider

import (
	"fmt"
	"regexp"

	"github.com/thebluefowl/mediastash/internal/media"
)

// Provider is a reversible transform. Reverse(Forward(x)) must equal x
// for every input the provider accepts.
type Provider interface {
	ID() string
	Forward(data []byte) ([]byte, error)
	Reverse(data []byte) ([]byte, error)
}

// Gate is implemented by providers that only apply to some media.
// Providers without a Gate apply to everything.
type Gate interface {
	Applies(m *media.Media) bool
}

// Renamer is implemented by providers that rewrite the entity name on
// the way out and restore it on the way back.
type Renamer interface {
	ForwardName(name string) string
	ReverseName(name string) (string, error)
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateID checks that id can be used as an object metadata key on
// every supported backend.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("provider identifier %q must match %s", id, idPattern)
	}
	return nil
}

// Descriptor builds a Provider from plain functions.
type Descriptor struct {
	Name      string
	ForwardFn func([]byte) ([]byte, error)
	ReverseFn func([]byte) ([]byte, error)
	// Predicate is optional; nil accepts everything.
	Predicate func(*media.Media) bool
}

var (
	_ Provider = (*Descriptor)(nil)
	_ Gate     = (*Descriptor)(nil)
)

// ID returns Name.
func (d *Descriptor) ID() string { return d.Name }

// Forward runs ForwardFn, or passes data through when it is nil.
func (d *Descriptor) Forward(data []byte) ([]byte, error) {
	if d.ForwardFn == nil {
		return data, nil
	}
	return d.ForwardFn(data)
}

// Reverse runs ReverseFn, or passes data through when it is nil.
func (d *Descriptor) Reverse(data []byte) ([]byte, error) {
	if d.ReverseFn == nil {
		return data, nil
	}
	return d.ReverseFn(data)
}

// Applies reports whether Predicate accepts m.
func (d *Descriptor) Applies(m *media.Media) bool {
	if d.Predicate == nil {
		return true
	}
	return d.Predicate(m)
}
