// Package pipeline runs an ordered provider chain over media.
//
// Forward applies providers front to back and tags each entity with
// the identifiers that actually ran. Reverse walks the chain back to
// front and only undoes tagged providers, so a container can mix
// entities that skipped a stage with entities that did not.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/provider"
	"github.com/thebluefowl/mediastash/internal/stasherr"
)

// Runner holds an immutable provider chain. It is safe for concurrent
// use as long as the providers are.
type Runner struct {
	providers []provider.Provider
	logger    *slog.Logger
}

// New validates the chain: identifiers must be well formed and unique.
func New(providers []provider.Provider, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	seen := make(map[string]struct{}, len(providers))
	chain := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		id := p.ID()
		if err := provider.ValidateID(id); err != nil {
			return nil, stasherr.NewConfigError("providers", err)
		}
		if _, dup := seen[id]; dup {
			return nil, stasherr.NewConfigError("providers", fmt.Errorf("%w: %q", stasherr.ErrDuplicateProvider, id))
		}
		seen[id] = struct{}{}
		chain = append(chain, p)
	}
	return &Runner{providers: chain, logger: logger}, nil
}

// Providers returns a copy of the chain in forward order.
func (r *Runner) Providers() []provider.Provider {
	return append([]provider.Provider(nil), r.providers...)
}

// Forward runs every applicable provider on m in chain order. The first
// failure aborts; m keeps whatever stages completed before it.
func (r *Runner) Forward(m *media.Media) error {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	for _, p := range r.providers {
		if g, ok := p.(provider.Gate); ok && !g.Applies(m) {
			r.logger.Debug("provider skipped", "provider", p.ID(), "media", m.Name)
			continue
		}
		out, err := p.Forward(m.Data)
		if err != nil {
			return stasherr.NewTransformError(p.ID(), m.Name, stasherr.OpForward, err)
		}
		m.Data = out
		if rn, ok := p.(provider.Renamer); ok {
			m.Name = rn.ForwardName(m.Name)
		}
		m.Tag(p.ID())
	}
	return nil
}

// Reverse undoes tagged providers on m in reverse chain order. Tags for
// providers that are not in the chain are left alone.
func (r *Runner) Reverse(m *media.Media) error {
	for i := len(r.providers) - 1; i >= 0; i-- {
		p := r.providers[i]
		if !m.Tagged(p.ID()) {
			continue
		}
		if rn, ok := p.(provider.Renamer); ok {
			name, err := rn.ReverseName(m.Name)
			if err != nil {
				return stasherr.NewTransformError(p.ID(), m.Name, stasherr.OpReverse, err)
			}
			m.Name = name
		}
		out, err := p.Reverse(m.Data)
		if err != nil {
			return stasherr.NewTransformError(p.ID(), m.Name, stasherr.OpReverse, err)
		}
		m.Data = out
	}
	return nil
}
