// Package repository ties the provider pipeline to a storage backend.
//
// Stash runs the forward pipeline on every entity and uploads it under
// "{path}/{name}". Retrieve lists "{path}/", downloads each object and
// reverses the providers recorded in its metadata.
//
// Failures are not isolated per entity: the first transform or backend
// error aborts the call. With the default sequential scheduling,
// entities before the failing one are already committed to the
// backend and entities after it are never uploaded.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thebluefowl/mediastash/internal/pipeline"
	"github.com/thebluefowl/mediastash/internal/provider"
	"github.com/thebluefowl/mediastash/internal/stasherr"
	"github.com/thebluefowl/mediastash/internal/storage"
)

// Account holds service credentials. Backends that authenticate with a
// connection string ignore it.
type Account struct {
	Key    string
	Secret string
	Token  string
}

// Config is the immutable repository configuration.
type Config struct {
	// RootContainer is the default bucket or blob container.
	RootContainer string
	Account       Account
	// ConnectionString is used by backends that take one (Azure).
	ConnectionString string
	ACL              storage.ACL
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	if c.RootContainer == "" {
		return stasherr.NewConfigError("root_container", stasherr.ErrNoRootContainer)
	}
	return nil
}

// Opener constructs the backend handle for a repository.
type Opener func(ctx context.Context, cfg Config) (storage.Backend, error)

// Repository stashes and retrieves media. The backend handle is owned
// by the repository; call Close when done.
type Repository struct {
	cfg         Config
	backend     storage.Backend
	runner      *pipeline.Runner
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int
}

type options struct {
	providers   []provider.Provider
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int
}

// Option configures a Repository.
type Option func(*options)

// WithProviders sets the provider chain in forward order.
func WithProviders(providers ...provider.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, providers...) }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records traffic on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConcurrency stashes up to n entities of a container at once.
// The default of 1 keeps stashing sequential. With n > 1 a failure
// still aborts the call, but entities scheduled after the failing one
// may already have been uploaded.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// New builds a repository around an existing backend handle.
func New(cfg Config, backend storage.Backend, opts ...Option) (*Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, stasherr.NewConfigError("backend", stasherr.ErrNoBackend)
	}
	if cfg.ACL == "" {
		cfg.ACL = storage.ACLPublicRead
	}

	o := options{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	runner, err := pipeline.New(o.providers, o.logger)
	if err != nil {
		return nil, err
	}

	return &Repository{
		cfg:         cfg,
		backend:     backend,
		runner:      runner,
		logger:      o.logger,
		metrics:     o.metrics,
		concurrency: o.concurrency,
	}, nil
}

// Open constructs the backend with open and wraps it in a repository.
// The backend is closed again if the repository cannot be built.
func Open(ctx context.Context, cfg Config, open Opener, opts ...Option) (*Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := open(ctx, cfg)
	if err != nil {
		return nil, stasherr.NewConfigError("backend", err)
	}
	repo, err := New(cfg, backend, opts...)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	return repo, nil
}

// Close releases the backend handle.
func (r *Repository) Close() error {
	if err := r.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}

// Config returns the repository configuration.
func (r *Repository) Config() Config { return r.cfg }

// Providers returns the provider chain in forward order.
func (r *Repository) Providers() []provider.Provider { return r.runner.Providers() }

// ListObjects passes a listing straight through to the backend. An
// empty containerID selects the root container.
func (r *Repository) ListObjects(ctx context.Context, containerID, prefix string) ([]storage.ObjectInfo, error) {
	containerID = r.container(containerID)
	objects, err := r.backend.List(ctx, containerID, prefix)
	if err != nil {
		r.metrics.failure(stasherr.OpList)
		return nil, stasherr.NewBackendError(stasherr.OpList, containerID, prefix, err)
	}
	return objects, nil
}

func (r *Repository) container(id string) string {
	if id == "" {
		return r.cfg.RootContainer
	}
	return id
}
