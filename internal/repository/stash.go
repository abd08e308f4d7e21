package repository

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/thebluefowl/mediastash/internal/compress"
	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/stasherr"
)

// StashContainer forward-transforms and uploads every entity in c.
// Entities are mutated in place: Data and Name reflect the stored
// object, Metadata holds the applied provider identifiers and URI is
// set once the upload succeeds. An empty containerID selects the root
// container.
func (r *Repository) StashContainer(ctx context.Context, c *media.Container, containerID string) error {
	containerID = r.container(containerID)
	path := media.CleanPath(c.Path)

	if r.concurrency <= 1 || len(c.Media) < 2 {
		for _, m := range c.Media {
			if err := r.stashOne(ctx, containerID, path, m); err != nil {
				return fmt.Errorf("stash container %q: %w", path, err)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, m := range c.Media {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.stashOne(gctx, containerID, path, m)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stash container %q: %w", path, err)
	}
	return ctx.Err()
}

// StashMedia wraps copies of items in a fresh container at path and
// stashes it. The caller's entities are left untouched; the returned
// container carries the stored names, metadata and URIs.
func (r *Repository) StashMedia(ctx context.Context, path string, items []*media.Media, containerID string) (*media.Container, error) {
	c := media.NewContainer(path)
	c.Media = make([]*media.Media, 0, len(items))
	for _, m := range items {
		c.Media = append(c.Media, media.New(m.Name, m.Data))
	}
	if err := r.StashContainer(ctx, c, containerID); err != nil {
		return c, err
	}
	return c, nil
}

func (r *Repository) stashOne(ctx context.Context, containerID, path string, m *media.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	originalSize := len(m.Data)
	if err := r.runner.Forward(m); err != nil {
		r.metrics.failure(stasherr.OpForward)
		return err
	}

	key := media.JoinKey(path, m.Name)
	if err := r.backend.Put(ctx, containerID, key, m.Data, m.Metadata, r.cfg.ACL); err != nil {
		r.metrics.failure(stasherr.OpPut)
		return stasherr.NewBackendError(stasherr.OpPut, containerID, key, err)
	}
	m.URI = r.backend.URL(containerID, key)

	r.metrics.stashed(originalSize, len(m.Data))
	r.logger.DebugContext(ctx, "stashed media",
		"container", containerID,
		"key", key,
		"bytes", len(m.Data),
		"original_bytes", originalSize,
		"savings", compress.Savings(originalSize, len(m.Data)),
	)
	return nil
}
