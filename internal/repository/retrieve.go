package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/stasherr"
	"github.com/thebluefowl/mediastash/internal/storage"
)

type retrieveOptions struct {
	resolveOnly bool
}

// RetrieveOption tunes a retrieval.
type RetrieveOption func(*retrieveOptions)

// ResolveOnly lists the objects and returns entities carrying only the
// stored name and URI, without downloading or reversing anything.
func ResolveOnly() RetrieveOption {
	return func(o *retrieveOptions) { o.resolveOnly = true }
}

// RetrieveContainer downloads every object under "{path}/" and reverses
// the providers recorded in each object's metadata. Objects that are
// empty after reversal are treated as directory markers and dropped.
// Entity names are the object keys relative to path. An empty listing
// yields an empty container.
func (r *Repository) RetrieveContainer(ctx context.Context, path, containerID string, opts ...RetrieveOption) (*media.Container, error) {
	var o retrieveOptions
	for _, opt := range opts {
		opt(&o)
	}

	containerID = r.container(containerID)
	path = media.CleanPath(path)
	prefix := media.Prefix(path)

	objects, err := r.ListObjects(ctx, containerID, prefix)
	if err != nil {
		return nil, fmt.Errorf("retrieve container %q: %w", path, err)
	}

	result := media.NewContainer(path)
	result.Media = make([]*media.Media, 0, len(objects))
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}

		if o.resolveOnly {
			if obj.Size == 0 {
				continue
			}
			result.Media = append(result.Media, &media.Media{
				Name:     name,
				Metadata: map[string]string{},
				URI:      r.backend.URL(containerID, obj.Key),
			})
			continue
		}

		m, err := r.retrieveOne(ctx, containerID, obj, name)
		if err != nil {
			return nil, fmt.Errorf("retrieve container %q: %w", path, err)
		}
		if len(m.Data) == 0 {
			continue
		}
		result.Media = append(result.Media, m)
	}
	return result, nil
}

// RetrieveMedia is RetrieveContainer returning only the media list.
func (r *Repository) RetrieveMedia(ctx context.Context, path, containerID string, opts ...RetrieveOption) ([]*media.Media, error) {
	c, err := r.RetrieveContainer(ctx, path, containerID, opts...)
	if err != nil {
		return nil, err
	}
	return c.Media, nil
}

func (r *Repository) retrieveOne(ctx context.Context, containerID string, obj storage.ObjectInfo, name string) (*media.Media, error) {
	data, metadata, err := r.backend.Get(ctx, containerID, obj.Key)
	if err != nil {
		r.metrics.failure(stasherr.OpGet)
		return nil, stasherr.NewBackendError(stasherr.OpGet, containerID, obj.Key, err)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	m := &media.Media{
		Name:     name,
		Data:     data,
		Metadata: metadata,
		URI:      r.backend.URL(containerID, obj.Key),
	}
	if err := r.runner.Reverse(m); err != nil {
		r.metrics.failure(stasherr.OpReverse)
		return nil, err
	}

	r.metrics.retrieved(len(data), len(m.Data))
	r.logger.DebugContext(ctx, "retrieved media",
		"container", containerID,
		"key", obj.Key,
		"bytes", len(data),
		"restored_bytes", len(m.Data),
	)
	return m, nil
}
