// Package walker stashes a local directory tree file by file and
// reports progress as a running total in megabytes.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/progress"
)

// ErrNotDirectory is returned when the walk root is not a directory.
var ErrNotDirectory = errors.New("walk root is not a directory")

// Stasher uploads a batch of media under a logical path.
type Stasher interface {
	StashMedia(ctx context.Context, path string, items []*media.Media, containerID string) (*media.Container, error)
}

// Options select what a walk uploads and where.
type Options struct {
	// BasePath prefixes every container path. Defaults to the base
	// name of the walked directory.
	BasePath string
	// ContainerID selects the storage container; empty means the
	// repository default.
	ContainerID string
	// Recursive descends into subdirectories.
	Recursive bool
	// Exclude holds glob patterns matched against the slash-separated
	// path relative to the root and against the file's base name.
	// "dir/**" and "**/name" are supported.
	Exclude []string
}

// Result summarizes a completed walk.
type Result struct {
	RunID      string
	Files      int
	TotalBytes int64
	// Stashed holds the stored entities in completion order.
	Stashed []*media.Media
}

// File is one planned upload.
type File struct {
	// Path is the local filesystem path.
	Path string
	// Container is the logical storage path the file is stashed under.
	Container string
	Name      string
	Size      int64
}

// Walker drives a Stasher over a directory tree.
type Walker struct {
	stasher     Stasher
	logger      *slog.Logger
	concurrency int

	subMu       sync.Mutex
	subscribers []progress.Func
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// WithConcurrency uploads up to n files at once. Progress updates are
// still delivered one at a time as a monotonic running sum.
func WithConcurrency(n int) Option {
	return func(w *Walker) { w.concurrency = n }
}

// New returns a Walker that uploads through s.
func New(s Stasher, opts ...Option) *Walker {
	w := &Walker{stasher: s, concurrency: 1}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	return w
}

// Subscribe registers fn for progress updates. Subscribers are called
// synchronously, in registration order, once per stashed file.
func (w *Walker) Subscribe(fn progress.Func) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Walk stashes every file under root. The first failure aborts the
// walk; files stashed before it stay stored and the updates already
// delivered stand.
func (w *Walker) Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	runID := ksuid.New().String()
	logger := w.logger.With("run", runID, "root", root)

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	files, total, err := Plan(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "walk started", "files", len(files), "total_mb", progress.Megabytes(total))

	res := &Result{RunID: runID, Files: len(files), TotalBytes: total}
	acc := &accumulator{total: total, subscribers: w.snapshot(), result: res}

	if w.concurrency == 1 {
		for _, f := range files {
			if err := w.stashFile(ctx, f, opts.ContainerID, acc); err != nil {
				logger.ErrorContext(ctx, "walk aborted", "file", f.Path, "error", err)
				return res, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)
		for _, f := range files {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				return w.stashFile(gctx, f, opts.ContainerID, acc)
			})
		}
		if err := g.Wait(); err != nil {
			logger.ErrorContext(ctx, "walk aborted", "error", err)
			return res, err
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	logger.InfoContext(ctx, "walk finished", "files", len(res.Stashed))
	return res, nil
}

func (w *Walker) snapshot() []progress.Func {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	return append([]progress.Func(nil), w.subscribers...)
}

func (w *Walker) stashFile(ctx context.Context, f File, containerID string, acc *accumulator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read %q: %w", f.Path, err)
	}
	c, err := w.stasher.StashMedia(ctx, f.Container, []*media.Media{media.New(f.Name, data)}, containerID)
	if err != nil {
		return fmt.Errorf("stash %q: %w", f.Path, err)
	}
	acc.add(f, c.Media)
	return nil
}

// accumulator serializes progress so subscribers see a monotonic
// running sum regardless of how many uploads are in flight.
type accumulator struct {
	mu          sync.Mutex
	total       int64
	processed   int64
	subscribers []progress.Func
	result      *Result
}

func (a *accumulator) add(f File, stashed []*media.Media) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processed += f.Size
	a.result.Stashed = append(a.result.Stashed, stashed...)
	u := progress.Update{
		TotalMegabytes:     progress.Megabytes(a.total),
		ProcessedMegabytes: progress.Megabytes(a.processed),
		File:               f.Path,
	}
	for _, fn := range a.subscribers {
		fn(u)
	}
}

// BasePath returns the logical path every file of a walk of root is
// stashed under.
func BasePath(root string, opts Options) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", root, err)
	}
	return basePath(abs, opts), nil
}

func basePath(absRoot string, opts Options) string {
	base := opts.BasePath
	if base == "" {
		base = filepath.Base(absRoot)
	}
	return media.CleanPath(toSlashPath(base))
}

// Plan lists the regular files a walk of root would stash, in lexical
// order, along with their total size in bytes. Relative roots such as
// "." are resolved first so the default base path is a real directory
// name.
func Plan(ctx context.Context, root string, opts Options) ([]File, int64, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve %q: %w", root, err)
	}
	base := basePath(root, opts)

	var (
		files []File
		total int64
	)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = toSlashPath(rel)

		if d.IsDir() {
			if !opts.Recursive || shouldExclude(rel, opts.Exclude) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || shouldExclude(rel, opts.Exclude) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		dir := path.Dir(rel)
		if dir == "." {
			dir = ""
		}
		files = append(files, File{
			Path:      p,
			Container: media.CleanPath(path.Join(base, dir)),
			Name:      path.Base(rel),
			Size:      fi.Size(),
		})
		total += fi.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}
