package multichecksum

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SequentialWalker digests a tree depth-first on the calling goroutine.
type SequentialWalker struct {
	opts Options
}

// NewSequentialWalker validates opts and returns a sequential walker.
func NewSequentialWalker(opts Options) (*SequentialWalker, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &SequentialWalker{opts: opts}, nil
}

// traversal is the state shared by every level of one sequential walk.
type traversal struct {
	visited  map[string]struct{}
	records  []FileRecord
	warnings []Warning
	stats    Stats
	logger   *zap.Logger
}

// Walk digests every regular file under root. Files in a directory are
// indexed only after all of its subdirectories have been drained, so the
// deepest files receive the lowest indices.
func (w *SequentialWalker) Walk(ctx context.Context, root string) (*RunReport, error) {
	if err := validateRoot(w.opts.Fs, root); err != nil {
		return nil, err
	}

	logger := runLogger(w.opts.Logger, root, ModeSequential)
	logger.Debug("starting walk", zap.Int("concurrency", w.opts.Concurrency))

	clean := filepath.Clean(root)
	t := &traversal{
		visited: map[string]struct{}{resolveDir(w.opts.Lister, clean): {}},
		logger:  logger,
	}

	start := time.Now()
	stop := startProgress(w.opts.Progress, &t.stats, start)
	next, err := w.visit(ctx, t, clean, 1)
	stop()
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	logger.Info("walk finished",
		zap.Int("files", next-1),
		zap.Int("warnings", len(t.warnings)),
		zap.Duration("elapsed", elapsed),
	)
	return newReport(root, elapsed, w.opts.Concurrency, t.records, t.warnings), nil
}

// visit drains dir and returns the next free index. A panic while draining
// dir is handled as a listing failure of dir; files already recorded keep
// their indices.
func (w *SequentialWalker) visit(ctx context.Context, t *traversal, dir string, index int) (next int, err error) {
	next = index
	defer func() {
		if p := recover(); p != nil {
			err = w.skip(t, dir, panicError(p))
		}
	}()

	if err := ctx.Err(); err != nil {
		return next, err
	}

	entries, err := w.opts.Lister.List(dir)
	if err != nil {
		return next, w.skip(t, dir, err)
	}
	atomic.AddInt64(&t.stats.DirsListed, 1)

	if w.opts.SortEntries {
		sortEntries(entries)
	}
	dirs, files := splitEntries(entries)
	t.logger.Debug("expanding directory",
		zap.String("path", dir),
		zap.Int("dirs", len(dirs)),
		zap.Int("files", len(files)),
	)

	for _, name := range dirs {
		sub := filepath.Join(dir, name)
		key := resolveDir(w.opts.Lister, sub)
		if _, seen := t.visited[key]; seen {
			t.logger.Debug("skipping visited directory", zap.String("path", sub), zap.String("target", key))
			continue
		}
		t.visited[key] = struct{}{}
		if next, err = w.visit(ctx, t, sub, next); err != nil {
			return next, err
		}
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return next, err
		}
		path := filepath.Join(dir, name)
		sum, warn := digestFile(w.opts.Digester, &t.stats, t.logger, path)
		if warn != nil {
			t.warnings = append(t.warnings, *warn)
		}
		t.records = append(t.records, FileRecord{Path: path, Index: next, Checksum: sum})
		next++
	}
	return next, nil
}

// skip records dir as unreadable. It returns a non-nil error only when the
// run must abort.
func (w *SequentialWalker) skip(t *traversal, dir string, err error) error {
	warn, abort := listingFailed(w.opts.ErrorHandling, &t.stats, t.logger, dir, err)
	if abort != nil {
		return abort
	}
	t.warnings = append(t.warnings, *warn)
	return nil
}
