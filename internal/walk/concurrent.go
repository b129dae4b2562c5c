package multichecksum

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ConcurrentWalker expands subdirectories on a bounded pool of goroutines.
type ConcurrentWalker struct {
	opts Options
}

// NewConcurrentWalker validates opts and returns a concurrent walker whose
// admission limit is opts.Concurrency.
func NewConcurrentWalker(opts Options) (*ConcurrentWalker, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &ConcurrentWalker{opts: opts}, nil
}

// concurrentRun holds everything shared by the units of one concurrent walk.
type concurrentRun struct {
	opts   Options
	pool   *ants.Pool
	logger *zap.Logger
	stats  Stats
	abort  context.CancelCauseFunc

	counter atomic.Int64
	visited sync.Map

	mu       sync.Mutex
	records  []FileRecord
	warnings []Warning
}

// Walk digests every regular file under root. At most opts.Concurrency
// expansion units run at once. A unit that cannot be admitted is expanded
// inline by its parent, so deep trees never wait on a slot their own
// ancestors hold.
func (w *ConcurrentWalker) Walk(ctx context.Context, root string) (*RunReport, error) {
	if err := validateRoot(w.opts.Fs, root); err != nil {
		return nil, err
	}

	logger := runLogger(w.opts.Logger, root, ModeConcurrent)
	logger.Debug("starting walk",
		zap.Int("concurrency", w.opts.Concurrency),
		zap.Bool("overlap_siblings", w.opts.OverlapSiblings),
	)

	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	// Units recover their own panics; anything reaching the pool handler
	// escaped that and the run cannot vouch for its coverage.
	pool, err := ants.NewPool(w.opts.Concurrency,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error("expansion unit panicked", zap.Any("panic", p))
			abort(panicError(p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("multichecksum: create pool: %w", err)
	}
	defer pool.Release()

	run := &concurrentRun{
		opts:   w.opts,
		pool:   pool,
		logger: logger,
		abort:  abort,
	}

	start := time.Now()
	stop := startProgress(w.opts.Progress, &run.stats, start)

	done := make(chan struct{})
	go func() {
		defer close(done)
		clean := filepath.Clean(root)
		run.visited.Store(resolveDir(w.opts.Lister, clean), struct{}{})
		run.expand(runCtx, clean)
	}()
	<-done

	stop()
	if err := context.Cause(runCtx); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	run.mu.Lock()
	records, warnings := run.records, run.warnings
	run.mu.Unlock()

	logger.Info("walk finished",
		zap.Int("files", len(records)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("elapsed", elapsed),
	)
	return newReport(root, elapsed, w.opts.Concurrency, records, warnings), nil
}

// expand drains dir: subdirectories first, then the directory's own files.
// A panic while draining dir is handled as a listing failure of dir.
func (r *concurrentRun) expand(ctx context.Context, dir string) {
	var wg sync.WaitGroup
	defer func() {
		if p := recover(); p != nil {
			wg.Wait()
			r.skip(dir, panicError(p))
		}
	}()

	if ctx.Err() != nil {
		return
	}

	entries, err := r.opts.Lister.List(dir)
	if err != nil {
		r.skip(dir, err)
		return
	}
	atomic.AddInt64(&r.stats.DirsListed, 1)

	if r.opts.SortEntries {
		sortEntries(entries)
	}
	dirs, files := splitEntries(entries)

	for _, name := range dirs {
		if ctx.Err() != nil {
			break
		}
		sub := filepath.Join(dir, name)
		key := resolveDir(r.opts.Lister, sub)
		if _, seen := r.visited.LoadOrStore(key, struct{}{}); seen {
			r.logger.Debug("skipping visited directory", zap.String("path", sub), zap.String("target", key))
			continue
		}
		r.dispatch(ctx, &wg, sub)
		if !r.opts.OverlapSiblings {
			wg.Wait()
		}
	}
	wg.Wait()

	for _, name := range files {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, name)
		sum, warn := digestFile(r.opts.Digester, &r.stats, r.logger, path)
		index := int(r.counter.Add(1))

		r.mu.Lock()
		r.records = append(r.records, FileRecord{Path: path, Index: index, Checksum: sum})
		if warn != nil {
			r.warnings = append(r.warnings, *warn)
		}
		r.mu.Unlock()
	}
}

// skip records dir as unreadable, or aborts the run under ErrorHandlingStop.
func (r *concurrentRun) skip(dir string, err error) {
	warn, abort := listingFailed(r.opts.ErrorHandling, &r.stats, r.logger, dir, err)
	if abort != nil {
		r.abort(abort)
		return
	}
	r.mu.Lock()
	r.warnings = append(r.warnings, *warn)
	r.mu.Unlock()
}

// dispatch runs the expansion of dir on the pool, or inline when every slot is taken.
func (r *concurrentRun) dispatch(ctx context.Context, wg *sync.WaitGroup, dir string) {
	wg.Add(1)
	err := r.pool.Submit(func() {
		defer wg.Done()
		r.expand(ctx, dir)
	})
	if err == nil {
		r.logger.Debug("dispatched unit", zap.String("path", dir), zap.Int("running", r.pool.Running()))
		return
	}
	wg.Done()

	if !errors.Is(err, ants.ErrPoolOverload) {
		r.logger.Warn("submit failed, expanding inline", zap.String("path", dir), zap.Error(err))
	} else {
		r.logger.Debug("pool saturated, expanding inline", zap.String("path", dir))
	}
	r.expand(ctx, dir)
}
