package multichecksum

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Walker produces a RunReport for the tree rooted at root.
type Walker interface {
	Walk(ctx context.Context, root string) (*RunReport, error)
}

// Mode selects a traversal strategy.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// NewWalker returns the walker implementing mode.
func NewWalker(mode Mode, opts Options) (Walker, error) {
	switch mode {
	case ModeSequential:
		return NewSequentialWalker(opts)
	case ModeConcurrent, "":
		return NewConcurrentWalker(opts)
	default:
		return nil, errors.New("multichecksum: unknown mode " + string(mode))
	}
}

// runLogger scopes logger to a single run.
func runLogger(logger *zap.Logger, root string, mode Mode) *zap.Logger {
	return logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("root", root),
		zap.String("mode", string(mode)),
	)
}

// digestFile digests path, turning a failure into a Warning. The returned
// checksum is empty whenever the warning is non-nil.
func digestFile(d Digester, stats *Stats, logger *zap.Logger, path string) (string, *Warning) {
	sum, err := d.Digest(path)
	atomic.AddInt64(&stats.FilesDigested, 1)
	if err == nil {
		return sum, nil
	}

	atomic.AddInt64(&stats.ErrorCount, 1)
	var de *DigestError
	if !errors.As(err, &de) {
		err = &DigestError{Path: path, Err: err}
	}
	logger.Warn("digest failed", zap.String("path", path), zap.Error(err))
	return "", &Warning{Kind: WarningDigest, Path: path, Err: err}
}

// listingFailed records a directory that could not be read. It returns a
// non-nil error only when the run must abort.
func listingFailed(policy ErrorHandling, stats *Stats, logger *zap.Logger, dir string, err error) (*Warning, error) {
	atomic.AddInt64(&stats.ErrorCount, 1)
	lerr := &ListingError{Path: dir, Err: err}
	if policy == ErrorHandlingStop {
		logger.Error("listing failed, aborting", zap.String("path", dir), zap.Error(err))
		return nil, lerr
	}
	logger.Warn("listing failed, skipping subtree", zap.String("path", dir), zap.Error(err))
	return &Warning{Kind: WarningListing, Path: dir, Err: lerr}, nil
}

// panicError turns a value recovered while expanding a directory into an error.
func panicError(p any) error {
	return fmt.Errorf("%w: %v", ErrUnitPanic, p)
}
