// Package multichecksum computes content checksums for every regular file under a
// directory tree, either sequentially or with a bounded number of concurrent workers.
package multichecksum

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Core types for progress monitoring
// --------------------------------------------------------------------------

// ProgressFn is called periodically with traversal statistics.
// Implementations must be thread-safe as this may be called concurrently.
type ProgressFn func(stats Stats)

// Stats holds traversal statistics that are updated atomically during the walk.
type Stats struct {
	FilesDigested int64         // Number of files digested (including failures)
	DirsListed    int64         // Number of directories listed
	ErrorCount    int64         // Number of digest and listing failures
	ElapsedTime   time.Duration // Total time elapsed
	FilesPerSec   float64       // Digest throughput
}

// snapshot returns a consistent copy of the counters with derived fields filled in.
func (s *Stats) snapshot(start time.Time) Stats {
	out := Stats{
		FilesDigested: atomic.LoadInt64(&s.FilesDigested),
		DirsListed:    atomic.LoadInt64(&s.DirsListed),
		ErrorCount:    atomic.LoadInt64(&s.ErrorCount),
		ElapsedTime:   time.Since(start),
	}
	if sec := out.ElapsedTime.Seconds(); sec > 0 {
		out.FilesPerSec = float64(out.FilesDigested) / sec
	}
	return out
}

// --------------------------------------------------------------------------
// Configuration types
// --------------------------------------------------------------------------

// ErrorHandling defines how directory listing failures are handled.
type ErrorHandling int

const (
	ErrorHandlingContinue ErrorHandling = iota // Record a warning, skip the subtree
	ErrorHandlingStop                          // Abort the whole run
)

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Options configures both walkers. The zero value is usable.
type Options struct {
	// Concurrency is the admission limit of the concurrent walker and the
	// value reported in RunReport.Concurrency. Zero means runtime.NumCPU().
	Concurrency int

	Algorithm Algorithm

	// SortEntries orders each directory listing by name. Without it the
	// index numbering follows the order the filesystem returns entries in.
	SortEntries bool

	// OverlapSiblings lets the concurrent walker admit every subdirectory of
	// a directory before waiting on any of them.
	OverlapSiblings bool

	ErrorHandling ErrorHandling
	Progress      ProgressFn
	Logger        *zap.Logger
	LogLevel      LogLevel

	// Fs is used to validate the root and read file contents. Nil means the OS.
	Fs afero.Fs

	// Lister and Digester override the defaults derived from Fs and Algorithm.
	Lister   Lister
	Digester Digester
}

// withDefaults validates opts and fills in every unset collaborator.
func (opts Options) withDefaults() (Options, error) {
	if opts.Concurrency < 0 {
		return opts, errors.New("multichecksum: concurrency must not be negative")
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}

	osBacked := opts.Fs == nil
	if osBacked {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Lister == nil {
		if osBacked {
			opts.Lister = NewOSLister()
		} else {
			opts.Lister = NewAferoLister(opts.Fs)
		}
	}

	if opts.Digester == nil {
		d, err := NewFileDigester(opts.Fs, opts.Algorithm)
		if err != nil {
			return opts, err
		}
		opts.Digester = d
	}

	if opts.Logger == nil {
		opts.Logger = createLogger(opts.LogLevel)
	}
	return opts, nil
}

// validateRoot fails with ErrPathNotFound unless root is an existing directory.
func validateRoot(fs afero.Fs, root string) error {
	ok, err := afero.IsDir(fs, root)
	if err != nil || !ok {
		return fmt.Errorf("%w: %s", ErrPathNotFound, root)
	}
	return nil
}

// startProgress reports stats every 500ms until the returned stop func is called.
// stop emits one final update.
func startProgress(fn ProgressFn, stats *Stats, start time.Time) (stop func()) {
	if fn == nil {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn(stats.snapshot(start))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		fn(stats.snapshot(start))
	}
}

// createLogger creates a zap logger with the specified log level.
func createLogger(level LogLevel) *zap.Logger {
	var config zap.Config

	switch level {
	case LogLevelError:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case LogLevelWarn:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelDebug:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
