// Package walk computes content checksums for every regular file in a directory tree.
//
// Two strategies are available. NewSequentialWalker visits the tree depth-first on
// the calling goroutine. NewConcurrentWalker expands subdirectories on a bounded
// pool of goroutines. Both number files deepest-first: the files of a directory
// are indexed only after every file beneath it.
package walk

import (
	"context"

	internal "github.com/Eliorco/Multichecksum/internal/walk"
	"github.com/spf13/afero"
)

// Re-export all the types from the internal package
type (
	// Options configures both walkers. The zero value is usable.
	Options = internal.Options

	// Walker produces a RunReport for a directory tree.
	Walker = internal.Walker

	// SequentialWalker digests a tree depth-first on the calling goroutine.
	SequentialWalker = internal.SequentialWalker

	// ConcurrentWalker expands subdirectories on a bounded pool of goroutines.
	ConcurrentWalker = internal.ConcurrentWalker

	// RunReport is the complete output of one traversal.
	RunReport = internal.RunReport

	// FileRecord is one digested file.
	FileRecord = internal.FileRecord

	// Warning is a non-fatal failure absorbed during a run.
	Warning = internal.Warning

	// WarningKind tells which stage of the traversal produced a Warning.
	WarningKind = internal.WarningKind

	// DigestError reports a file whose content could not be read.
	DigestError = internal.DigestError

	// ListingError reports a directory whose entries could not be read.
	ListingError = internal.ListingError

	// Digester computes the content digest of a single file.
	Digester = internal.Digester

	// FileDigester streams file contents through a hash function.
	FileDigester = internal.FileDigester

	// Lister enumerates the immediate children of a directory.
	Lister = internal.Lister

	// Resolver is implemented by listers that can canonicalize linked directories.
	Resolver = internal.Resolver

	// Entry is one immediate child of a listed directory.
	Entry = internal.Entry

	// EntryKind classifies a directory entry.
	EntryKind = internal.EntryKind

	Algorithm     = internal.Algorithm
	Mode          = internal.Mode
	ErrorHandling = internal.ErrorHandling
	LogLevel      = internal.LogLevel
	Stats         = internal.Stats
	ProgressFn    = internal.ProgressFn

	// Re-export watch types
	WatchOptions = internal.WatchOptions
	WatchHandler = internal.WatchHandler
)

// Re-export all the constants
const (
	ModeSequential = internal.ModeSequential
	ModeConcurrent = internal.ModeConcurrent

	AlgorithmMD5     = internal.AlgorithmMD5
	AlgorithmSHA1    = internal.AlgorithmSHA1
	AlgorithmSHA256  = internal.AlgorithmSHA256
	AlgorithmSHA512  = internal.AlgorithmSHA512
	AlgorithmXXHash  = internal.AlgorithmXXHash
	AlgorithmXXH3    = internal.AlgorithmXXH3
	AlgorithmBLAKE3  = internal.AlgorithmBLAKE3
	DefaultAlgorithm = internal.DefaultAlgorithm

	// Error handling modes
	ErrorHandlingContinue = internal.ErrorHandlingContinue
	ErrorHandlingStop     = internal.ErrorHandlingStop

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	WarningDigest  = internal.WarningDigest
	WarningListing = internal.WarningListing

	KindOther = internal.KindOther
	KindDir   = internal.KindDir
	KindFile  = internal.KindFile

	DefaultDebounce = internal.DefaultDebounce
)

var (
	// ErrPathNotFound is returned when the walk root is missing or not a directory.
	ErrPathNotFound = internal.ErrPathNotFound

	// ErrUnitPanic marks a directory whose expansion panicked.
	ErrUnitPanic = internal.ErrUnitPanic
)

// NewFileDigester returns a Digester that reads files from fs and hashes them with alg.
func NewFileDigester(fs afero.Fs, alg Algorithm) (*FileDigester, error) {
	return internal.NewFileDigester(fs, alg)
}

// NewOSLister returns a Lister that reads directories straight from the OS.
func NewOSLister() Lister {
	return internal.NewOSLister()
}

// NewAferoLister returns a Lister over any afero filesystem.
func NewAferoLister(fs afero.Fs) Lister {
	return internal.NewAferoLister(fs)
}

// NewSequentialWalker returns a walker that visits the tree on the calling goroutine.
func NewSequentialWalker(opts Options) (*SequentialWalker, error) {
	return internal.NewSequentialWalker(opts)
}

// NewConcurrentWalker returns a walker that runs at most opts.Concurrency expansions at once.
func NewConcurrentWalker(opts Options) (*ConcurrentWalker, error) {
	return internal.NewConcurrentWalker(opts)
}

// NewWalker returns the walker implementing mode.
func NewWalker(mode Mode, opts Options) (Walker, error) {
	return internal.NewWalker(mode, opts)
}

// Checksum walks root with the strategy selected by mode.
func Checksum(ctx context.Context, mode Mode, root string, opts Options) (*RunReport, error) {
	w, err := internal.NewWalker(mode, opts)
	if err != nil {
		return nil, err
	}
	return w.Walk(ctx, root)
}

// Algorithms lists the supported digest algorithm names.
func Algorithms() []string {
	return internal.Algorithms()
}

// Watch re-runs walker over root every time the tree changes.
func Watch(ctx context.Context, root string, walker Walker, opts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, walker, opts, handler)
}
