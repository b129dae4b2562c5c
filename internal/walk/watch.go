package multichecksum

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"github.com/spf13/afero"
)

// DefaultDebounce is how long Watch waits for the tree to settle before re-running.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions defines options for watching a tree and re-running inventories.
type WatchOptions struct {
	// Quiet period after the last event before a new run starts.
	Debounce time.Duration

	// Timeout duration (0 means no timeout)
	Timeout time.Duration
}

// WatchHandler receives the outcome of every run. Returning an error stops the watch.
type WatchHandler func(ctx context.Context, report *RunReport, err error) error

// Watch runs walker over root once, then again every time the tree changes,
// until ctx is done or the handler returns an error. Only OS directories can
// be watched.
func Watch(ctx context.Context, root string, walker Walker, opts WatchOptions, handler WatchHandler) error {
	if err := validateRoot(afero.NewOsFs(), root); err != nil {
		return err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		return err
	}

	run := func() error {
		report, err := walker.Walk(ctx, root)
		if ctx.Err() != nil {
			return nil
		}
		return handler(ctx, report, err)
	}
	if err := run(); err != nil {
		return err
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// New directories are picked up whole; errors mean the entry is gone or is a file.
				_ = watchTree(watcher, event.Name)
			}
			settle = time.After(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if herr := handler(ctx, nil, fmt.Errorf("watcher error: %w", err)); herr != nil {
				return herr
			}

		case <-settle:
			settle = nil
			if err := run(); err != nil {
				return err
			}
		}
	}
}

// watchTree adds dir and every directory below it to watcher.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("error watching directory %s: %w", path, err)
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
}
