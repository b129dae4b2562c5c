package multichecksum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchRerunsOnChange(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	w, err := NewSequentialWalker(testOptions(t))
	if err != nil {
		t.Fatalf("NewSequentialWalker failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reports := make(chan *RunReport, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, root, w, WatchOptions{Debounce: 50 * time.Millisecond},
			func(ctx context.Context, report *RunReport, err error) error {
				if err != nil {
					t.Logf("Watch error: %v", err)
					return nil
				}
				reports <- report
				return nil
			})
	}()

	select {
	case report := <-reports:
		if report.FilesCount != 1 {
			t.Fatalf("Expected 1 file in the initial run, got %d", report.FilesCount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the initial run")
	}

	// A file inside a new subdirectory exercises the recursive registration.
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("world"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case report := <-reports:
			if report.FilesCount == 2 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for a re-run that includes sub/b.txt")
		}
	}
}

func TestWatchHandlerErrorStops(t *testing.T) {
	root := t.TempDir()
	w, err := NewConcurrentWalker(testOptions(t))
	if err != nil {
		t.Fatalf("NewConcurrentWalker failed: %v", err)
	}

	stop := errors.New("stop")
	err = Watch(context.Background(), root, w, WatchOptions{Timeout: 5 * time.Second},
		func(ctx context.Context, report *RunReport, err error) error {
			return stop
		})
	if !errors.Is(err, stop) {
		t.Errorf("Expected handler error, got %v", err)
	}
}

func TestWatchMissingRoot(t *testing.T) {
	w, err := NewSequentialWalker(testOptions(t))
	if err != nil {
		t.Fatalf("NewSequentialWalker failed: %v", err)
	}
	err = Watch(context.Background(), "/path/that/does/not/exist", w, WatchOptions{},
		func(context.Context, *RunReport, error) error { return nil })
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Expected ErrPathNotFound, got %v", err)
	}
}
