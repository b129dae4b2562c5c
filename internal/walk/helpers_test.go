package multichecksum

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

const (
	md5Empty = "d41d8cd98f00b204e9800998ecf8427e"
	md5Hello = "5d41402abc4b2a76b9719d911017c592"
	md5World = "7d793037a0760186574b0282f2f435e7"
)

// writeTree creates every file in files (slash-separated paths relative to root).
func writeTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create test file %s: %v", rel, err)
		}
	}
}

// testOptions returns options that log through the test and sort listings.
func testOptions(t testing.TB) Options {
	return Options{
		Logger:      zaptest.NewLogger(t),
		SortEntries: true,
	}
}

// relPaths returns the record paths relative to root, sorted.
func relPaths(t testing.TB, root string, report *RunReport) []string {
	t.Helper()
	paths := make([]string, 0, len(report.Records))
	for _, rec := range report.Records {
		rel, err := filepath.Rel(root, rec.Path)
		if err != nil {
			t.Fatalf("Record %s is outside %s: %v", rec.Path, root, err)
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	sort.Strings(paths)
	return paths
}

// indexOf returns the index assigned to the file at rel, or 0.
func indexOf(root string, report *RunReport, rel string) int {
	want := filepath.Join(root, filepath.FromSlash(rel))
	for _, rec := range report.Records {
		if rec.Path == want {
			return rec.Index
		}
	}
	return 0
}

// checkReportConsistency asserts the invariants every report must satisfy.
func checkReportConsistency(t *testing.T, report *RunReport) {
	t.Helper()
	if report.FilesCount != len(report.Records) {
		t.Errorf("FilesCount = %d, but there are %d records", report.FilesCount, len(report.Records))
	}

	seen := make(map[int]bool, len(report.Records))
	for _, rec := range report.Records {
		if rec.Index < 1 || rec.Index > len(report.Records) {
			t.Errorf("Index %d of %s is outside 1..%d", rec.Index, rec.Path, len(report.Records))
		}
		if seen[rec.Index] {
			t.Errorf("Index %d assigned twice", rec.Index)
		}
		seen[rec.Index] = true
	}

	paths := make(map[string]bool, len(report.Records))
	for _, rec := range report.Records {
		if paths[rec.Path] {
			t.Errorf("File %s recorded twice", rec.Path)
		}
		paths[rec.Path] = true
	}
}

// failingDigester fails for every path in fail and delegates the rest.
type failingDigester struct {
	inner Digester
	fail  map[string]bool
}

func (d *failingDigester) Digest(path string) (string, error) {
	if d.fail[path] {
		return "", errors.New("permission denied")
	}
	return d.inner.Digest(path)
}

// failingLister fails to list the directory fail and delegates the rest.
type failingLister struct {
	inner Lister
	fail  string
}

func (l *failingLister) List(dir string) ([]Entry, error) {
	if dir == l.fail {
		return nil, os.ErrPermission
	}
	return l.inner.List(dir)
}

// panickingLister panics when asked to list the directory at and delegates the rest.
type panickingLister struct {
	inner Lister
	at    string
}

func (l *panickingLister) List(dir string) ([]Entry, error) {
	if dir == l.at {
		panic("lister exploded")
	}
	return l.inner.List(dir)
}

// symlinkTree builds root/a.txt, outside/c.txt, root/linked -> outside and
// root/loop/back -> root. It skips the test when symlinks are unavailable.
func symlinkTree(t *testing.T) (root string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "root")
	writeTree(t, base, map[string]string{
		"root/a.txt":      "hello",
		"root/loop/b.txt": "world",
		"outside/c.txt":   "",
	})
	if err := os.Symlink(filepath.Join(base, "outside"), filepath.Join(root, "linked")); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "loop", "back")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return root
}

// gaugeLister records the highest number of List calls in flight at once.
type gaugeLister struct {
	inner Lister
	delay time.Duration
	cur   atomic.Int64
	max   atomic.Int64
}

func (g *gaugeLister) List(dir string) ([]Entry, error) {
	n := g.cur.Add(1)
	defer g.cur.Add(-1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(g.delay)
	return g.inner.List(dir)
}
