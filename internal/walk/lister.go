package multichecksum

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// EntryKind classifies a directory entry for traversal purposes.
type EntryKind int

const (
	KindOther EntryKind = iota // Devices, sockets, broken symlinks, ...
	KindDir
	KindFile
)

// Entry is one immediate child of a listed directory.
type Entry struct {
	Name string
	Kind EntryKind
}

// Lister enumerates the immediate children of a directory.
// Implementations must be safe for concurrent use.
type Lister interface {
	List(dir string) ([]Entry, error)
}

// Resolver is implemented by listers whose directories may be reached
// through symbolic links. Resolve returns the canonical path of dir, which
// the walkers use to enter every physical directory at most once.
type Resolver interface {
	Resolve(dir string) (string, error)
}

// resolveDir returns the canonical path of dir when l can resolve it, and
// dir itself otherwise.
func resolveDir(l Lister, dir string) string {
	r, ok := l.(Resolver)
	if !ok {
		return dir
	}
	canon, err := r.Resolve(dir)
	if err != nil {
		return dir
	}
	return canon
}

// sortEntries orders entries by name. Names are compared in NFC so that
// composed and decomposed spellings sort together; ties fall back to the
// raw bytes.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := norm.NFC.String(entries[i].Name), norm.NFC.String(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Name < entries[j].Name
	})
}

// linkKind classifies a symbolic link by the entry it points to.
func linkKind(info os.FileInfo, err error) EntryKind {
	switch {
	case err != nil:
		return KindOther
	case info.IsDir():
		return KindDir
	case info.Mode().IsRegular():
		return KindFile
	}
	return KindOther
}

// splitEntries partitions a listing into subdirectory and regular file names,
// preserving the listing order within each group.
func splitEntries(entries []Entry) (dirs, files []string) {
	for _, e := range entries {
		switch e.Kind {
		case KindDir:
			dirs = append(dirs, e.Name)
		case KindFile:
			files = append(files, e.Name)
		}
	}
	return dirs, files
}

// --------------------------------------------------------------------------
// OS lister
// --------------------------------------------------------------------------

// osLister reads directories straight from the OS with godirwalk.
// Entries come back in the order the filesystem returns them.
type osLister struct {
	scratch sync.Pool
}

// NewOSLister returns a Lister backed by godirwalk.ReadDirents.
func NewOSLister() Lister {
	return &osLister{
		scratch: sync.Pool{New: func() any {
			b := make([]byte, godirwalk.MinimumScratchBufferSize)
			return &b
		}},
	}
}

func (l *osLister) List(dir string) ([]Entry, error) {
	buf := l.scratch.Get().(*[]byte)
	dirents, err := godirwalk.ReadDirents(dir, *buf)
	l.scratch.Put(buf)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		kind := KindOther
		switch {
		case de.IsDir():
			kind = KindDir
		case de.IsRegular():
			kind = KindFile
		case de.IsSymlink():
			kind = linkKind(os.Stat(filepath.Join(dir, de.Name())))
		}
		entries = append(entries, Entry{Name: de.Name(), Kind: kind})
	}
	return entries, nil
}

func (l *osLister) Resolve(dir string) (string, error) {
	return filepath.EvalSymlinks(dir)
}

// --------------------------------------------------------------------------
// afero lister
// --------------------------------------------------------------------------

type aferoLister struct {
	fs afero.Fs
}

// NewAferoLister returns a Lister over any afero filesystem.
// afero.ReadDir sorts its result, so listings are always name-ordered.
func NewAferoLister(fs afero.Fs) Lister {
	return &aferoLister{fs: fs}
}

func (l *aferoLister) List(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		kind := KindOther
		mode := info.Mode()
		switch {
		case mode.IsDir():
			kind = KindDir
		case mode.IsRegular():
			kind = KindFile
		case mode&os.ModeSymlink != 0:
			kind = linkKind(l.fs.Stat(filepath.Join(dir, info.Name())))
		}
		entries = append(entries, Entry{Name: info.Name(), Kind: kind})
	}
	return entries, nil
}

// Resolve follows symbolic links on the host filesystem. Other afero
// backends have no links, so their paths are already canonical.
func (l *aferoLister) Resolve(dir string) (string, error) {
	if _, ok := l.fs.(*afero.OsFs); ok {
		return filepath.EvalSymlinks(dir)
	}
	return dir, nil
}
