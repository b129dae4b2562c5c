package multichecksum

import (
	"errors"
	"fmt"
)

// ErrPathNotFound is returned when the walk root is missing or not a directory.
var ErrPathNotFound = errors.New("multichecksum: path not found")

// ErrUnitPanic marks a directory whose expansion panicked. It is wrapped in
// a ListingError and handled like any other listing failure.
var ErrUnitPanic = errors.New("multichecksum: expansion panicked")

// DigestError reports a file whose content could not be read or hashed.
type DigestError struct {
	Path string
	Err  error
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("digest %q: %v", e.Path, e.Err)
}

func (e *DigestError) Unwrap() error { return e.Err }

// ListingError reports a directory whose entries could not be read.
type ListingError struct {
	Path string
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("list %q: %v", e.Path, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }
