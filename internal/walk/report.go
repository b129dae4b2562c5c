package multichecksum

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// FileRecord is one digested file.
type FileRecord struct {
	Path     string
	Index    int
	Checksum string // Empty when the file could not be digested
}

// WarningKind tells which stage of the traversal produced a Warning.
type WarningKind string

const (
	WarningDigest  WarningKind = "digest"
	WarningListing WarningKind = "listing"
)

// Warning is a non-fatal failure absorbed during a run.
type Warning struct {
	Kind WarningKind
	Path string
	Err  error
}

// RunReport is the complete output of one traversal.
type RunReport struct {
	Directory   string
	FilesCount  int
	Runtime     time.Duration
	Concurrency int
	Records     []FileRecord
	Warnings    []Warning
}

// newReport builds the final report; FilesCount is always derived from records.
func newReport(directory string, runtime time.Duration, concurrency int, records []FileRecord, warnings []Warning) *RunReport {
	if records == nil {
		records = []FileRecord{}
	}
	return &RunReport{
		Directory:   directory,
		FilesCount:  len(records),
		Runtime:     runtime,
		Concurrency: concurrency,
		Records:     records,
		Warnings:    warnings,
	}
}

// Err joins every warning into a single error, or returns nil for a clean run.
func (r *RunReport) Err() error {
	errs := make([]error, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		errs = append(errs, w.Err)
	}
	return errors.Join(errs...)
}

// message is the rendered text of the warning's error, empty when it has none.
func (w Warning) message() string {
	if w.Err == nil {
		return ""
	}
	return w.Err.Error()
}

type jsonMetadata struct {
	Directory   string  `json:"directory"`
	Files       int     `json:"files"`
	Runtime     float64 `json:"runtime"`
	Concurrency int     `json:"concurrency"`
}

type jsonRecord struct {
	File     string `json:"file"`
	Index    int    `json:"index"`
	Checksum string `json:"checksum"`
}

type jsonWarning struct {
	Kind  WarningKind `json:"kind"`
	Path  string      `json:"path"`
	Error string      `json:"error"`
}

type jsonReport struct {
	Metadata  jsonMetadata  `json:"metadata"`
	Checksums []jsonRecord  `json:"checksums"`
	Warnings  []jsonWarning `json:"warnings,omitempty"`
}

// MarshalJSON renders the report as {"metadata": {...}, "checksums": [...]}.
// Paths are emitted exactly as they were walked.
func (r *RunReport) MarshalJSON() ([]byte, error) {
	out := jsonReport{
		Metadata: jsonMetadata{
			Directory:   r.Directory,
			Files:       r.FilesCount,
			Runtime:     r.Runtime.Seconds(),
			Concurrency: r.Concurrency,
		},
		Checksums: make([]jsonRecord, 0, len(r.Records)),
	}
	for _, rec := range r.Records {
		out.Checksums = append(out.Checksums, jsonRecord{
			File:     rec.Path,
			Index:    rec.Index,
			Checksum: rec.Checksum,
		})
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, jsonWarning{
			Kind:  w.Kind,
			Path:  w.Path,
			Error: w.message(),
		})
	}
	return json.Marshal(out)
}

// WriteJSON writes the indented JSON rendering of r to w.
func (r *RunReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable table of r to w.
func (r *RunReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "directory:\t%s\n", r.Directory)
	fmt.Fprintf(tw, "files:\t%d\n", r.FilesCount)
	fmt.Fprintf(tw, "runtime:\t%.6fs\n", r.Runtime.Seconds())
	fmt.Fprintf(tw, "concurrency:\t%d\n\n", r.Concurrency)
	fmt.Fprintln(tw, "INDEX\tCHECKSUM\tFILE")
	for _, rec := range r.Records {
		sum := rec.Checksum
		if sum == "" {
			sum = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", rec.Index, sum, rec.Path)
	}
	for _, wr := range r.Warnings {
		fmt.Fprintf(tw, "warning (%s):\t%s\n", wr.Kind, wr.message())
	}
	return tw.Flush()
}
