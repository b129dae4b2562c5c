package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	multichecksum "github.com/Eliorco/Multichecksum/internal/walk"
	"github.com/spf13/afero"
)

type renderedReport struct {
	Metadata struct {
		Directory   string  `json:"directory"`
		Files       int     `json:"files"`
		Runtime     float64 `json:"runtime"`
		Concurrency int     `json:"concurrency"`
	} `json:"metadata"`
	Checksums []struct {
		File     string `json:"file"`
		Index    int    `json:"index"`
		Checksum string `json:"checksum"`
	} `json:"checksums"`
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	t.Logf("stderr: %s", stderr.String())
	return stdout.String(), err
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return root
}

func TestRootCommandJSON(t *testing.T) {
	root := setupTree(t)

	for _, mode := range []string{"sequential", "concurrent"} {
		t.Run(mode, func(t *testing.T) {
			out, err := execute(t, "--mode", mode, "--workers", "3", "--algorithm", "md5",
				"--format", "json", "--output", "", "--silent", root)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			var doc renderedReport
			if err := json.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("Output is not JSON: %v\n%s", err, out)
			}
			if doc.Metadata.Directory != root || doc.Metadata.Files != 2 || doc.Metadata.Concurrency != 3 {
				t.Errorf("Unexpected metadata %+v", doc.Metadata)
			}

			sums := map[string]string{}
			index := map[string]int{}
			for _, c := range doc.Checksums {
				sums[filepath.Base(c.File)] = c.Checksum
				index[filepath.Base(c.File)] = c.Index
			}
			if sums["a.txt"] != "5d41402abc4b2a76b9719d911017c592" || sums["b.txt"] != "7d793037a0760186574b0282f2f435e7" {
				t.Errorf("Unexpected checksums %v", sums)
			}
			if index["b.txt"] >= index["a.txt"] {
				t.Errorf("Expected b.txt to be indexed before a.txt, got %v", index)
			}
		})
	}
}

func TestRootCommandText(t *testing.T) {
	root := setupTree(t)

	out, err := execute(t, "--mode", "sequential", "--workers", "0", "--algorithm", "sha256",
		"--format", "text", "--output", "", "--silent", root)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, "INDEX") || !strings.Contains(out, "b.txt") {
		t.Errorf("Unexpected text output:\n%s", out)
	}
}

func TestRootCommandOutputFile(t *testing.T) {
	root := setupTree(t)

	fs := afero.NewMemMapFs()
	saved := outputFs
	outputFs = fs
	defer func() { outputFs = saved }()

	out, err := execute(t, "--mode", "concurrent", "--workers", "2", "--algorithm", "md5",
		"--format", "json", "--output", "/reports/run.json", "--silent", root)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "" {
		t.Errorf("Expected nothing on stdout, got %q", out)
	}

	raw, err := afero.ReadFile(fs, "/reports/run.json")
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var doc renderedReport
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Report is not JSON: %v", err)
	}
	if doc.Metadata.Files != 2 {
		t.Errorf("Expected 2 files, got %d", doc.Metadata.Files)
	}
}

func TestRootCommandErrors(t *testing.T) {
	root := setupTree(t)

	_, err := execute(t, "--mode", "sequential", "--format", "json", "--output", "", "--silent", "/definitely/missing/path")
	if !errors.Is(err, multichecksum.ErrPathNotFound) {
		t.Errorf("Expected ErrPathNotFound, got %v", err)
	}

	if _, err := execute(t, "--mode", "parallel", "--silent", root); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if _, err := execute(t, "--mode", "sequential", "--algorithm", "crc7", "--silent", root); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
	if _, err := execute(t, "--algorithm", "md5", "--format", "yaml", "--silent", root); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := execute(t, "--format", "json", "--error-mode", "explode", "--silent", root); err == nil {
		t.Error("Expected error for unknown error mode")
	}
	// Restore a valid error mode for later tests sharing the flag set.
	if _, err := execute(t, "--error-mode", "continue", "--silent", root); err != nil {
		t.Errorf("Execute failed: %v", err)
	}
}
