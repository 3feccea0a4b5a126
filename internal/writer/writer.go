// Package writer saves rendered artifacts under an output directory.
package writer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"pipegen/internal/render"
)

const (
	DirPerm  = 0755
	FilePerm = 0644
)

// Writer writes artifacts to a filesystem. In dry-run mode it only reports
// what would be written.
type Writer struct {
	fs     afero.Fs
	dryRun bool
	out    io.Writer
}

// New returns a writer backed by fs. out receives dry-run listings and may be
// nil when dryRun is false.
func New(fs afero.Fs, dryRun bool, out io.Writer) *Writer {
	if out == nil {
		out = io.Discard
	}
	return &Writer{fs: fs, dryRun: dryRun, out: out}
}

// NewOS returns a writer backed by the real filesystem.
func NewOS() *Writer {
	return New(afero.NewOsFs(), false, nil)
}

// Write saves every artifact below outputDir, creating directories as needed,
// and returns the written paths in write order. The first failure stops the
// write; files already written are left in place.
func (w *Writer) Write(outputDir string, artifacts []render.Artifact) ([]string, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}

	if w.dryRun {
		fmt.Fprintf(w.out, "DRY RUN: Would create directory: %s\n", outputDir)
	} else if err := w.fs.MkdirAll(outputDir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	written := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		if err := validatePath(artifact.Path); err != nil {
			return written, fmt.Errorf("invalid artifact path: %w", err)
		}
		target := filepath.Join(outputDir, artifact.Path)

		if w.dryRun {
			fmt.Fprintf(w.out, "DRY RUN: Would create file: %s (%d bytes)\n", target, len(artifact.Content))
			written = append(written, target)
			continue
		}

		if err := w.fs.MkdirAll(filepath.Dir(target), DirPerm); err != nil {
			return written, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
		}
		if err := afero.WriteFile(w.fs, target, artifact.Content, FilePerm); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
		written = append(written, target)
	}

	return written, nil
}

// validatePath rejects absolute paths and paths escaping the output directory.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path must be relative: %s", path)
	}
	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	return nil
}
