package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"pipegen/internal/generator"
	"pipegen/pkg/blueprint"
)

// Phase is a single step of the generate workflow.
type Phase interface {
	Name() string
	Execute(ctx context.Context, run *Run) error
}

// Options configures one workflow invocation.
type Options struct {
	// DefinitionPath is the pipeline definition YAML file.
	DefinitionPath string
	// OutputDir receives the generated files.
	OutputDir string
	DryRun    bool
	// WorkDir is where repository details are detected from. Defaults to the
	// definition file's directory.
	WorkDir string

	Fs     afero.Fs
	Out    io.Writer
	Logger *slog.Logger
}

// Run carries state between phases.
type Run struct {
	Options   Options
	Blueprint *blueprint.Blueprint
	Generator *generator.Generator
	Written   []string
	Logger    *slog.Logger
}
