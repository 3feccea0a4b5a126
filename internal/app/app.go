package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pipegen/internal/generator"
	"pipegen/internal/render"
	"pipegen/internal/render/manifest"
)

// DefaultOutputDir is used when Options.OutputDir is empty.
const DefaultOutputDir = "generated"

// Manifest targets rendered by Render in addition to the registered renderers.
const (
	TargetDeployment = "deployment"
	TargetService    = "service"
)

// Generate parses the definition, builds the session and writes every artifact.
// It returns the written paths.
func Generate(ctx context.Context, opts Options) ([]string, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	run, err := execute(ctx, opts, &ParsePhase{}, NewSessionPhase(), &WritePhase{})
	if err != nil {
		return nil, err
	}
	return run.Written, nil
}

// Load parses the definition and returns the populated session without writing.
func Load(ctx context.Context, opts Options) (*generator.Generator, error) {
	run, err := execute(ctx, opts, &ParsePhase{}, NewSessionPhase())
	if err != nil {
		return nil, err
	}
	return run.Generator, nil
}

// Render returns a single artifact: a registered renderer name, or
// "deployment" / "service" for the manifests.
func Render(ctx context.Context, opts Options, target string) (string, error) {
	g, err := Load(ctx, opts)
	if err != nil {
		return "", err
	}

	m := g.ManifestOptions()
	switch target {
	case TargetDeployment:
		dep, err := g.GenerateDeployment(m.ImageName, m.Tag, m.Resources)
		if err != nil {
			return "", err
		}
		return marshalManifest(dep)
	case TargetService:
		svc, err := g.GenerateService(m.Port, m.TargetPort, m.ServiceType)
		if err != nil {
			return "", err
		}
		return marshalManifest(svc)
	}

	artifact, err := g.Render(target)
	if err != nil {
		return "", err
	}
	return string(artifact.Content), nil
}

// Validate loads the definition and renders everything in memory.
func Validate(ctx context.Context, opts Options) ([]render.Artifact, error) {
	g, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	return g.Artifacts()
}

// Targets lists the names accepted by Render.
func Targets() []string {
	var names []string
	for _, r := range generator.BuiltinRenderers(nil) {
		names = append(names, r.Name())
	}
	return append(names, TargetDeployment, TargetService)
}

func execute(ctx context.Context, opts Options, phases ...Phase) (*Run, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	run := &Run{Options: opts, Logger: logger.With("runId", runID)}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s phase cancelled: %w", phase.Name(), err)
		}
		run.Logger.Debug("Phase started", "phase", phase.Name())
		if err := phase.Execute(ctx, run); err != nil {
			run.Logger.Error("Phase failed", "phase", phase.Name(), "error", err)
			return nil, err
		}
	}

	run.Logger.Info("Workflow completed", "definition", opts.DefinitionPath, "files", len(run.Written), "dryRun", opts.DryRun)
	return run, nil
}

func marshalManifest(obj any) (string, error) {
	content, err := manifest.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
