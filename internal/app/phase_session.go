package app

import (
	"context"
	"fmt"
	"path/filepath"

	"pipegen/internal/generator"
	"pipegen/internal/gitinfo"
)

// SessionPhase builds the generation session and applies the definition's stages.
type SessionPhase struct {
	factory *StageFactory
}

func NewSessionPhase() *SessionPhase {
	return &SessionPhase{factory: NewStageFactory()}
}

func (p *SessionPhase) Name() string {
	return "session"
}

func (p *SessionPhase) Execute(ctx context.Context, run *Run) error {
	bp := run.Blueprint
	config := bp.ProjectConfig()

	if config.RepositoryURL == "" || config.Branch == "" {
		workDir := run.Options.WorkDir
		if workDir == "" {
			workDir = filepath.Dir(run.Options.DefinitionPath)
		}
		info, err := gitinfo.Detect(workDir)
		if err != nil {
			run.Logger.Debug("Repository detection skipped", "dir", workDir, "error", err)
		} else {
			if config.RepositoryURL == "" {
				config.RepositoryURL = info.RemoteURL
			}
			if config.Branch == "" {
				config.Branch = info.Branch
			}
			run.Logger.Debug("Repository detected", "url", info.RemoteURL, "branch", info.Branch)
		}
	}

	m := bp.Spec.Manifests
	g, err := generator.New(config, generator.Options{
		Logger:    run.Logger,
		Fs:        run.Options.Fs,
		DryRun:    run.Options.DryRun,
		DryRunOut: run.Options.Out,
		Manifests: generator.ManifestOptions{
			ImageName:   m.ImageName,
			Tag:         m.Tag,
			Resources:   m.Resources,
			Port:        m.Service.Port,
			TargetPort:  m.Service.TargetPort,
			ServiceType: m.Service.Type,
		},
	})
	if err != nil {
		return err
	}

	for i, spec := range bp.Spec.Stages {
		if err := p.factory.Apply(g, spec); err != nil {
			return fmt.Errorf("stage %d (%s): %w", i+1, spec.Type, err)
		}
	}

	run.Generator = g
	return nil
}
