package app

import (
	"context"

	"pipegen/internal/parser"
)

// ParsePhase loads and validates the pipeline definition.
type ParsePhase struct{}

func (p *ParsePhase) Name() string {
	return "parse"
}

func (p *ParsePhase) Execute(ctx context.Context, run *Run) error {
	bp, err := parser.Parse(run.Options.DefinitionPath)
	if err != nil {
		return err
	}
	run.Blueprint = bp
	run.Logger.Info("Pipeline definition parsed", "name", bp.Metadata.Name, "stages", len(bp.Spec.Stages))
	return nil
}
