package app

import (
	"context"
)

// WritePhase saves every artifact below the output directory.
type WritePhase struct{}

func (p *WritePhase) Name() string {
	return "write"
}

func (p *WritePhase) Execute(ctx context.Context, run *Run) error {
	paths, err := run.Generator.SaveToFiles(run.Options.OutputDir)
	if err != nil {
		return err
	}
	run.Written = paths
	return nil
}
