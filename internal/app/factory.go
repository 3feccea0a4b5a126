package app

import (
	"fmt"

	pgerrors "pipegen/internal/errors"
	"pipegen/internal/generator"
	"pipegen/pkg/blueprint"
	"pipegen/pkg/pipeline"
)

// StageFactory maps definition stage entries onto stage-model operations.
type StageFactory struct{}

func NewStageFactory() *StageFactory {
	return &StageFactory{}
}

// Apply appends the stage described by spec to g.
func (f *StageFactory) Apply(g *generator.Generator, spec blueprint.StageSpec) error {
	switch spec.Type {
	case blueprint.StageTest:
		g.AddTestStage(spec.Command, spec.Image)
	case blueprint.StageBuild:
		g.AddBuildStage(spec.Command, spec.Image)
	case blueprint.StageDocker:
		if _, err := g.AddDockerBuildStage(spec.ImageName, spec.Tag); err != nil {
			return err
		}
	case blueprint.StageDeploy:
		if _, err := g.AddDeployStage(spec.Environment, spec.Resources); err != nil {
			return err
		}
	case blueprint.StageCustom:
		g.AddStage(pipeline.Stage{
			Name:     spec.Name,
			Steps:    spec.Steps,
			RunAfter: spec.RunAfter,
			Parallel: spec.Parallel,
		})
	default:
		return pgerrors.NewInvalidArgumentError(
			"Unsupported stage type",
			fmt.Sprintf("stage type '%s' is not supported", spec.Type),
			"Use one of: test, build, docker, deploy, custom",
			fmt.Errorf("unsupported stage type: %s", spec.Type),
		)
	}
	return nil
}
