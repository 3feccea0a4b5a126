// Package generator is the session facade: one validated project config, one
// stage model, and the renderers that turn them into CI/CD artifacts.
package generator

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	pgerrors "pipegen/internal/errors"
	"pipegen/internal/render"
	"pipegen/internal/render/buildspec"
	"pipegen/internal/render/codepipeline"
	"pipegen/internal/render/jenkins"
	"pipegen/internal/render/manifest"
	"pipegen/internal/stages"
	"pipegen/internal/writer"
	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

// ManifestOptions controls the per-environment manifests SaveToFiles writes.
// Zero values select the manifest package defaults.
type ManifestOptions struct {
	ImageName   string
	Tag         string
	Resources   map[string]string
	Port        int
	TargetPort  int
	ServiceType string
}

// Options configures a session.
type Options struct {
	Logger    *slog.Logger
	Fs        afero.Fs
	DryRun    bool
	DryRunOut io.Writer
	Manifests ManifestOptions
}

// Generator holds one generation session.
type Generator struct {
	config    project.Config
	model     *stages.Model
	registry  *render.Registry
	cloud     *codepipeline.Renderer
	manifests *manifest.Generator
	options   ManifestOptions
	writer    *writer.Writer
	logger    *slog.Logger
	sessionID string
}

// New defaults and validates config and returns a session with the built-in
// renderers registered. An invalid config yields no session.
func New(config project.Config, opts Options) (*Generator, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, pgerrors.NewConfigError(
			"Invalid project configuration",
			err.Error(),
			"Fix the listed fields in the pipeline definition",
			err,
		)
	}

	sessionID := uuid.New().String()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("sessionId", sessionID, "project", config.Name)

	opts.Manifests.Resources = maps.Clone(opts.Manifests.Resources)

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	g := &Generator{
		config:    config,
		model:     stages.NewModel(config, logger),
		registry:  render.NewRegistry(),
		cloud:     codepipeline.New(logger),
		manifests: manifest.NewGenerator(config),
		options:   opts.Manifests,
		writer:    writer.New(fs, opts.DryRun, opts.DryRunOut),
		logger:    logger,
		sessionID: sessionID,
	}

	for _, r := range builtinRenderers(g.cloud) {
		if err := g.registry.Register(r); err != nil {
			return nil, err
		}
	}

	logger.Info("Generation session created", "environments", config.Environments, "registryPrefix", config.RegistryPrefix)
	return g, nil
}

// BuiltinRenderers returns the renderers every session starts with, in
// registration order.
func BuiltinRenderers(logger *slog.Logger) []render.Renderer {
	return builtinRenderers(codepipeline.New(logger))
}

func builtinRenderers(cloud *codepipeline.Renderer) []render.Renderer {
	return []render.Renderer{
		jenkins.New(),
		cloud,
		buildspec.NewImageRenderer(),
		buildspec.NewDeployRenderer(),
	}
}

// Config returns a copy of the session's resolved config.
func (g *Generator) Config() project.Config {
	return g.config.Clone()
}

// ManifestOptions returns the manifest settings SaveToFiles uses.
func (g *Generator) ManifestOptions() ManifestOptions {
	o := g.options
	o.Resources = maps.Clone(o.Resources)
	return o
}

// SessionID identifies the session in logs.
func (g *Generator) SessionID() string {
	return g.sessionID
}

// Stages returns a copy of the stage model.
func (g *Generator) Stages() []pipeline.Stage {
	return g.model.Stages()
}

// Registry exposes the renderer registry.
func (g *Generator) Registry() *render.Registry {
	return g.registry
}

// RegisterRenderer adds an extra output target. Its artifact is included in SaveToFiles.
func (g *Generator) RegisterRenderer(r render.Renderer) error {
	return g.registry.Register(r)
}

func (g *Generator) AddStage(stage pipeline.Stage) *Generator {
	g.model.AddStage(stage)
	return g
}

func (g *Generator) AddTestStage(command, image string) *Generator {
	g.model.AddTestStage(command, image)
	return g
}

func (g *Generator) AddBuildStage(command, image string) *Generator {
	g.model.AddBuildStage(command, image)
	return g
}

func (g *Generator) AddDockerBuildStage(imageName, tag string) (*Generator, error) {
	if _, err := g.model.AddDockerBuildStage(imageName, tag); err != nil {
		return g, err
	}
	return g, nil
}

func (g *Generator) AddDeployStage(environment string, resources []string) (*Generator, error) {
	if _, err := g.model.AddDeployStage(environment, resources); err != nil {
		return g, err
	}
	return g, nil
}

// Render runs the named renderer over the current stage model.
func (g *Generator) Render(target string) (render.Artifact, error) {
	r, err := g.registry.Get(target)
	if err != nil {
		return render.Artifact{}, pgerrors.NewInvalidArgumentError(
			"Unknown render target",
			err.Error(),
			fmt.Sprintf("Use one of: %v", g.registry.Names()),
			err,
		)
	}
	artifact, err := r.Render(g.config.Clone(), g.model.Stages())
	if err != nil {
		return render.Artifact{}, err
	}
	if artifact.Path == "" {
		artifact.Path = r.Filename()
	}
	g.logger.Debug("Artifact rendered", "target", target, "bytes", len(artifact.Content))
	return artifact, nil
}

// GenerateJenkinsfile renders the Jenkins pipeline script for the current stages.
func (g *Generator) GenerateJenkinsfile() (string, error) {
	artifact, err := g.Render(jenkins.Name)
	if err != nil {
		return "", err
	}
	return string(artifact.Content), nil
}

// GenerateCloudPipeline builds the CloudFormation template. It depends on the
// config only; the stage model is not consulted.
func (g *Generator) GenerateCloudPipeline() (codepipeline.Template, error) {
	return g.cloud.Generate(g.config.Clone())
}

// GenerateBuildSpec builds the image build-and-push spec.
func (g *Generator) GenerateBuildSpec() buildspec.Spec {
	return buildspec.Image(g.config.Clone())
}

// GenerateDeployBuildSpec builds the cluster deploy spec.
func (g *Generator) GenerateDeployBuildSpec() buildspec.Spec {
	return buildspec.Deploy(g.config.Clone())
}

// GenerateDeployment builds the Deployment. The container image is always the
// deploy-time placeholder.
func (g *Generator) GenerateDeployment(imageName, tag string, resources map[string]string) (*appsv1.Deployment, error) {
	return g.manifests.Deployment(imageName, tag, resources)
}

func (g *Generator) GenerateService(port, targetPort int, serviceType string) (*corev1.Service, error) {
	return g.manifests.Service(port, targetPort, serviceType)
}

// Artifacts renders every registered target followed by the deployment and
// service manifests of each known environment.
func (g *Generator) Artifacts() ([]render.Artifact, error) {
	var artifacts []render.Artifact
	for _, name := range g.registry.Names() {
		artifact, err := g.Render(name)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	o := g.options
	for _, env := range g.config.Environments {
		dep, err := g.manifests.DeploymentFor(env, o.ImageName, o.Tag, o.Resources)
		if err != nil {
			return nil, err
		}
		svc, err := g.manifests.ServiceFor(env, o.Port, o.TargetPort, o.ServiceType)
		if err != nil {
			return nil, err
		}
		for _, m := range []struct {
			file string
			obj  any
		}{{manifest.DeploymentFilename, dep}, {manifest.ServiceFilename, svc}} {
			content, err := manifest.Marshal(m.obj)
			if err != nil {
				return nil, pgerrors.NewRenderError("Cannot encode manifest", err.Error(), "", err)
			}
			artifacts = append(artifacts, render.Artifact{
				Path:    filepath.Join(buildspec.ManifestDir, env, m.file),
				Content: content,
			})
		}
	}
	return artifacts, nil
}

// SaveToFiles renders everything and writes it below outputDir, returning the
// written paths. A failed write may leave a partially populated tree.
func (g *Generator) SaveToFiles(outputDir string) ([]string, error) {
	artifacts, err := g.Artifacts()
	if err != nil {
		return nil, err
	}

	paths, err := g.writer.Write(outputDir, artifacts)
	if err != nil {
		return paths, pgerrors.NewFileSystemError(
			"Failed to save generated files",
			err.Error(),
			fmt.Sprintf("Check that %s is writable", outputDir),
			err,
		)
	}

	g.logger.Info("Generated files saved", "outputDir", outputDir, "files", len(paths))
	return paths, nil
}
