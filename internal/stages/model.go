// Package stages holds the ordered, append-only stage model of a generation
// session together with its typed add-operations.
package stages

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/distribution/reference"

	pgerrors "pipegen/internal/errors"
	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

const (
	DefaultTestCommand  = "pytest"
	DefaultBuildCommand = "python -m build"
	DefaultRuntimeImage = "python:3.11"
	DefaultImageTag     = "latest"

	// DockerImage is the privileged container-build sidecar image.
	DockerImage = "docker:24-dind"
	// DockerHost points the docker CLI at the sidecar daemon.
	DockerHost = "unix:///var/run/docker.sock"

	KubectlImage = "bitnami/kubectl:latest"

	// EnvironmentVariable is the step variable the deploy command is templated on.
	EnvironmentVariable = "ENVIRONMENT"
)

// DefaultDeployResources are the manifests applied by a deploy stage when the
// caller names none.
var DefaultDeployResources = []string{"deployment.yaml", "service.yaml"}

// Model is the ordered stage sequence of one session. Stages are only ever
// appended; renderers receive copies.
type Model struct {
	config project.Config
	stages []pipeline.Stage
	logger *slog.Logger
}

// NewModel creates an empty model bound to an already defaulted and validated config.
func NewModel(config project.Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		config: config.Clone(),
		logger: logger,
	}
}

// Stages returns a deep copy of the stages in insertion order.
func (m *Model) Stages() []pipeline.Stage {
	return pipeline.CloneAll(m.stages)
}

// Len returns the number of stages.
func (m *Model) Len() int {
	return len(m.stages)
}

// AddStage appends an arbitrary stage. The step shape is not checked here.
func (m *Model) AddStage(stage pipeline.Stage) *Model {
	m.stages = append(m.stages, stage.Clone())
	m.logger.Debug("Stage added", "stage", stage.Name, "steps", len(stage.Steps), "position", len(m.stages))
	return m
}

// AddTestStage appends a "test" stage running command through sh -c in image.
// Empty arguments fall back to the defaults.
func (m *Model) AddTestStage(command, image string) *Model {
	return m.AddStage(shellStage("test", "run-tests", orDefault(command, DefaultTestCommand), orDefault(image, DefaultRuntimeImage)))
}

// AddBuildStage appends a "build" stage running command through sh -c in image.
func (m *Model) AddBuildStage(command, image string) *Model {
	return m.AddStage(shellStage("build", "build-app", orDefault(command, DefaultBuildCommand), orDefault(image, DefaultRuntimeImage)))
}

// AddDockerBuildStage appends a stage that builds and pushes
// <registryPrefix>/<imageName>:<tag> from the configured Dockerfile.
func (m *Model) AddDockerBuildStage(imageName, tag string) (*Model, error) {
	tag = orDefault(tag, DefaultImageTag)
	if imageName == "" {
		imageName = m.config.Name
	}

	fullImage := ImageReference(m.config.RegistryPrefix, imageName, tag)
	if _, err := reference.ParseNormalizedNamed(fullImage); err != nil {
		return m, pgerrors.NewInvalidArgumentError(
			"Cannot add image build stage",
			fmt.Sprintf("'%s' is not a valid image reference", fullImage),
			"Use lowercase image names and tags made of letters, digits, '.', '_' and '-'",
			fmt.Errorf("invalid image reference %q: %w", fullImage, err),
		)
	}

	script := fmt.Sprintf("docker build -t %s -f %s . && docker push %s", fullImage, m.config.DockerfilePath, fullImage)
	stage := shellStage("docker-build", "build-and-push", script, DockerImage)
	stage.Steps[0].Env = []pipeline.EnvVar{{Name: "DOCKER_HOST", Value: DockerHost}}

	return m.AddStage(stage), nil
}

// AddDeployStage appends a deploy-to-<environment> stage applying the given
// manifests (relative to k8s/${ENVIRONMENT}/) into the configured namespace.
// Unknown environments are rejected and nothing is appended.
func (m *Model) AddDeployStage(environment string, resources []string) (*Model, error) {
	if !m.config.HasEnvironment(environment) {
		valid := strings.Join(m.config.Environments, ", ")
		return m, pgerrors.NewInvalidArgumentError(
			"Cannot add deploy stage",
			fmt.Sprintf("Environment '%s' is not one of the configured environments", environment),
			fmt.Sprintf("Use one of: %s", valid),
			fmt.Errorf("invalid environment %q: must be one of [%s]", environment, valid),
		)
	}
	if len(resources) == 0 {
		resources = DefaultDeployResources
	}

	stage := shellStage("deploy-to-"+environment, "deploy", DeployCommand(m.config.Namespace, resources), KubectlImage)
	stage.Steps[0].Env = []pipeline.EnvVar{{Name: EnvironmentVariable, Value: environment}}

	return m.AddStage(stage), nil
}

// ImageReference composes <prefix>/<name>:<tag>.
func ImageReference(prefix, name, tag string) string {
	return fmt.Sprintf("%s/%s:%s", strings.TrimSuffix(prefix, "/"), name, tag)
}

// DeployCommand is the kubectl apply line shared by every deploy stage.
func DeployCommand(namespace string, resources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "kubectl apply -n %s", namespace)
	for _, r := range resources {
		fmt.Fprintf(&b, " -f k8s/${%s}/%s", EnvironmentVariable, r)
	}
	return b.String()
}

func shellStage(stageName, stepName, script, image string) pipeline.Stage {
	return pipeline.Stage{
		Name: stageName,
		Steps: []pipeline.Step{{
			Name:    stepName,
			Image:   image,
			Command: []string{"sh", "-c", script},
		}},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
