package blueprint

import (
	"slices"

	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

// Stage types accepted in a pipeline definition.
const (
	StageTest   = "test"
	StageBuild  = "build"
	StageDocker = "docker"
	StageDeploy = "deploy"
	StageCustom = "custom"
)

// Blueprint is the root of a pipeline definition file.
type Blueprint struct {
	APIVersion string   `yaml:"apiVersion" mapstructure:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" mapstructure:"kind" validate:"required,eq=Pipeline"`
	Metadata   Metadata `yaml:"metadata" mapstructure:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" mapstructure:"spec"`
}

// Metadata contains project-level metadata.
type Metadata struct {
	Name        string            `yaml:"name" mapstructure:"name" validate:"required"`
	Description string            `yaml:"description" mapstructure:"description"`
	Labels      map[string]string `yaml:"labels,omitempty" mapstructure:"labels"`
}

// Spec describes the project and the stages of its pipeline.
type Spec struct {
	Repository     Repository   `yaml:"repository" mapstructure:"repository"`
	Namespace      string       `yaml:"namespace" mapstructure:"namespace"`
	Registry       Registry     `yaml:"registry" mapstructure:"registry"`
	DockerfilePath string       `yaml:"dockerfile" mapstructure:"dockerfile"`
	ContainerPort  int          `yaml:"containerPort" mapstructure:"containerPort" validate:"omitempty,min=1,max=65535"`
	ClusterName    string       `yaml:"clusterName" mapstructure:"clusterName"`
	Environments   []string     `yaml:"environments" mapstructure:"environments"`
	Stages         []StageSpec  `yaml:"stages" mapstructure:"stages" validate:"dive"`
	Manifests      ManifestSpec `yaml:"manifests" mapstructure:"manifests"`
}

// Repository identifies the source repository. Empty fields are detected from
// the working copy when possible.
type Repository struct {
	URL    string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	Branch string `yaml:"branch" mapstructure:"branch"`
}

// Registry configures the image registry.
type Registry struct {
	Prefix     string `yaml:"prefix" mapstructure:"prefix"`
	Region     string `yaml:"region" mapstructure:"region"`
	AccountID  string `yaml:"accountId" mapstructure:"accountId" validate:"omitempty,len=12,numeric"`
	Repository string `yaml:"repository" mapstructure:"repository"`
}

// StageSpec is one entry of the stages list. Which fields apply depends on Type.
type StageSpec struct {
	Type        string          `yaml:"type" mapstructure:"type" validate:"required,oneof=test build docker deploy custom"`
	Name        string          `yaml:"name" mapstructure:"name" validate:"required_if=Type custom"`
	Command     string          `yaml:"command" mapstructure:"command"`
	Image       string          `yaml:"image" mapstructure:"image"`
	ImageName   string          `yaml:"imageName" mapstructure:"imageName"`
	Tag         string          `yaml:"tag" mapstructure:"tag"`
	Environment string          `yaml:"environment" mapstructure:"environment" validate:"required_if=Type deploy"`
	Resources   []string        `yaml:"resources" mapstructure:"resources"`
	Steps       []pipeline.Step `yaml:"steps" mapstructure:"steps" validate:"required_if=Type custom,dive"`
	RunAfter    string          `yaml:"runAfter" mapstructure:"runAfter"`
	Parallel    bool            `yaml:"parallel" mapstructure:"parallel"`
}

// ManifestSpec configures the Kubernetes manifests written per environment.
type ManifestSpec struct {
	ImageName string            `yaml:"imageName" mapstructure:"imageName"`
	Tag       string            `yaml:"tag" mapstructure:"tag"`
	Resources map[string]string `yaml:"resources" mapstructure:"resources"`
	Service   ServiceSpec       `yaml:"service" mapstructure:"service"`
}

type ServiceSpec struct {
	Port       int    `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	TargetPort int    `yaml:"targetPort" mapstructure:"targetPort" validate:"omitempty,min=1,max=65535"`
	Type       string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=ClusterIP NodePort LoadBalancer"`
}

// ProjectConfig maps the definition onto a project config. Unset fields stay
// empty so the session applies its defaults.
func (b *Blueprint) ProjectConfig() project.Config {
	s := b.Spec
	return project.Config{
		Name:           b.Metadata.Name,
		RepositoryURL:  s.Repository.URL,
		Branch:         s.Repository.Branch,
		Namespace:      s.Namespace,
		RegistryPrefix: s.Registry.Prefix,
		DockerfilePath: s.DockerfilePath,
		Registry: project.Registry{
			Region:     s.Registry.Region,
			AccountID:  s.Registry.AccountID,
			Repository: s.Registry.Repository,
		},
		Environments:  slices.Clone(s.Environments),
		ContainerPort: s.ContainerPort,
		ClusterName:   s.ClusterName,
	}
}
