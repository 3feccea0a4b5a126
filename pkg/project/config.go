package project

import (
	"fmt"
	"slices"
)

const (
	DefaultName           = "my-app"
	DefaultBranch         = "main"
	DefaultNamespace      = "default"
	DefaultDockerfilePath = "./Dockerfile"
	DefaultRegion         = "us-east-1"
	DefaultContainerPort  = 8080

	// AccountIDVariable stands in for the account id in shell commands when no
	// account id is configured. CodeBuild projects export it.
	AccountIDVariable = "${AWS_ACCOUNT_ID}"
)

// DefaultEnvironments is the known-environment set used when none is configured.
var DefaultEnvironments = []string{"dev", "staging", "prod"}

// Registry describes the container image registry the pipelines push to.
type Registry struct {
	Region     string `validate:"required"`
	AccountID  string `validate:"omitempty,len=12,numeric"`
	Repository string `validate:"required"`
}

// Host returns the ECR registry host for this account and region.
func (r Registry) Host() string {
	account := r.AccountID
	if account == "" {
		account = AccountIDVariable
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", account, r.Region)
}

// RepositoryURI is the fully-qualified image repository, without a tag.
func (r Registry) RepositoryURI() string {
	return r.Host() + "/" + r.Repository
}

// Config is the project identity and registry configuration of one generation
// session. It is a value type: a session keeps its own copy and never mutates it.
type Config struct {
	Name           string   `validate:"required,max=63,dns_rfc1035_label"`
	RepositoryURL  string   `validate:"omitempty,url"`
	Branch         string   `validate:"required"`
	Namespace      string   `validate:"required,max=63,dns_rfc1035_label"`
	RegistryPrefix string   `validate:"required"`
	DockerfilePath string   `validate:"required"`
	Registry       Registry `validate:"required"`
	Environments   []string `validate:"required,min=1,unique,dive,required,dns_rfc1035_label"`
	ContainerPort  int      `validate:"min=1,max=65535"`
	ClusterName    string   `validate:"required"`
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.DockerfilePath == "" {
		c.DockerfilePath = DefaultDockerfilePath
	}
	if c.Registry.Region == "" {
		c.Registry.Region = DefaultRegion
	}
	if c.Registry.Repository == "" {
		c.Registry.Repository = c.Name + "-repo"
	}
	if c.RegistryPrefix == "" {
		if c.Registry.AccountID != "" {
			c.RegistryPrefix = c.Registry.Host()
		} else {
			c.RegistryPrefix = c.Name
		}
	}
	if len(c.Environments) == 0 {
		c.Environments = slices.Clone(DefaultEnvironments)
	} else {
		c.Environments = slices.Clone(c.Environments)
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = DefaultContainerPort
	}
	if c.ClusterName == "" {
		c.ClusterName = c.Name + "-cluster"
	}
	return c
}

// HasEnvironment reports whether env is one of the known deployable environments.
func (c Config) HasEnvironment(env string) bool {
	return slices.Contains(c.Environments, env)
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	c.Environments = slices.Clone(c.Environments)
	return c
}
