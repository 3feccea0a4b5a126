// Package jenkins renders the stage model into a declarative Jenkinsfile that
// runs on a Kubernetes pod agent.
package jenkins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"

	pgerrors "pipegen/internal/errors"
	"pipegen/internal/render"
	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

const (
	Name     = "jenkins"
	Filename = "Jenkinsfile"

	scriptDelimiter = `"""`
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const preamble = `pipeline {
    agent {
        kubernetes {
            yaml """
apiVersion: v1
kind: Pod
spec:
  containers:
  - name: jnlp
    image: jenkins/inbound-agent:latest
  - name: docker
    image: docker:24-dind
    securityContext:
      privileged: true
    volumeMounts:
    - name: docker-sock
      mountPath: /var/run/docker.sock
  - name: kubectl
    image: bitnami/kubectl:latest
    command:
    - cat
    tty: true
  volumes:
  - name: docker-sock
    hostPath:
      path: /var/run/docker.sock
"""
        }
    }

    environment {
        PROJECT_NAME = '{{name}}'
        REGISTRY = '{{registry}}'
        NAMESPACE = '{{namespace}}'
        BRANCH = '{{branch}}'
    }

    stages {
        stage('Checkout') {
            steps {
                checkout scm
            }
        }
`

const stageBlock = `
        stage('{{name}}') {
{{environment}}            steps {
                container('{{container}}') {
                    sh """
                        {{script}}
                    """
                }
            }
        }
`

const postamble = `    }

    post {
        always {
            cleanWs()
        }
        success {
            echo 'Pipeline completed successfully!'
        }
        failure {
            echo 'Pipeline failed!'
        }
    }
}
`

// Renderer implements render.Renderer for Jenkins.
type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string     { return Name }
func (r *Renderer) Filename() string { return Filename }

func (r *Renderer) Render(config project.Config, stages []pipeline.Stage) (render.Artifact, error) {
	script, err := Generate(config, stages)
	if err != nil {
		return render.Artifact{}, err
	}
	return render.Artifact{Path: Filename, Content: []byte(script)}, nil
}

// Generate renders the Jenkinsfile. Each stage becomes one block built from its
// single step: the step image selects the pod container and the sh -c script
// becomes the shell body. Stages of any other shape are rejected.
func Generate(config project.Config, stages []pipeline.Stage) (string, error) {
	for i, stage := range stages {
		if err := Validate(stage); err != nil {
			return "", fmt.Errorf("stage %d: %w", i+1, err)
		}
	}

	var b strings.Builder
	b.WriteString(fasttemplate.ExecuteString(preamble, "{{", "}}", map[string]interface{}{
		"name":      config.Name,
		"registry":  config.RegistryPrefix,
		"namespace": config.Namespace,
		"branch":    config.Branch,
	}))

	for _, stage := range stages {
		step := stage.Steps[0]
		b.WriteString(fasttemplate.ExecuteString(stageBlock, "{{", "}}", map[string]interface{}{
			"name":        stage.Name,
			"environment": environmentBlock(step.Env),
			"container":   ContainerName(step.Image),
			"script":      step.Command[2],
		}))
	}

	b.WriteString(postamble)
	return b.String(), nil
}

// Validate reports whether stage can be expressed as a Jenkins stage block.
func Validate(stage pipeline.Stage) error {
	fail := func(cause string) error {
		return pgerrors.NewStageError(
			fmt.Sprintf("Cannot render stage '%s' for Jenkins", stage.Name),
			cause,
			"Author Jenkins stages as a single step whose command is [sh, -c, <script>]",
			fmt.Errorf("stage %q: %s", stage.Name, cause),
		)
	}

	switch {
	case stage.Name == "":
		return fail("stage has no name")
	case len(stage.Steps) == 0:
		return fail("stage has no steps")
	case len(stage.Steps) > 1:
		return fail(fmt.Sprintf("stage has %d steps, only one is supported", len(stage.Steps)))
	}

	step := stage.Steps[0]
	if len(step.Command) != 3 || step.Command[0] != "sh" || step.Command[1] != "-c" {
		return fail(fmt.Sprintf("command %q is not of the form [sh, -c, <script>]", step.Command))
	}
	if strings.Contains(step.Command[2], scriptDelimiter) {
		return fail("script contains the Groovy triple-quote delimiter")
	}
	if strings.Contains(stage.Name, "'") {
		return fail("stage name contains a single quote")
	}
	if ContainerName(step.Image) == "" {
		return fail(fmt.Sprintf("image %q does not name a container", step.Image))
	}
	for _, env := range step.Env {
		if !envNamePattern.MatchString(env.Name) {
			return fail(fmt.Sprintf("environment variable name %q is not a valid identifier", env.Name))
		}
		if strings.ContainsAny(env.Value, "'\\\n") {
			return fail(fmt.Sprintf("environment variable %s has a value with a quote, backslash or newline", env.Name))
		}
	}
	return nil
}

// environmentBlock renders step variables as a stage-level environment
// directive so the shell body can reference them.
func environmentBlock(env []pipeline.EnvVar) string {
	if len(env) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("            environment {\n")
	for _, e := range env {
		fmt.Fprintf(&b, "                %s = '%s'\n", e.Name, e.Value)
	}
	b.WriteString("            }\n")
	return b.String()
}

// ContainerName derives the pod container a step runs in: the image name up to
// the first colon, reduced to its last path segment.
func ContainerName(image string) string {
	name, _, _ := strings.Cut(image, ":")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
