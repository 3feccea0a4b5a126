// Package buildspec renders the CodeBuild build specifications used by the
// generated CodePipeline: one that builds and pushes the image, one that
// deploys it to the cluster.
package buildspec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"pipegen/internal/render"
	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

const (
	ImageName  = "buildspec"
	DeployName = "deploy-buildspec"

	Version = "0.2"

	ImageFilename  = "buildspec.yml"
	DeployFilename = "deploy-buildspec.yml"

	// ImageDetailFile records the pushed image URI for the deploy project.
	ImageDetailFile = "imageDetail.json"
	// ImagePlaceholder is replaced with the pushed image URI at deploy time.
	ImagePlaceholder = "IMAGE_PLACEHOLDER"

	TemplateDir = "k8s-templates"
	ManifestDir = "k8s"

	KubectlURL = "https://s3.us-west-2.amazonaws.com/amazon-eks/1.29.0/2024-01-04/bin/linux/amd64/kubectl"

	ClusterNameVariable = "EKS_CLUSTER_NAME"
	RegionVariable      = "AWS_REGION"
)

// Phase is an ordered list of shell commands.
type Phase struct {
	Commands []string `yaml:"commands"`
}

// Phases keeps CodeBuild's phase order; unused phases are omitted.
type Phases struct {
	Install   *Phase `yaml:"install,omitempty"`
	PreBuild  *Phase `yaml:"pre_build,omitempty"`
	Build     *Phase `yaml:"build,omitempty"`
	PostBuild *Phase `yaml:"post_build,omitempty"`
}

type Artifacts struct {
	Files []string `yaml:"files"`
}

// Spec is a CodeBuild buildspec document.
type Spec struct {
	Version   string     `yaml:"version"`
	Phases    Phases     `yaml:"phases"`
	Artifacts *Artifacts `yaml:"artifacts,omitempty"`
}

// Image builds the build-and-push spec for config.
func Image(config project.Config) Spec {
	registry := config.Registry
	region := registry.Region
	repository := registry.Repository

	return Spec{
		Version: Version,
		Phases: Phases{
			PreBuild: &Phase{Commands: []string{
				"echo Logging in to Amazon ECR...",
				fmt.Sprintf("aws ecr get-login-password --region %s | docker login --username AWS --password-stdin %s", region, registry.Host()),
				fmt.Sprintf("aws ecr describe-repositories --repository-names %s --region %s || aws ecr create-repository --repository-name %s --region %s", repository, region, repository, region),
				fmt.Sprintf("REPOSITORY_URI=%s", registry.RepositoryURI()),
				"COMMIT_HASH=$(echo $CODEBUILD_RESOLVED_SOURCE_VERSION | cut -c 1-7)",
				"IMAGE_TAG=${COMMIT_HASH:=latest}",
			}},
			Build: &Phase{Commands: []string{
				"echo Build started on `date`",
				fmt.Sprintf("docker build -t $REPOSITORY_URI:latest -f %s .", config.DockerfilePath),
				"docker tag $REPOSITORY_URI:latest $REPOSITORY_URI:$IMAGE_TAG",
			}},
			PostBuild: &Phase{Commands: []string{
				"echo Build completed on `date`",
				"docker push $REPOSITORY_URI:latest",
				"docker push $REPOSITORY_URI:$IMAGE_TAG",
				fmt.Sprintf(`printf '{"ImageURI":"%%s"}' $REPOSITORY_URI:$IMAGE_TAG > %s`, ImageDetailFile),
				fmt.Sprintf("mkdir -p %s", ManifestDir),
				fmt.Sprintf("envsubst < %s/deployment.yaml > %s/deployment.yaml", TemplateDir, ManifestDir),
				fmt.Sprintf("envsubst < %s/service.yaml > %s/service.yaml", TemplateDir, ManifestDir),
			}},
		},
		Artifacts: &Artifacts{Files: []string{
			ImageDetailFile,
			ManifestDir + "/deployment.yaml",
			ManifestDir + "/service.yaml",
		}},
	}
}

// Deploy builds the cluster deploy spec for config. The final phase only
// reports cluster state; its failures do not fail the build.
func Deploy(config project.Config) Spec {
	ns := config.Namespace

	return Spec{
		Version: Version,
		Phases: Phases{
			Install: &Phase{Commands: []string{
				"echo Installing kubectl...",
				fmt.Sprintf("curl -sSLo kubectl %s", KubectlURL),
				"chmod +x ./kubectl",
				"mv ./kubectl /usr/local/bin/kubectl",
			}},
			PreBuild: &Phase{Commands: []string{
				"echo Configuring cluster access...",
				fmt.Sprintf("aws eks update-kubeconfig --name $%s --region $%s", ClusterNameVariable, RegionVariable),
				fmt.Sprintf("IMAGE_URI=$(jq -r '.ImageURI' %s)", ImageDetailFile),
				fmt.Sprintf(`sed -i "s|%s|$IMAGE_URI|g" %s/deployment.yaml`, ImagePlaceholder, ManifestDir),
			}},
			Build: &Phase{Commands: []string{
				"echo Deploying to cluster...",
				fmt.Sprintf("kubectl apply -f %s/deployment.yaml -n %s", ManifestDir, ns),
				fmt.Sprintf("kubectl apply -f %s/service.yaml -n %s", ManifestDir, ns),
			}},
			PostBuild: &Phase{Commands: []string{
				"echo Deployment completed",
				fmt.Sprintf("kubectl get pods -n %s -l app=%s || true", ns, config.Name),
				fmt.Sprintf("kubectl get svc -n %s -l app=%s || true", ns, config.Name),
			}},
		},
	}
}

// Marshal serializes a spec as a YAML document.
func Marshal(spec Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return nil, fmt.Errorf("failed to encode buildspec: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode buildspec: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageRenderer writes the build-and-push spec.
type ImageRenderer struct{}

func NewImageRenderer() *ImageRenderer { return &ImageRenderer{} }

func (r *ImageRenderer) Name() string     { return ImageName }
func (r *ImageRenderer) Filename() string { return ImageFilename }

func (r *ImageRenderer) Render(config project.Config, _ []pipeline.Stage) (render.Artifact, error) {
	content, err := Marshal(Image(config))
	if err != nil {
		return render.Artifact{}, err
	}
	return render.Artifact{Path: ImageFilename, Content: content}, nil
}

// DeployRenderer writes the cluster deploy spec.
type DeployRenderer struct{}

func NewDeployRenderer() *DeployRenderer { return &DeployRenderer{} }

func (r *DeployRenderer) Name() string     { return DeployName }
func (r *DeployRenderer) Filename() string { return DeployFilename }

func (r *DeployRenderer) Render(config project.Config, _ []pipeline.Stage) (render.Artifact, error) {
	content, err := Marshal(Deploy(config))
	if err != nil {
		return render.Artifact{}, err
	}
	return render.Artifact{Path: DeployFilename, Content: content}, nil
}
