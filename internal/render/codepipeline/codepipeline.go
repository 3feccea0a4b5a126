// Package codepipeline renders a CloudFormation stack describing an AWS
// CodePipeline with Source, Build and Deploy stages backed by two CodeBuild
// projects.
package codepipeline

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"gopkg.in/yaml.v3"

	"pipegen/internal/render"
	"pipegen/internal/render/buildspec"
	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

const (
	Name     = "codepipeline"
	Filename = "aws-codepipeline.yaml"

	FormatVersion = "2010-09-09"
	PolicyVersion = "2012-10-17"

	// HostingToken marks where the owner/repo part of a repository URL begins.
	HostingToken = "github.com"

	CodeBuildImage = "aws/codebuild/standard:7.0"
	ComputeType    = "BUILD_GENERAL1_SMALL"

	SourceArtifact = "SourceOutput"
	BuildArtifact  = "BuildOutput"

	accountIDPseudo = "${AWS::AccountId}"
)

// Logical resource names.
const (
	ArtifactBucket      = "ArtifactBucket"
	CodeBuildRole       = "CodeBuildServiceRole"
	CodePipelineRole    = "CodePipelineServiceRole"
	BuildProject        = "BuildProject"
	DeployProject       = "DeployProject"
	PipelineResource    = "Pipeline"
	ConnectionParameter = "ConnectionArn"
	ClusterParameter    = "EksClusterName"
)

// Renderer implements render.Renderer for the CloudFormation pipeline stack.
// It never reads the stage model.
type Renderer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

func (r *Renderer) Name() string     { return Name }
func (r *Renderer) Filename() string { return Filename }

func (r *Renderer) Render(config project.Config, _ []pipeline.Stage) (render.Artifact, error) {
	tpl, err := r.Generate(config)
	if err != nil {
		return render.Artifact{}, err
	}
	content, err := Marshal(tpl)
	if err != nil {
		return render.Artifact{}, err
	}
	return render.Artifact{Path: Filename, Content: content}, nil
}

// Generate builds the stack template for config.
func (r *Renderer) Generate(config project.Config) (Template, error) {
	repoID, ok := RepositoryID(config.RepositoryURL)
	if !ok {
		r.logger.Warn("Repository URL is not a recognized hosting URL, using it unmodified as the repository id",
			"repositoryUrl", config.RepositoryURL, "token", HostingToken)
	}

	imageSpec, err := buildspec.Marshal(buildspec.Image(config))
	if err != nil {
		return Template{}, err
	}
	deploySpec, err := buildspec.Marshal(buildspec.Deploy(config))
	if err != nil {
		return Template{}, err
	}

	names := resourceNames(config)

	return Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              fmt.Sprintf("CI/CD pipeline for %s", config.Name),
		Parameters: map[string]Parameter{
			ConnectionParameter: {
				Type:        "String",
				Description: "ARN of the CodeStar connection to the source repository",
			},
			ClusterParameter: {
				Type:        "String",
				Description: "Name of the EKS cluster to deploy to",
				Default:     config.ClusterName,
			},
		},
		Resources: map[string]Resource{
			ArtifactBucket: {
				Type: "AWS::S3::Bucket",
				Properties: BucketProperties{
					BucketName:              Sub(names.bucket),
					VersioningConfiguration: &VersioningConfiguration{Status: "Enabled"},
				},
			},
			CodeBuildRole:    codeBuildRole(config, names),
			CodePipelineRole: codePipelineRole(config, names),
			BuildProject: buildProject(names.build, fmt.Sprintf("Builds and pushes the %s image", config.Name), true, string(imageSpec), []EnvironmentVariable{
				{Name: "AWS_DEFAULT_REGION", Value: config.Registry.Region},
				{Name: "AWS_ACCOUNT_ID", Value: Ref("AWS::AccountId")},
				{Name: "IMAGE_REPO_NAME", Value: config.Registry.Repository},
				{Name: "PROJECT_NAME", Value: config.Name},
				{Name: "NAMESPACE", Value: config.Namespace},
			}),
			DeployProject: buildProject(names.deploy, fmt.Sprintf("Deploys %s to the cluster", config.Name), false, string(deploySpec), []EnvironmentVariable{
				{Name: buildspec.ClusterNameVariable, Value: Ref(ClusterParameter)},
				{Name: buildspec.RegionVariable, Value: config.Registry.Region},
			}),
			PipelineResource: {
				Type: "AWS::CodePipeline::Pipeline",
				Properties: PipelineProperties{
					Name:    names.pipeline,
					RoleArn: GetAtt(CodePipelineRole, "Arn"),
					ArtifactStore: ArtifactStore{
						Type:     "S3",
						Location: Ref(ArtifactBucket),
					},
					Stages: pipelineStages(repoID, config.Branch),
				},
			},
		},
		Outputs: map[string]Output{
			"PipelineUrl": {
				Description: "Console URL of the pipeline",
				Value:       ConsoleURL(config.Registry.Region, names.pipeline),
			},
			"ArtifactBucketName": {
				Description: "Bucket holding pipeline artifacts",
				Value:       Ref(ArtifactBucket),
			},
		},
	}, nil
}

// RepositoryID strips everything up to and including the hosting token from a
// repository URL, leaving owner/repo. URLs without the token come back
// unchanged with ok set to false.
func RepositoryID(repositoryURL string) (id string, ok bool) {
	idx := strings.Index(repositoryURL, HostingToken)
	if idx < 0 {
		return repositoryURL, false
	}
	id = repositoryURL[idx+len(HostingToken):]
	id = strings.TrimLeft(id, ":/")
	id = strings.TrimSuffix(strings.TrimSuffix(id, "/"), ".git")
	return id, true
}

// ConsoleURL is where the pipeline appears in the AWS console.
func ConsoleURL(region, pipelineName string) string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com/codesuite/codepipeline/pipelines/%s/view?region=%s", region, pipelineName, region)
}

// Marshal serializes a template as a YAML document.
func Marshal(tpl Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tpl); err != nil {
		return nil, fmt.Errorf("failed to encode pipeline template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode pipeline template: %w", err)
	}
	return buf.Bytes(), nil
}

type names struct {
	bucket   string
	build    string
	deploy   string
	pipeline string
}

func resourceNames(config project.Config) names {
	return names{
		bucket:   fmt.Sprintf("%s-pipeline-artifacts-%s", config.Name, accountIDPseudo),
		build:    config.Name + "-build",
		deploy:   config.Name + "-deploy",
		pipeline: config.Name + "-pipeline",
	}
}

func pipelineStages(repoID, branch string) []Stage {
	codeBuild := ActionTypeID{Category: "Build", Owner: "AWS", Provider: "CodeBuild", Version: "1"}

	return []Stage{
		{
			Name: "Source",
			Actions: []Action{{
				Name:         "Source",
				ActionTypeID: ActionTypeID{Category: "Source", Owner: "AWS", Provider: "CodeStarSourceConnection", Version: "1"},
				Configuration: map[string]any{
					"ConnectionArn":        Ref(ConnectionParameter),
					"FullRepositoryId":     repoID,
					"BranchName":           branch,
					"OutputArtifactFormat": "CODE_ZIP",
				},
				OutputArtifacts: []Artifact{{Name: SourceArtifact}},
				RunOrder:        1,
			}},
		},
		{
			Name: "Build",
			Actions: []Action{{
				Name:            "BuildAndPush",
				ActionTypeID:    codeBuild,
				Configuration:   map[string]any{"ProjectName": Ref(BuildProject)},
				InputArtifacts:  []Artifact{{Name: SourceArtifact}},
				OutputArtifacts: []Artifact{{Name: BuildArtifact}},
				RunOrder:        1,
			}},
		},
		{
			Name: "Deploy",
			Actions: []Action{{
				Name:           "DeployToCluster",
				ActionTypeID:   codeBuild,
				Configuration:  map[string]any{"ProjectName": Ref(DeployProject)},
				InputArtifacts: []Artifact{{Name: BuildArtifact}},
				RunOrder:       1,
			}},
		},
	}
}

func buildProject(name, description string, privileged bool, spec string, env []EnvironmentVariable) Resource {
	return Resource{
		Type: "AWS::CodeBuild::Project",
		Properties: ProjectProperties{
			Name:        name,
			Description: description,
			ServiceRole: GetAtt(CodeBuildRole, "Arn"),
			Artifacts:   ProjectArtifacts{Type: "CODEPIPELINE"},
			Environment: ProjectEnvironment{
				Type:                 "LINUX_CONTAINER",
				ComputeType:          ComputeType,
				Image:                CodeBuildImage,
				PrivilegedMode:       privileged,
				EnvironmentVariables: env,
			},
			Source: ProjectSource{
				Type:      "CODEPIPELINE",
				BuildSpec: spec,
			},
			TimeoutInMinutes: 30,
		},
	}
}

func codeBuildRole(config project.Config, n names) Resource {
	return Resource{
		Type: "AWS::IAM::Role",
		Properties: RoleProperties{
			RoleName:                 config.Name + "-codebuild-role",
			AssumeRolePolicyDocument: assumeRole("codebuild.amazonaws.com"),
			Policies: []Policy{{
				PolicyName: "CodeBuildPolicy",
				PolicyDocument: PolicyDocument{
					Version: PolicyVersion,
					Statement: []Statement{
						{
							Effect: "Allow",
							Action: []string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
							Resource: Sub(resourceARN(config, "logs", config.Registry.Region,
								fmt.Sprintf("log-group:/aws/codebuild/%s-*", config.Name))),
						},
						ecrAuthStatement(),
						ecrStatement(config),
						artifactStatement(n),
						{
							Effect:   "Allow",
							Action:   []string{"eks:DescribeCluster"},
							Resource: "*",
						},
					},
				},
			}},
		},
	}
}

func codePipelineRole(config project.Config, n names) Resource {
	return Resource{
		Type: "AWS::IAM::Role",
		Properties: RoleProperties{
			RoleName:                 config.Name + "-codepipeline-role",
			AssumeRolePolicyDocument: assumeRole("codepipeline.amazonaws.com"),
			Policies: []Policy{{
				PolicyName: "CodePipelinePolicy",
				PolicyDocument: PolicyDocument{
					Version: PolicyVersion,
					Statement: []Statement{
						{
							Effect:   "Allow",
							Action:   []string{"codebuild:BatchGetBuilds", "codebuild:StartBuild"},
							Resource: "*",
						},
						{
							Effect:   "Allow",
							Action:   []string{"codestar-connections:UseConnection"},
							Resource: Ref(ConnectionParameter),
						},
						ecrStatement(config),
						artifactStatement(n),
					},
				},
			}},
		},
	}
}

func assumeRole(service string) PolicyDocument {
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{{
			Effect:    "Allow",
			Principal: &Principal{Service: service},
			Action:    []string{"sts:AssumeRole"},
		}},
	}
}

func ecrAuthStatement() Statement {
	return Statement{
		Effect:   "Allow",
		Action:   []string{"ecr:GetAuthorizationToken"},
		Resource: "*",
	}
}

func ecrStatement(config project.Config) Statement {
	return Statement{
		Effect: "Allow",
		Action: []string{
			"ecr:BatchCheckLayerAvailability",
			"ecr:BatchGetImage",
			"ecr:CompleteLayerUpload",
			"ecr:CreateRepository",
			"ecr:DescribeRepositories",
			"ecr:GetDownloadUrlForLayer",
			"ecr:InitiateLayerUpload",
			"ecr:PutImage",
			"ecr:UploadLayerPart",
		},
		Resource: Sub(resourceARN(config, "ecr", config.Registry.Region, "repository/"+config.Registry.Repository)),
	}
}

func artifactStatement(n names) Statement {
	return Statement{
		Effect: "Allow",
		Action: []string{"s3:GetBucketLocation", "s3:GetObject", "s3:GetObjectVersion", "s3:PutObject"},
		Resource: []any{
			Sub(arn.ARN{Partition: "aws", Service: "s3", Resource: n.bucket}.String()),
			Sub(arn.ARN{Partition: "aws", Service: "s3", Resource: n.bucket + "/*"}.String()),
		},
	}
}

// resourceARN builds a regional ARN in the configured account, falling back to
// the AWS::AccountId pseudo parameter.
func resourceARN(config project.Config, service, region, resource string) string {
	account := config.Registry.AccountID
	if account == "" {
		account = accountIDPseudo
	}
	return arn.ARN{
		Partition: "aws",
		Service:   service,
		Region:    region,
		AccountID: account,
		Resource:  resource,
	}.String()
}
