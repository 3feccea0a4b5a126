package codepipeline

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pipegen/internal/render/buildspec"
	"pipegen/internal/stages"
	"pipegen/pkg/project"
)

func testConfig() project.Config {
	return project.Config{
		Name:          "shop",
		RepositoryURL: "https://github.com/acme/shop.git",
		Branch:        "release",
		Namespace:     "apps",
		Registry: project.Registry{
			Region:    "eu-west-1",
			AccountID: "123456789012",
		},
	}.WithDefaults()
}

func pipelineProps(t *testing.T, tpl Template) PipelineProperties {
	t.Helper()
	res, ok := tpl.Resources[PipelineResource]
	require.True(t, ok, "pipeline resource missing")
	props, ok := res.Properties.(PipelineProperties)
	require.True(t, ok, "unexpected pipeline properties type %T", res.Properties)
	return props
}

func stageNames(props PipelineProperties) []string {
	var out []string
	for _, s := range props.Stages {
		out = append(out, s.Name)
	}
	return out
}

func TestGenerate_Resources(t *testing.T) {
	tpl, err := New(nil).Generate(testConfig())
	require.NoError(t, err)

	expected := map[string]string{
		ArtifactBucket:   "AWS::S3::Bucket",
		CodeBuildRole:    "AWS::IAM::Role",
		CodePipelineRole: "AWS::IAM::Role",
		BuildProject:     "AWS::CodeBuild::Project",
		DeployProject:    "AWS::CodeBuild::Project",
		PipelineResource: "AWS::CodePipeline::Pipeline",
	}
	assert.Len(t, tpl.Resources, len(expected))
	for name, typ := range expected {
		assert.Equal(t, typ, tpl.Resources[name].Type, name)
	}
	assert.Equal(t, FormatVersion, tpl.AWSTemplateFormatVersion)
	assert.Equal(t, "https://eu-west-1.console.aws.amazon.com/codesuite/codepipeline/pipelines/shop-pipeline/view?region=eu-west-1",
		tpl.Outputs["PipelineUrl"].Value)
}

func TestGenerate_StagesIgnoreStageModel(t *testing.T) {
	config := testConfig()
	renderer := New(nil)

	empty, err := renderer.Render(config, nil)
	require.NoError(t, err)

	model := stages.NewModel(config, nil)
	model.AddTestStage("", "").AddBuildStage("", "")
	_, err = model.AddDeployStage("dev", nil)
	require.NoError(t, err)
	populated, err := renderer.Render(config, model.Stages())
	require.NoError(t, err)

	assert.Equal(t, empty.Content, populated.Content)

	tpl, err := renderer.Generate(config)
	require.NoError(t, err)
	assert.Equal(t, []string{"Source", "Build", "Deploy"}, stageNames(pipelineProps(t, tpl)))
}

func TestGenerate_ArtifactHandOff(t *testing.T) {
	tpl, err := New(nil).Generate(testConfig())
	require.NoError(t, err)
	props := pipelineProps(t, tpl)

	source := props.Stages[0].Actions[0]
	assert.Equal(t, "CodeStarSourceConnection", source.ActionTypeID.Provider)
	assert.Equal(t, "acme/shop", source.Configuration["FullRepositoryId"])
	assert.Equal(t, "release", source.Configuration["BranchName"])
	assert.Equal(t, []Artifact{{Name: SourceArtifact}}, source.OutputArtifacts)

	build := props.Stages[1].Actions[0]
	assert.Equal(t, Ref(BuildProject), build.Configuration["ProjectName"])
	assert.Equal(t, []Artifact{{Name: SourceArtifact}}, build.InputArtifacts)
	assert.Equal(t, []Artifact{{Name: BuildArtifact}}, build.OutputArtifacts)

	deploy := props.Stages[2].Actions[0]
	assert.Equal(t, Ref(DeployProject), deploy.Configuration["ProjectName"])
	assert.Equal(t, []Artifact{{Name: BuildArtifact}}, deploy.InputArtifacts)

	assert.Equal(t, Ref(ArtifactBucket), props.ArtifactStore.Location)
	assert.Equal(t, GetAtt(CodePipelineRole, "Arn"), props.RoleArn)
}

func TestGenerate_ProjectsEmbedBuildSpecs(t *testing.T) {
	config := testConfig()
	tpl, err := New(nil).Generate(config)
	require.NoError(t, err)

	imageSpec, err := buildspec.Marshal(buildspec.Image(config))
	require.NoError(t, err)
	deploySpec, err := buildspec.Marshal(buildspec.Deploy(config))
	require.NoError(t, err)

	build := tpl.Resources[BuildProject].Properties.(ProjectProperties)
	assert.Equal(t, string(imageSpec), build.Source.BuildSpec)
	assert.True(t, build.Environment.PrivilegedMode)

	deploy := tpl.Resources[DeployProject].Properties.(ProjectProperties)
	assert.Equal(t, string(deploySpec), deploy.Source.BuildSpec)
	assert.Contains(t, deploy.Environment.EnvironmentVariables, EnvironmentVariable{Name: "EKS_CLUSTER_NAME", Value: Ref(ClusterParameter)})
	assert.Equal(t, "shop-cluster", tpl.Parameters[ClusterParameter].Default)
}

func TestGenerate_RolePolicies(t *testing.T) {
	tpl, err := New(nil).Generate(testConfig())
	require.NoError(t, err)

	out, err := Marshal(tpl)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "arn:aws:ecr:eu-west-1:123456789012:repository/shop-repo")
	assert.Contains(t, text, "arn:aws:s3:::shop-pipeline-artifacts-${AWS::AccountId}/*")
	assert.Contains(t, text, "codebuild.amazonaws.com")
	assert.Contains(t, text, "codepipeline.amazonaws.com")
	assert.Contains(t, text, "codebuild:StartBuild")
}

func TestGenerate_NoAccountUsesPseudoParameter(t *testing.T) {
	config := project.Config{Name: "shop", RepositoryURL: "https://github.com/acme/shop"}.WithDefaults()
	tpl, err := New(nil).Generate(config)
	require.NoError(t, err)

	out, err := Marshal(tpl)
	require.NoError(t, err)
	assert.Contains(t, string(out), "arn:aws:ecr:us-east-1:${AWS::AccountId}:repository/shop-repo")
}

func TestMarshal_Deterministic(t *testing.T) {
	renderer := New(nil)
	first, err := renderer.Render(testConfig(), nil)
	require.NoError(t, err)
	second, err := renderer.Render(testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, Filename, first.Path)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(first.Content, &decoded))
	assert.Contains(t, decoded, "Resources")
	assert.True(t, strings.HasPrefix(string(first.Content), "AWSTemplateFormatVersion: "))
	assert.Equal(t, FormatVersion, decoded["AWSTemplateFormatVersion"])
}

func TestRepositoryID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		ok       bool
	}{
		{"https://github.com/acme/shop.git", "acme/shop", true},
		{"https://github.com/acme/shop", "acme/shop", true},
		{"git@github.com:acme/shop.git", "acme/shop", true},
		{"https://www.github.com/acme/shop/", "acme/shop", true},
		{"https://gitlab.com/acme/shop.git", "https://gitlab.com/acme/shop.git", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := RepositoryID(tt.url)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("RepositoryID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestGenerate_WarnsOnUnrecognizedRepositoryURL(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	config := testConfig()
	config.RepositoryURL = "https://gitlab.com/acme/shop.git"

	tpl, err := New(logger).Generate(config)
	require.NoError(t, err)

	source := pipelineProps(t, tpl).Stages[0].Actions[0]
	assert.Equal(t, "https://gitlab.com/acme/shop.git", source.Configuration["FullRepositoryId"])
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "gitlab.com")
}
