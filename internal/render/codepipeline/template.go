package codepipeline

// Template is the subset of the CloudFormation template anatomy the pipeline
// stack uses. Map-valued sections serialize with sorted keys.
type Template struct {
	AWSTemplateFormatVersion string               `yaml:"AWSTemplateFormatVersion"`
	Description              string               `yaml:"Description"`
	Parameters               map[string]Parameter `yaml:"Parameters"`
	Resources                map[string]Resource  `yaml:"Resources"`
	Outputs                  map[string]Output    `yaml:"Outputs"`
}

type Parameter struct {
	Type        string `yaml:"Type"`
	Description string `yaml:"Description"`
	Default     string `yaml:"Default,omitempty"`
}

type Resource struct {
	Type       string `yaml:"Type"`
	Properties any    `yaml:"Properties"`
}

type Output struct {
	Description string `yaml:"Description"`
	Value       any    `yaml:"Value"`
}

// Intrinsic functions.

func Ref(name string) map[string]string {
	return map[string]string{"Ref": name}
}

func GetAtt(resource, attribute string) map[string][]string {
	return map[string][]string{"Fn::GetAtt": {resource, attribute}}
}

func Sub(s string) map[string]string {
	return map[string]string{"Fn::Sub": s}
}

type BucketProperties struct {
	BucketName              any                      `yaml:"BucketName"`
	VersioningConfiguration *VersioningConfiguration `yaml:"VersioningConfiguration,omitempty"`
}

type VersioningConfiguration struct {
	Status string `yaml:"Status"`
}

type RoleProperties struct {
	RoleName                 string         `yaml:"RoleName"`
	AssumeRolePolicyDocument PolicyDocument `yaml:"AssumeRolePolicyDocument"`
	Policies                 []Policy       `yaml:"Policies"`
}

type Policy struct {
	PolicyName     string         `yaml:"PolicyName"`
	PolicyDocument PolicyDocument `yaml:"PolicyDocument"`
}

type PolicyDocument struct {
	Version   string      `yaml:"Version"`
	Statement []Statement `yaml:"Statement"`
}

type Statement struct {
	Effect    string     `yaml:"Effect"`
	Principal *Principal `yaml:"Principal,omitempty"`
	Action    []string   `yaml:"Action"`
	Resource  any        `yaml:"Resource,omitempty"`
}

type Principal struct {
	Service string `yaml:"Service"`
}

type ProjectProperties struct {
	Name             string             `yaml:"Name"`
	Description      string             `yaml:"Description"`
	ServiceRole      any                `yaml:"ServiceRole"`
	Artifacts        ProjectArtifacts   `yaml:"Artifacts"`
	Environment      ProjectEnvironment `yaml:"Environment"`
	Source           ProjectSource      `yaml:"Source"`
	TimeoutInMinutes int                `yaml:"TimeoutInMinutes"`
}

type ProjectArtifacts struct {
	Type string `yaml:"Type"`
}

type ProjectEnvironment struct {
	Type                 string                `yaml:"Type"`
	ComputeType          string                `yaml:"ComputeType"`
	Image                string                `yaml:"Image"`
	PrivilegedMode       bool                  `yaml:"PrivilegedMode"`
	EnvironmentVariables []EnvironmentVariable `yaml:"EnvironmentVariables"`
}

type EnvironmentVariable struct {
	Name  string `yaml:"Name"`
	Value any    `yaml:"Value"`
}

type ProjectSource struct {
	Type      string `yaml:"Type"`
	BuildSpec string `yaml:"BuildSpec"`
}

type PipelineProperties struct {
	Name          string        `yaml:"Name"`
	RoleArn       any           `yaml:"RoleArn"`
	ArtifactStore ArtifactStore `yaml:"ArtifactStore"`
	Stages        []Stage       `yaml:"Stages"`
}

type ArtifactStore struct {
	Type     string `yaml:"Type"`
	Location any    `yaml:"Location"`
}

type Stage struct {
	Name    string   `yaml:"Name"`
	Actions []Action `yaml:"Actions"`
}

type Action struct {
	Name            string         `yaml:"Name"`
	ActionTypeID    ActionTypeID   `yaml:"ActionTypeId"`
	Configuration   map[string]any `yaml:"Configuration"`
	InputArtifacts  []Artifact     `yaml:"InputArtifacts,omitempty"`
	OutputArtifacts []Artifact     `yaml:"OutputArtifacts,omitempty"`
	RunOrder        int            `yaml:"RunOrder"`
}

type ActionTypeID struct {
	Category string `yaml:"Category"`
	Owner    string `yaml:"Owner"`
	Provider string `yaml:"Provider"`
	Version  string `yaml:"Version"`
}

type Artifact struct {
	Name string `yaml:"Name"`
}
