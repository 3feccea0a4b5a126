package pipeline

// EnvVar is a single name/value pair exported into a step's container.
type EnvVar struct {
	Name  string `yaml:"name" mapstructure:"name" validate:"required"`
	Value string `yaml:"value" mapstructure:"value"`
}

// Step is one containerized unit of execution within a Stage.
type Step struct {
	Name    string   `yaml:"name" mapstructure:"name" validate:"required"`
	Image   string   `yaml:"image" mapstructure:"image" validate:"required"`
	Command []string `yaml:"command" mapstructure:"command" validate:"required,min=1"`
	Env     []EnvVar `yaml:"env,omitempty" mapstructure:"env" validate:"dive"`
}

// Stage is a named, ordered unit of pipeline work.
// RunAfter and Parallel are carried for consumers but no renderer reorders on them.
type Stage struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Steps    []Step `yaml:"steps" mapstructure:"steps"`
	RunAfter string `yaml:"runAfter,omitempty" mapstructure:"runAfter"`
	Parallel bool   `yaml:"parallel,omitempty" mapstructure:"parallel"`
}

// Clone returns a deep copy so callers cannot mutate a model's stages through
// shared slices.
func (s Stage) Clone() Stage {
	out := s
	out.Steps = make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		cp := step
		cp.Command = append([]string(nil), step.Command...)
		if step.Env != nil {
			cp.Env = append([]EnvVar(nil), step.Env...)
		}
		out.Steps[i] = cp
	}
	return out
}

// CloneAll deep-copies a stage list.
func CloneAll(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = s.Clone()
	}
	return out
}
