package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	pgerrors "pipegen/internal/errors"
	"pipegen/pkg/blueprint"
	"pipegen/pkg/project"
)

// EnvPrefix prefixes environment variables that override definition keys,
// e.g. PIPEGEN_SPEC_NAMESPACE overrides spec.namespace.
const EnvPrefix = "PIPEGEN"

// envKeys are bound explicitly so they can be overridden even when the
// definition file omits them.
var envKeys = []string{
	"metadata.name",
	"spec.namespace",
	"spec.repository.url",
	"spec.repository.branch",
	"spec.registry.prefix",
	"spec.registry.region",
	"spec.registry.accountid",
	"spec.registry.repository",
	"spec.clustername",
}

// Parse reads and validates a pipeline definition YAML file.
func Parse(filePath string) (*blueprint.Blueprint, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, definitionNotFound(filePath, err)
	}

	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment override for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, definitionNotFound(filePath, err)
		}
		return nil, pgerrors.NewParseError(
			"Failed to read pipeline definition",
			err.Error(),
			"Check that the file is valid YAML",
			fmt.Errorf("failed to read pipeline definition: %w", err),
		)
	}

	var bp blueprint.Blueprint
	if err := v.Unmarshal(&bp); err != nil {
		return nil, pgerrors.NewParseError(
			"Failed to parse pipeline definition",
			err.Error(),
			"Check field names and value types against the definition format",
			fmt.Errorf("failed to parse pipeline definition - malformed YAML: %w", err),
		)
	}

	if err := project.ValidateStruct(&bp); err != nil {
		return nil, pgerrors.NewConfigError(
			"Invalid pipeline definition",
			err.Error(),
			"Fix the listed fields and try again",
			err,
		)
	}

	return &bp, nil
}

func definitionNotFound(filePath string, err error) error {
	return pgerrors.NewDefinitionError(
		"Pipeline definition not found",
		fmt.Sprintf("No file at %s", filePath),
		"Pass an existing definition with --file",
		fmt.Errorf("pipeline definition not found: %s: %w", filePath, err),
	)
}
