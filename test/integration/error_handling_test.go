package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles cmd/pipegen into dir and returns the binary path.
func buildCLI(t *testing.T, dir string) string {
	t.Helper()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	binaryPath := filepath.Join(dir, "pipegen")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/pipegen")
	buildCmd.Dir = originalDir
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI binary: %v\n%s", err, out)
	}
	return binaryPath
}

func TestCLI_ErrorHandling_DefinitionNotFound(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	cmd := exec.Command(binaryPath, "generate", "-f", filepath.Join(tempDir, "missing.yaml"), "-o", filepath.Join(tempDir, "out"))
	cmd.Env = append(os.Environ(), "PIPEGEN_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}

	outputStr := string(output)
	expectedParts := []string{
		"Error:",
		"Pipeline definition not found",
		"Cause:",
		"Suggestion:",
		"--file",
	}
	for _, part := range expectedParts {
		if !strings.Contains(outputStr, part) {
			t.Errorf("Expected output to contain %q, but got: %s", part, outputStr)
		}
	}

	logFile := filepath.Join(tempDir, "pipegen.log")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Expected pipegen.log to be created")
	}
}

func TestCLI_ErrorHandling_MalformedDefinition(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	invalidYAML := `invalid: yaml: content:
  - this is not valid
    yaml: structure`
	definition := filepath.Join(tempDir, "pipegen.yaml")
	if err := os.WriteFile(definition, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to create definition file: %v", err)
	}

	cmd := exec.Command(binaryPath, "validate", "-f", definition)
	cmd.Env = append(os.Environ(), "PIPEGEN_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	if !strings.Contains(string(output), "Failed to read pipeline definition") {
		t.Errorf("Expected parse error output, but got: %s", output)
	}
}

func TestCLI_GenerateWritesArtifacts(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	definition := filepath.Join(tempDir, "pipegen.yaml")
	content := `apiVersion: v1
kind: Pipeline
metadata:
  name: shop
spec:
  repository:
    url: https://github.com/acme/shop.git
    branch: main
  stages:
    - type: test
    - type: deploy
      environment: dev
`
	if err := os.WriteFile(definition, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(tempDir, "out")
	cmd := exec.Command(binaryPath, "generate", "-f", definition, "-o", outDir)
	cmd.Env = append(os.Environ(), "PIPEGEN_LOG_DIR="+tempDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("generate failed: %v\n%s", err, output)
	}

	for _, rel := range []string{"Jenkinsfile", "aws-codepipeline.yaml", "buildspec.yml", "deploy-buildspec.yml", "k8s/staging/service.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, rel)); err != nil {
			t.Errorf("Expected %s to exist: %v", rel, err)
		}
	}
}

func TestCLI_ErrorHandling_MissingFileFlag(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	cmd := exec.Command(binaryPath, "generate")
	cmd.Env = append(os.Environ(), "PIPEGEN_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	if !strings.Contains(string(output), `required flag(s) "file" not set`) {
		t.Errorf("Expected missing flag error, but got: %s", output)
	}
}
