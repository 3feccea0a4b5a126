package errors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNewErrorHandler(t *testing.T) {
	t.Setenv(logDirEnv, t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}
	if handler == nil {
		t.Fatal("NewErrorHandler() returned nil handler")
	}
	if handler.logger == nil {
		t.Error("ErrorHandler.logger is nil")
	}
	if handler.console == nil {
		t.Error("ErrorHandler.console is nil")
	}
}

func TestErrorHandler_Handle_PipegenError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(NewInvalidArgumentError(
		"Cannot add deploy stage",
		"Environment 'qa' is not configured",
		"Use one of: dev, staging, prod",
		errors.New("invalid environment qa"),
	))

	content, err := os.ReadFile(filepath.Join(logDir, logFileName))
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	for _, want := range []string{`"type":"invalid_argument"`, `"context":"Cannot add deploy stage"`, `"suggestion":"Use one of: dev, staging, prod"`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log file missing %s, got: %s", want, content)
		}
	}
}

func TestErrorHandler_Handle_GenericError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(errors.New("generic test error"))

	content, err := os.ReadFile(filepath.Join(logDir, logFileName))
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(content), `"type":"generic"`) {
		t.Errorf("expected generic error entry, got: %s", content)
	}
}

func TestErrorHandler_Handle_NilError(t *testing.T) {
	t.Setenv(logDirEnv, t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}
	handler.Handle(nil)
}

func TestGetErrorTypeName(t *testing.T) {
	tests := []struct {
		errorType error
		expected  string
	}{
		{ErrDefinitionNotFound, "definition_not_found"},
		{ErrDefinitionParseFailed, "definition_parse_failed"},
		{ErrConfigInvalid, "config_invalid"},
		{ErrInvalidArgument, "invalid_argument"},
		{ErrUnrenderableStage, "unrenderable_stage"},
		{ErrRenderFailed, "render_failed"},
		{ErrFileSystemFailed, "filesystem_failed"},
		{errors.New("unknown"), "unknown"},
	}

	for _, test := range tests {
		result := getErrorTypeName(test.errorType)
		if result != test.expected {
			t.Errorf("getErrorTypeName(%v) = %q, want %q", test.errorType, result, test.expected)
		}
	}
}

func TestGetDefaultHandler(t *testing.T) {
	t.Setenv(logDirEnv, t.TempDir())
	resetDefaultHandler()
	defer resetDefaultHandler()

	handler1, err1 := GetDefaultHandler()
	if err1 != nil {
		t.Fatalf("GetDefaultHandler() first call failed: %v", err1)
	}
	handler2, err2 := GetDefaultHandler()
	if err2 != nil {
		t.Fatalf("GetDefaultHandler() second call failed: %v", err2)
	}
	if handler1 != handler2 {
		t.Error("GetDefaultHandler() should return the same instance on multiple calls")
	}
}

func TestHandleError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)
	resetDefaultHandler()
	defer resetDefaultHandler()

	HandleError(errors.New("test error for HandleError"))

	if _, err := os.Stat(filepath.Join(logDir, logFileName)); os.IsNotExist(err) {
		t.Error("Log file was not created by HandleError")
	}
}

func TestPipegenError_Error(t *testing.T) {
	originalErr := errors.New("original error message")
	err := NewDefinitionError("context", "cause", "suggestion", originalErr)

	if err.Error() != originalErr.Error() {
		t.Errorf("PipegenError.Error() = %q, want %q", err.Error(), originalErr.Error())
	}
}

func TestPipegenError_Is(t *testing.T) {
	originalErr := errors.New("original error message")
	err := fmt.Errorf("wrapped: %w", NewStageError("context", "cause", "suggestion", originalErr))

	if !errors.Is(err, ErrUnrenderableStage) {
		t.Error("errors.Is should match the error type sentinel")
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should match the original error")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}

	var pipegenErr *PipegenError
	if !errors.As(err, &pipegenErr) {
		t.Fatal("errors.As should find the PipegenError")
	}
	if pipegenErr.Context != "context" {
		t.Errorf("Context = %q, want %q", pipegenErr.Context, "context")
	}
}

func TestErrorConstructors(t *testing.T) {
	originalErr := errors.New("test error")

	tests := []struct {
		name         string
		constructor  func(string, string, string, error) *PipegenError
		expectedType error
	}{
		{"NewDefinitionError", NewDefinitionError, ErrDefinitionNotFound},
		{"NewParseError", NewParseError, ErrDefinitionParseFailed},
		{"NewConfigError", NewConfigError, ErrConfigInvalid},
		{"NewInvalidArgumentError", NewInvalidArgumentError, ErrInvalidArgument},
		{"NewStageError", NewStageError, ErrUnrenderableStage},
		{"NewRenderError", NewRenderError, ErrRenderFailed},
		{"NewFileSystemError", NewFileSystemError, ErrFileSystemFailed},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.constructor("context", "cause", "suggestion", originalErr)

			if err.Type != test.expectedType {
				t.Errorf("%s created error with type %v, want %v", test.name, err.Type, test.expectedType)
			}
			if err.Context != "context" || err.Cause != "cause" || err.Suggestion != "suggestion" {
				t.Errorf("%s did not keep context/cause/suggestion: %+v", test.name, err)
			}
			if err.OriginalErr != originalErr {
				t.Errorf("%s created error with originalErr %v, want %v", test.name, err.OriginalErr, originalErr)
			}
		})
	}
}

func TestGetOSStandardLogDir(t *testing.T) {
	t.Run("environment variable override", func(t *testing.T) {
		testDir := "/custom/log/dir"
		t.Setenv(logDirEnv, testDir)

		result, err := getOSStandardLogDir()
		if err != nil {
			t.Fatalf("getOSStandardLogDir() failed: %v", err)
		}
		if result != testDir {
			t.Errorf("getOSStandardLogDir() = %q, want %q", result, testDir)
		}
	})

	t.Run("platform-specific directories", func(t *testing.T) {
		t.Setenv(logDirEnv, "")

		result, err := getOSStandardLogDir()
		if err != nil {
			t.Fatalf("getOSStandardLogDir() failed: %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		var expectedPath string
		switch runtime.GOOS {
		case "darwin":
			expectedPath = filepath.Join(homeDir, "Library", "Logs", "Pipegen")
		case "linux", "freebsd", "openbsd", "netbsd":
			expectedPath = filepath.Join(homeDir, ".local", "share", "pipegen", "logs")
		case "windows":
			appDataDir := os.Getenv("APPDATA")
			if appDataDir == "" {
				expectedPath = filepath.Join(homeDir, "AppData", "Roaming", "Pipegen", "logs")
			} else {
				expectedPath = filepath.Join(appDataDir, "Pipegen", "logs")
			}
		default:
			expectedPath = filepath.Join(homeDir, ".pipegen", "logs")
		}

		if result != expectedPath {
			t.Errorf("getOSStandardLogDir() = %q, want %q", result, expectedPath)
		}
	})
}

func TestCreateLogDirectoryWithFallback(t *testing.T) {
	t.Run("successful standard directory creation", func(t *testing.T) {
		logDir := filepath.Join(t.TempDir(), "logs")
		t.Setenv(logDirEnv, logDir)

		result, fallbackUsed, err := createLogDirectoryWithFallback()
		if err != nil {
			t.Fatalf("createLogDirectoryWithFallback() failed: %v", err)
		}
		if fallbackUsed {
			t.Error("createLogDirectoryWithFallback() should not use fallback for accessible directory")
		}
		if result != logDir {
			t.Errorf("createLogDirectoryWithFallback() = %q, want %q", result, logDir)
		}
	})

	t.Run("fallback to current directory", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("root can create any directory")
		}
		t.Setenv(logDirEnv, "/non/existent/path/that/cannot/be/created")

		result, fallbackUsed, err := createLogDirectoryWithFallback()
		if err != nil {
			t.Fatalf("createLogDirectoryWithFallback() failed: %v", err)
		}
		if !fallbackUsed {
			t.Error("createLogDirectoryWithFallback() should use fallback for inaccessible directory")
		}
		currentDir, _ := os.Getwd()
		if result != currentDir {
			t.Errorf("createLogDirectoryWithFallback() = %q, want %q", result, currentDir)
		}
	})
}

func TestCheckLogRotation(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "test.log")

	t.Run("no rotation needed for small file", func(t *testing.T) {
		if err := os.WriteFile(logPath, []byte(strings.Repeat("small log entry\n", 10)), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		if err := checkLogRotation(logPath); err != nil {
			t.Errorf("checkLogRotation() failed: %v", err)
		}
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Error("Original log file should still exist")
		}
	})

	t.Run("rotation needed for large file", func(t *testing.T) {
		if err := os.WriteFile(logPath, make([]byte, maxLogSizeBytes), 0644); err != nil {
			t.Fatalf("Failed to create large test file: %v", err)
		}
		if err := checkLogRotation(logPath); err != nil {
			t.Errorf("checkLogRotation() failed: %v", err)
		}
		if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
			t.Error("Rotated log file should exist")
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		if err := checkLogRotation(filepath.Join(tempDir, "non-existent.log")); err != nil {
			t.Errorf("checkLogRotation() should not fail for non-existent file: %v", err)
		}
	})
}

func TestRotateLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	for i := 1; i <= maxLogFiles; i++ {
		if err := os.WriteFile(fmt.Sprintf("%s.%d", logPath, i), []byte(fmt.Sprintf("gen %d", i)), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(logPath, []byte("current"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := rotateLogFile(logPath); err != nil {
		t.Fatalf("rotateLogFile() failed: %v", err)
	}

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("current log should have been moved")
	}
	first, err := os.ReadFile(logPath + ".1")
	if err != nil || string(first) != "current" {
		t.Errorf("expected .1 to hold the current log, got %q (%v)", first, err)
	}
	last, err := os.ReadFile(fmt.Sprintf("%s.%d", logPath, maxLogFiles))
	if err != nil || string(last) != fmt.Sprintf("gen %d", maxLogFiles-1) {
		t.Errorf("expected .%d to hold generation %d, got %q (%v)", maxLogFiles, maxLogFiles-1, last, err)
	}
}
