package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"pipegen/internal/ui"
)

const (
	logFileName     = "pipegen.log"
	logDirEnv       = "PIPEGEN_LOG_DIR"
	maxLogFiles     = 5
	maxLogSizeBytes = 10 * 1024 * 1024
)

type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := createLogFile()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &ErrorHandler{
		logger:  logger,
		console: ui.NewConsole(),
	}, nil
}

// getOSStandardLogDir returns the OS-standard log directory path
func getOSStandardLogDir() (string, error) {
	if customLogDir := os.Getenv(logDirEnv); customLogDir != "" {
		return customLogDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "Pipegen"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		// XDG data dir
		return filepath.Join(homeDir, ".local", "share", "pipegen", "logs"), nil
	case "windows":
		appDataDir := os.Getenv("APPDATA")
		if appDataDir == "" {
			return filepath.Join(homeDir, "AppData", "Roaming", "Pipegen", "logs"), nil
		}
		return filepath.Join(appDataDir, "Pipegen", "logs"), nil
	default:
		return filepath.Join(homeDir, ".pipegen", "logs"), nil
	}
}

// createLogDirectoryWithFallback creates the log directory, falling back to the
// current directory when the standard location is not writable.
func createLogDirectoryWithFallback() (string, bool, error) {
	logDir, err := getOSStandardLogDir()
	if err == nil {
		if err = os.MkdirAll(logDir, 0750); err == nil {
			testFile := filepath.Join(logDir, ".test_write")
			f, testErr := os.Create(testFile)
			if testErr == nil {
				if err := f.Close(); err != nil {
					slog.Warn("Failed to close test file", "path", testFile, "error", err)
				}
				if err := os.Remove(testFile); err != nil {
					slog.Warn("Failed to remove test file", "path", testFile, "error", err)
				}
				return logDir, false, nil
			}
			err = testErr
		}
		fmt.Fprintf(os.Stderr, "Warning: Cannot access standard log directory %s: %v. Falling back to current directory for logging.\n", logDir, err)
	} else {
		fmt.Fprintf(os.Stderr, "Warning: Cannot determine standard log directory: %v. Falling back to current directory for logging.\n", err)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return "", true, fmt.Errorf("cannot determine current directory for fallback logging: %w", err)
	}
	return currentDir, true, nil
}

// rotateLogFile shifts pipegen.log -> .1 -> .2 ... dropping the oldest.
func rotateLogFile(logPath string) error {
	oldest := fmt.Sprintf("%s.%d", logPath, maxLogFiles)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			slog.Warn("Failed to remove old log file", "path", oldest, "error", err)
		}
	}

	for i := maxLogFiles - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", logPath, i)
		newPath := fmt.Sprintf("%s.%d", logPath, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				slog.Warn("Failed to rotate log file", "old", oldPath, "new", newPath, "error", err)
			}
		}
	}

	if _, err := os.Stat(logPath); err == nil {
		return os.Rename(logPath, logPath+".1")
	}
	return nil
}

func checkLogRotation(logPath string) error {
	info, err := os.Stat(logPath)
	if err != nil {
		return nil
	}
	if info.Size() >= maxLogSizeBytes {
		return rotateLogFile(logPath)
	}
	return nil
}

func createLogFile() (*os.File, error) {
	logDir, _, err := createLogDirectoryWithFallback()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, logFileName)
	if err := checkLogRotation(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to rotate log file: %v\n", err)
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var pipegenErr *PipegenError
	if errors.As(err, &pipegenErr) {
		h.handlePipegenError(pipegenErr)
	} else {
		h.handleGenericError(err)
	}
}

func (h *ErrorHandler) handlePipegenError(err *PipegenError) {
	h.logStructuredError(err)

	message := h.console.FormatErrorMessage(err.Context, err.Cause, err.Suggestion)
	h.console.PrintError(message)
}

func (h *ErrorHandler) handleGenericError(err error) {
	h.logger.Error("Unhandled error occurred",
		"error", err.Error(),
		"type", "generic",
	)
	h.console.PrintError(err.Error())
}

func (h *ErrorHandler) logStructuredError(err *PipegenError) {
	logAttrs := []slog.Attr{
		slog.String("error", err.OriginalErr.Error()),
		slog.String("type", getErrorTypeName(err.Type)),
		slog.String("context", err.Context),
	}
	if err.Cause != "" {
		logAttrs = append(logAttrs, slog.String("cause", err.Cause))
	}
	if err.Suggestion != "" {
		logAttrs = append(logAttrs, slog.String("suggestion", err.Suggestion))
	}

	h.logger.LogAttrs(context.TODO(), slog.LevelError, "pipegen error occurred", logAttrs...)
}

func getErrorTypeName(errType error) string {
	switch errType {
	case ErrDefinitionNotFound:
		return "definition_not_found"
	case ErrDefinitionParseFailed:
		return "definition_parse_failed"
	case ErrConfigInvalid:
		return "config_invalid"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrUnrenderableStage:
		return "unrenderable_stage"
	case ErrRenderFailed:
		return "render_failed"
	case ErrFileSystemFailed:
		return "filesystem_failed"
	default:
		return "unknown"
	}
}
