package errors

import "errors"

var (
	ErrDefinitionNotFound    = errors.New("pipeline definition not found")
	ErrDefinitionParseFailed = errors.New("pipeline definition parsing failed")
	ErrConfigInvalid         = errors.New("configuration invalid")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrUnrenderableStage     = errors.New("stage cannot be rendered")
	ErrRenderFailed          = errors.New("rendering failed")
	ErrFileSystemFailed      = errors.New("filesystem operation failed")
)

type PipegenError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *PipegenError) Error() string {
	return e.OriginalErr.Error()
}

func (e *PipegenError) Unwrap() []error {
	return []error{e.Type, e.OriginalErr}
}

func NewPipegenError(errorType error, context, cause, suggestion string, originalErr error) *PipegenError {
	return &PipegenError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewDefinitionError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrDefinitionNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrDefinitionParseFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewInvalidArgumentError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrInvalidArgument, context, cause, suggestion, originalErr)
}

func NewStageError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrUnrenderableStage, context, cause, suggestion, originalErr)
}

func NewRenderError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrRenderFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *PipegenError {
	return NewPipegenError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
