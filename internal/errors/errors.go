package errors

import (
	"fmt"
	"os"
	"sync"
)

var (
	defaultHandler *ErrorHandler
	once           sync.Once
	handlerErr     error
)

// GetDefaultHandler returns the process-wide handler, creating it on first use.
func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, handlerErr = NewErrorHandler()
	})
	return defaultHandler, handlerErr
}

// HandleError reports err through the default handler. When no log file can
// be opened the error is still printed to stderr.
func HandleError(err error) {
	if err == nil {
		return
	}
	handler, hErr := GetDefaultHandler()
	if hErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	handler.Handle(err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	handlerErr = nil
	once = sync.Once{}
}
