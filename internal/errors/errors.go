// Package errors defines the coded error type shared by the engine.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnparsableContent indicates an empty file or one with embedded NUL bytes
	UnparsableContent ErrorCode = "UNPARSABLE_CONTENT"
	// ParserFailure indicates a parser rung failed on well-formed-looking content
	ParserFailure ErrorCode = "PARSER_FAILURE"
	// ResolutionMiss indicates a referenced type could not be resolved
	ResolutionMiss ErrorCode = "RESOLUTION_MISS"
	// FileFailed indicates a single file failed during batch indexing
	FileFailed ErrorCode = "FILE_FAILED"
	// SymbolNotFound indicates symbol doesn't exist
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// StoreUnavailable indicates the symbol store could not be opened or queried
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// InvalidDefinition indicates a malformed pattern or spawn catalog entry
	InvalidDefinition ErrorCode = "INVALID_DEFINITION"
	// UnsupportedLanguage indicates no adapter exists for the file
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// SentinelError represents an engine error with code, message, and suggestions
type SentinelError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Path           string      `json:"path,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a SentinelError with the default fixes for its code
func New(code ErrorCode, message string, cause error) *SentinelError {
	return &SentinelError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a SentinelError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *SentinelError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *SentinelError) Error() string {
	prefix := fmt.Sprintf("[%s] ", e.Code)
	if e.Path != "" {
		prefix += e.Path + ": "
	}
	if e.cause != nil {
		return fmt.Sprintf("%s%s: %v", prefix, e.Message, e.cause)
	}
	return prefix + e.Message
}

// Unwrap returns the underlying error
func (e *SentinelError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SentinelError) WithDetails(details interface{}) *SentinelError {
	e.Details = details
	return e
}

// WithPath attaches the file the error relates to
func (e *SentinelError) WithPath(path string) *SentinelError {
	e.Path = path
	return e
}

// CodeOf returns the code of the first SentinelError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *SentinelError
	if stderrors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	UnparsableContent: {
		{
			Type:        RunCommand,
			Command:     "file ${path}",
			Safe:        true,
			Description: "Check whether the file is binary or empty",
		},
	},
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "sentinel index --force",
			Safe:        true,
			Description: "Rebuild the symbol store",
		},
	},
	InvalidDefinition: {
		{
			Type:        RunCommand,
			Command:     "sentinel patterns --list",
			Safe:        true,
			Description: "List the loaded pattern definitions",
		},
	},
	SymbolNotFound: {
		{
			Type:        RunCommand,
			Command:     "sentinel index",
			Safe:        true,
			Description: "Re-index the project",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
