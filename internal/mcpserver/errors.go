package mcpserver

import (
	"errors"
	"fmt"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// Standard JSON-RPC error codes plus a small set of eywa-specific ones.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
	ErrCodeNotFound       = -32001
)

// MCPError is an MCP protocol error: code plus message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error into an MCPError, preferring the
// EngineError's code taxonomy (spec.md §7) when present.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ee *errcodes.EngineError
	if errors.As(err, &ee) {
		switch {
		case ee.Code == errcodes.ErrCodeDocumentNotFound || ee.Code == errcodes.ErrCodeChunkNotFound || ee.Code == errcodes.ErrCodeJobNotFound:
			return &MCPError{Code: ErrCodeNotFound, Message: ee.Message}
		case ee.Category == errcodes.CategoryValidation:
			return &MCPError{Code: ErrCodeInvalidParams, Message: ee.Message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: ee.Message}
		}
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}

// NewInvalidParamsError builds an MCPError for a malformed tool call.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewNotFoundError builds an MCPError for a missing resource of the given kind and id.
func NewNotFoundError(kind, id string) *MCPError {
	return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}
