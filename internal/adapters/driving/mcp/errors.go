// Package mcp provides an MCP (Model Context Protocol) server adapter for govlens.
// It lets AI assistants search, read and correlate governance frameworks.
package mcp

import (
	"encoding/json"
	"errors"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ToolError is the structured error returned from tool calls.
// Its Error text is the JSON encoding, so clients receive {code, message, details}.
type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	data, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}
	return string(data)
}

// toolError converts a service error into a ToolError.
func toolError(err error) *ToolError {
	te := &ToolError{Code: domain.ErrorCode(err), Message: err.Error()}

	var limited *domain.RateLimitedError
	var notFound *domain.NotFoundError
	var unavailable *domain.SourceUnavailableError
	switch {
	case errors.As(err, &limited):
		te.Details = map[string]any{
			"class":               limited.Class,
			"retry_after_seconds": limited.RetryAfterSeconds,
		}
	case errors.As(err, &notFound):
		te.Details = map[string]any{"kind": notFound.Kind, "id": notFound.ID}
	case errors.As(err, &unavailable):
		te.Details = map[string]any{
			"source":          unavailable.Source,
			"resource_id":     unavailable.ResourceID,
			"fallback_served": unavailable.FallbackServed,
		}
	}
	return te
}
