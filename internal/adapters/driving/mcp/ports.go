package mcp

import (
	"net/http"

	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// Ports aggregates the dependencies of the MCP server.
type Ports struct {
	// Query serves every tool and resource.
	Query driving.QueryService

	// Metrics is mounted at /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
