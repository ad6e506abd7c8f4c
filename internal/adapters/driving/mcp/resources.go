package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for govlens resources.
	uriScheme = "govlens://"

	frameworksPrefix = uriScheme + "frameworks"
	referencesPart   = "/references/"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         frameworksPrefix,
		Name:        "frameworks",
		Description: "List of all available governance frameworks",
		MIMEType:    "application/json",
	}, s.handleFrameworksResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: frameworksPrefix + "/{id}",
		Name:        "framework",
		Description: "A framework and its references",
		MIMEType:    "application/json",
	}, s.handleFrameworkResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: frameworksPrefix + "/{id}/references/{refId}",
		Name:        "reference",
		Description: "A single reference of a framework",
		MIMEType:    "application/json",
	}, s.handleReferenceResource)
}

// handleFrameworksResource returns every framework.
func (s *Server) handleFrameworksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	frameworks, err := s.ports.Query.ListFrameworks(s.resourceCtx(ctx, req))
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}

	infos := make([]FrameworkOutput, len(frameworks))
	for i := range frameworks {
		infos[i] = frameworkOutput(&frameworks[i])
	}
	return jsonResult(req.Params.URI, infos)
}

// handleFrameworkResource returns one framework with its references.
func (s *Server) handleFrameworkResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, refID := parseFrameworkURI(req.Params.URI)
	if id == "" || refID != "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	detail, err := s.ports.Query.GetFramework(s.resourceCtx(ctx, req), id)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	return jsonResult(req.Params.URI, frameworkDetailOutput(detail))
}

// handleReferenceResource returns one reference.
func (s *Server) handleReferenceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, refID := parseFrameworkURI(req.Params.URI)
	if id == "" || refID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ref, err := s.ports.Query.GetReference(s.resourceCtx(ctx, req), id, refID)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	return jsonResult(req.Params.URI, referenceOutput(ref))
}

func (s *Server) resourceCtx(ctx context.Context, req *mcp.ReadResourceRequest) context.Context {
	if req == nil || req.Session == nil {
		return s.withCaller(ctx, nil)
	}
	return s.withCaller(ctx, req.Session)
}

// resourceError maps not-found errors onto the protocol's resource-not-found
// error and renders everything else as a structured error.
func resourceError(uri string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.ResourceNotFoundError(uri)
	}
	return toolError(err)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parseFrameworkURI splits govlens://frameworks/{id}[/references/{refId}].
// It returns an empty id when the URI does not match.
func parseFrameworkURI(uri string) (id, refID string) {
	rest, ok := strings.CutPrefix(uri, frameworksPrefix+"/")
	if !ok || rest == "" {
		return "", ""
	}

	id, refID, hasRef := strings.Cut(rest, referencesPart)
	if strings.Contains(id, "/") {
		return "", ""
	}
	if hasRef && (refID == "" || strings.Contains(refID, "/")) {
		return "", ""
	}
	return id, refID
}
