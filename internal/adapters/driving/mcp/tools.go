package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// FrameworkOutput describes one framework.
type FrameworkOutput struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Version          string    `json:"version,omitempty"`
	Kind             string    `json:"kind"`
	Origin           string    `json:"origin"`
	LoadedAt         time.Time `json:"loaded_at"`
	ReferenceCount   int       `json:"reference_count"`
	FailedReferences []string  `json:"failed_references,omitempty"`
}

// ReferenceOutput describes one reference.
type ReferenceOutput struct {
	FrameworkID string   `json:"framework_id"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content,omitempty"`
	Category    string   `json:"category,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Status      string   `json:"status,omitempty"`
	Sections    []string `json:"sections,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListFrameworksOutput is the output schema for list_frameworks.
type ListFrameworksOutput struct {
	Frameworks []FrameworkOutput `json:"frameworks"`
	Count      int               `json:"count"`
}

// GetFrameworkInput is the input schema for get_framework.
type GetFrameworkInput struct {
	ID string `json:"id" jsonschema:"the framework ID, e.g. owasp-llm"`
}

// GetFrameworkOutput is the output schema for get_framework.
type GetFrameworkOutput struct {
	Framework  FrameworkOutput   `json:"framework"`
	References []ReferenceOutput `json:"references"`
}

// GetReferenceInput is the input schema for get_reference.
type GetReferenceInput struct {
	FrameworkID string `json:"framework_id" jsonschema:"the owning framework ID"`
	ReferenceID string `json:"reference_id" jsonschema:"the reference ID within the framework, e.g. LLM01"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"keywords to search for"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 10, max 20)"`
	Severities []string `json:"severities,omitempty" jsonschema:"keep only these severities (critical, high, medium, low)"`
	Statuses   []string `json:"statuses,omitempty" jsonschema:"keep only these compliance statuses"`
	Frameworks []string `json:"frameworks,omitempty" jsonschema:"keep only these framework IDs"`
	Categories []string `json:"categories,omitempty" jsonschema:"keep only these categories"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	FrameworkID string  `json:"framework_id"`
	ReferenceID string  `json:"reference_id"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	Severity    string  `json:"severity,omitempty"`
}

// CorrelateInput is the input schema for correlate.
type CorrelateInput struct {
	FrameworkID       string `json:"framework_id" jsonschema:"the source framework ID"`
	ReferenceID       string `json:"reference_id" jsonschema:"the source reference ID"`
	TargetFrameworkID string `json:"target_framework_id" jsonschema:"the framework to map onto"`
}

// CorrelateOutput is the output schema for correlate.
type CorrelateOutput struct {
	Mappings []domain.CorrelationMapping `json:"mappings"`
	Count    int                         `json:"count"`
}

// FindGapsInput is the input schema for find_gaps.
type FindGapsInput struct {
	SourceFrameworkID  string   `json:"source_framework_id" jsonschema:"the framework whose coverage is checked"`
	TargetFrameworkIDs []string `json:"target_framework_ids" jsonschema:"frameworks that should cover the source"`
	Threshold          string   `json:"threshold,omitempty" jsonschema:"minimum severity to report; empty reports all"`
}

// FindGapsOutput is the output schema for find_gaps.
type FindGapsOutput struct {
	Gaps  []domain.Gap `json:"gaps"`
	Count int          `json:"count"`
}

// BreakerStatsOutput is the output schema for breaker_stats.
type BreakerStatsOutput struct {
	Breakers []domain.BreakerStats `json:"breakers"`
}

// RefreshInput is the input schema for refresh.
type RefreshInput struct {
	FrameworkID string `json:"framework_id,omitempty" jsonschema:"framework to refresh; empty refreshes all"`
}

// RefreshOutput is the output schema for refresh.
type RefreshOutput struct {
	Refreshed string `json:"refreshed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_frameworks",
		Description: "List every available governance framework",
	}, s.handleListFrameworks)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_framework",
		Description: "Get a framework and all of its references",
	}, s.handleGetFramework)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_reference",
		Description: "Get a single control, risk or mitigation",
	}, s.handleGetReference)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Keyword search across all frameworks with optional filters",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "correlate",
		Description: "Map a reference onto the references of another framework",
	}, s.handleCorrelate)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_gaps",
		Description: "List references of a framework that lack coverage in target frameworks",
	}, s.handleFindGaps)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Report cache hit, miss and eviction counters",
	}, s.handleCacheStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "breaker_stats",
		Description: "Report the circuit breaker state of each live source",
	}, s.handleBreakerStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh",
		Description: "Drop cached data for a framework (or all) and reload it",
	}, s.handleRefresh)
}

func (s *Server) handleListFrameworks(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, ListFrameworksOutput, error) {
	frameworks, err := s.ports.Query.ListFrameworks(s.callerCtx(ctx, req))
	if err != nil {
		return nil, ListFrameworksOutput{}, toolError(err)
	}

	output := ListFrameworksOutput{
		Frameworks: make([]FrameworkOutput, len(frameworks)),
		Count:      len(frameworks),
	}
	for i := range frameworks {
		output.Frameworks[i] = frameworkOutput(&frameworks[i])
	}
	return nil, output, nil
}

func (s *Server) handleGetFramework(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetFrameworkInput,
) (*mcp.CallToolResult, GetFrameworkOutput, error) {
	detail, err := s.ports.Query.GetFramework(s.callerCtx(ctx, req), input.ID)
	if err != nil {
		return nil, GetFrameworkOutput{}, toolError(err)
	}
	return nil, frameworkDetailOutput(detail), nil
}

func (s *Server) handleGetReference(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetReferenceInput,
) (*mcp.CallToolResult, ReferenceOutput, error) {
	ref, err := s.ports.Query.GetReference(s.callerCtx(ctx, req), input.FrameworkID, input.ReferenceID)
	if err != nil {
		return nil, ReferenceOutput{}, toolError(err)
	}
	return nil, referenceOutput(ref), nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	filters := domain.SearchFilters{
		Statuses:     input.Statuses,
		FrameworkIDs: input.Frameworks,
		Categories:   input.Categories,
	}
	for _, raw := range input.Severities {
		sev, err := domain.ParseSeverity(raw)
		if err != nil {
			return nil, SearchOutput{}, toolError(err)
		}
		filters.Severities = append(filters.Severities, sev)
	}

	hits, err := s.ports.Query.Search(s.callerCtx(ctx, req), input.Query, filters, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		output.Results[i] = SearchResultOutput{
			FrameworkID: hits[i].Key.FrameworkID,
			ReferenceID: hits[i].Key.ReferenceID,
			Title:       hits[i].Title,
			Snippet:     hits[i].Snippet,
			Score:       hits[i].Score,
			Severity:    string(hits[i].Severity),
		}
	}
	return nil, output, nil
}

func (s *Server) handleCorrelate(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CorrelateInput,
) (*mcp.CallToolResult, CorrelateOutput, error) {
	key := domain.ReferenceKey{FrameworkID: input.FrameworkID, ReferenceID: input.ReferenceID}
	mappings, err := s.ports.Query.Correlate(s.callerCtx(ctx, req), key, input.TargetFrameworkID)
	if err != nil {
		return nil, CorrelateOutput{}, toolError(err)
	}
	if mappings == nil {
		mappings = []domain.CorrelationMapping{}
	}
	return nil, CorrelateOutput{Mappings: mappings, Count: len(mappings)}, nil
}

func (s *Server) handleFindGaps(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input FindGapsInput,
) (*mcp.CallToolResult, FindGapsOutput, error) {
	var threshold domain.Severity
	if input.Threshold != "" {
		sev, err := domain.ParseSeverity(input.Threshold)
		if err != nil {
			return nil, FindGapsOutput{}, toolError(err)
		}
		threshold = sev
	}

	gaps, err := s.ports.Query.FindGaps(s.callerCtx(ctx, req), input.SourceFrameworkID, input.TargetFrameworkIDs, threshold)
	if err != nil {
		return nil, FindGapsOutput{}, toolError(err)
	}
	if gaps == nil {
		gaps = []domain.Gap{}
	}
	return nil, FindGapsOutput{Gaps: gaps, Count: len(gaps)}, nil
}

func (s *Server) handleCacheStats(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, domain.CacheStats, error) {
	stats, err := s.ports.Query.CacheStats(s.callerCtx(ctx, req))
	if err != nil {
		return nil, domain.CacheStats{}, toolError(err)
	}
	return nil, stats, nil
}

func (s *Server) handleBreakerStats(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, BreakerStatsOutput, error) {
	stats, err := s.ports.Query.BreakerStats(s.callerCtx(ctx, req))
	if err != nil {
		return nil, BreakerStatsOutput{}, toolError(err)
	}
	if stats == nil {
		stats = []domain.BreakerStats{}
	}
	return nil, BreakerStatsOutput{Breakers: stats}, nil
}

func (s *Server) handleRefresh(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RefreshInput,
) (*mcp.CallToolResult, RefreshOutput, error) {
	if err := s.ports.Query.Refresh(s.callerCtx(ctx, req), input.FrameworkID); err != nil {
		return nil, RefreshOutput{}, toolError(err)
	}
	refreshed := input.FrameworkID
	if refreshed == "" {
		refreshed = "all"
	}
	return nil, RefreshOutput{Refreshed: refreshed}, nil
}

func frameworkOutput(fw *domain.Framework) FrameworkOutput {
	return FrameworkOutput{
		ID:               fw.ID,
		Name:             fw.Name,
		Version:          fw.Version,
		Kind:             string(fw.Kind),
		Origin:           string(fw.Origin),
		LoadedAt:         fw.LoadedAt,
		ReferenceCount:   len(fw.ReferenceIDs),
		FailedReferences: fw.FailedReferences,
	}
}

func frameworkDetailOutput(detail *driving.FrameworkDetail) GetFrameworkOutput {
	out := GetFrameworkOutput{
		Framework:  frameworkOutput(&detail.Framework),
		References: make([]ReferenceOutput, len(detail.References)),
	}
	for i := range detail.References {
		out.References[i] = referenceOutput(&detail.References[i])
	}
	return out
}

func referenceOutput(ref *domain.Reference) ReferenceOutput {
	return ReferenceOutput{
		FrameworkID: ref.FrameworkID,
		ID:          ref.ID,
		Title:       ref.Title,
		Content:     ref.Content,
		Category:    ref.Category,
		Severity:    string(ref.Severity),
		Status:      ref.Status,
		Sections:    ref.Sections,
		Tags:        ref.Tags,
	}
}
