package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for govlens.
type Server struct {
	ports  *Ports
	server *mcp.Server

	// fallbackCaller identifies callers on transports without session IDs.
	fallbackCaller string
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "govlens",
		Version: Version,
	}

	s := &Server{
		ports:          ports,
		server:         mcp.NewServer(impl, nil),
		fallbackCaller: "server-" + uuid.NewString(),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP handler serving MCP at / and, when configured,
// Prometheus metrics at /metrics.
func (s *Server) Handler() http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/", mcpHandler)
	if s.ports.Metrics != nil {
		mux.Handle("/metrics", s.ports.Metrics)
	}
	return mux
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// sessionID is the subset of a server session used to identify callers.
type sessionID interface {
	ID() string
}

// withCaller attaches the MCP session ID (or the server fallback) to ctx.
func (s *Server) withCaller(ctx context.Context, session sessionID) context.Context {
	caller := ""
	if session != nil {
		caller = session.ID()
	}
	if caller == "" {
		caller = s.fallbackCaller
	}
	return domain.WithCaller(ctx, caller)
}

// callerCtx extracts the session from a tool request.
func (s *Server) callerCtx(ctx context.Context, req *mcp.CallToolRequest) context.Context {
	if req == nil || req.Session == nil {
		return s.withCaller(ctx, nil)
	}
	return s.withCaller(ctx, req.Session)
}
