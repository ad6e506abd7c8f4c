package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// Name is the registry name of the GitHub loader.
const Name = "github"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// Loader fetches framework resources from GitHub repositories through the
// contents API.
type Loader struct {
	gh      *gh.Client
	mounts  map[string]Mount
	limiter *RateLimiter
}

// Option configures a Loader.
type Option func(*Loader) error

// WithBaseURL points the client at another API endpoint, e.g. GitHub
// Enterprise or a test server.
func WithBaseURL(raw string) Option {
	return func(l *Loader) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: github base url: %v", domain.ErrInvalidInput, err)
		}
		l.gh.BaseURL = u
		return nil
	}
}

// New creates a loader. With a token the client authenticates through an
// oauth2 static token source.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Loader, error) {
	var hc *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(ctx, ts)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = DefaultTimeout

	l := &Loader{
		gh:      gh.NewClient(hc),
		mounts:  cfg.Mounts,
		limiter: NewRateLimiter(cfg.RequestsPerSecond),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Name implements driven.SourceLoader.
func (l *Loader) Name() string { return Name }

// Live implements driven.SourceLoader.
func (l *Loader) Live() bool { return true }

// Mounted reports whether a framework has a repository mount.
func (l *Loader) Mounted(frameworkID string) bool {
	_, ok := l.mounts[frameworkID]
	return ok
}

// Fetch implements driven.SourceLoader.
func (l *Loader) Fetch(ctx context.Context, resourceID string) ([]byte, error) {
	fwID, rel, ok := strings.Cut(resourceID, "/")
	if !ok || rel == "" {
		return nil, fmt.Errorf("%w: resource id %q must be <framework>/<path>", domain.ErrInvalidInput, resourceID)
	}
	m, ok := l.mounts[fwID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
	}
	p := path.Join(m.Path, rel)
	logger.Debug("github: GET %s/%s@%s %s", m.Owner, m.Repo, m.Ref, p)

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	opts := &gh.RepositoryContentGetOptions{Ref: m.Ref}
	file, _, resp, err := l.gh.Repositories.GetContents(ctx, m.Owner, m.Repo, p, opts)
	l.updateRateLimit(resp)
	if err != nil {
		return nil, l.wrapError(err, resourceID)
	}
	if file == nil {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "path is a directory"}
	}

	// Files above 1MB come back without inline content.
	if file.GetEncoding() == "none" || (file.Content == nil && file.GetSize() > 0) {
		return l.download(ctx, m, p, resourceID)
	}

	decoded, err := file.GetContent()
	if err != nil {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
	}
	return []byte(decoded), nil
}

func (l *Loader) download(ctx context.Context, m Mount, p, resourceID string) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	rc, resp, err := l.gh.Repositories.DownloadContents(ctx, m.Owner, m.Repo, p, &gh.RepositoryContentGetOptions{Ref: m.Ref})
	l.updateRateLimit(resp)
	if err != nil {
		return nil, l.wrapError(err, resourceID)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: err}
	}
	return data, nil
}

func (l *Loader) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	l.limiter.UpdateFromResponse(resp.Response)
}

// RateLimiter returns the loader's outbound limiter.
func (l *Loader) RateLimiter() *RateLimiter {
	return l.limiter
}
