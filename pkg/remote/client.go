// Package remote reads design-system library sources from a GitHub
// repository through the REST contents API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gnana997/mrcusage/pkg/util"
)

// Entry types reported by List.
const (
	EntryFile = "file"
	EntryDir  = "dir"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Path string
	Type string
}

// Config configures a Client.
type Config struct {
	// Repository is "https://github.com/owner/repo" or "owner/repo".
	Repository string
	// Branch (or any ref). Empty uses the default branch.
	Branch string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration
	// RequestsPerSecond limits API calls. Zero means 10.
	RequestsPerSecond float64
	// MaxWorkers bounds FetchAll concurrency. Zero uses
	// util.GetOptimalPoolSize.
	MaxWorkers int
	// CacheSize is the number of listings and files kept in memory. Zero
	// means 512.
	CacheSize int
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
}

// Client wraps the GitHub API client with rate limiting, a content cache and
// bounded concurrency.
type Client struct {
	client      *github.Client
	owner       string
	repo        string
	ref         string
	rateLimiter *rate.Limiter
	maxWorkers  int

	files  *lru.Cache[string, []byte]
	dirs   *lru.Cache[string, []Entry]
	logger *slog.Logger
}

// NewClient creates a client for cfg.Repository.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	owner, repo, err := ParseRepoURL(cfg.Repository)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	workers := util.GetOptimalPoolSizeWithOverride(cfg.MaxWorkers)
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}

	client := github.NewClient(&http.Client{Timeout: timeout})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = base
	}

	onEvict := func(key string, _ []byte) {
		logger.Debug("evicted cached file", "path", key)
	}
	files, err := lru.NewWithEvict[string, []byte](cacheSize, onEvict)
	if err != nil {
		return nil, fmt.Errorf("create file cache: %w", err)
	}
	dirs, err := lru.New[string, []Entry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create listing cache: %w", err)
	}

	return &Client{
		client:      client,
		owner:       owner,
		repo:        repo,
		ref:         cfg.Branch,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		maxWorkers:  workers,
		files:       files,
		dirs:        dirs,
		logger:      logger,
	}, nil
}

// ParseRepoURL extracts owner and repository name from a GitHub URL or an
// "owner/repo" shorthand.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("repository URL is empty")
	}

	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("invalid repository URL %q: %w", raw, perr)
		}
		s = u.Path
	} else if rest, ok := strings.CutPrefix(s, "git@"); ok {
		// git@github.com:owner/repo.git
		if _, p, found := strings.Cut(rest, ":"); found {
			s = p
		}
	}

	s = strings.TrimSuffix(strings.Trim(s, "/"), ".git")
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected owner/repo", raw)
	}
	return parts[0], parts[1], nil
}

// List returns the entries of a directory. A missing path is an empty
// result, not an error.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = strings.Trim(dir, "/")
	if cached, ok := c.dirs.Get(dir); ok {
		return cached, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &FetchError{Op: "list", Path: dir, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	file, listing, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, dir, c.getOptions())
	if err != nil {
		if isNotFound(resp) {
			c.logger.Debug("remote path not found", "op", "list", "path", dir)
			return nil, nil
		}
		return nil, newFetchError("list", dir, resp, err)
	}
	if file != nil {
		return nil, &FetchError{Op: "list", Path: dir, Err: fmt.Errorf("path is a file")}
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		entries = append(entries, Entry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Type: item.GetType(),
		})
	}
	c.dirs.Add(dir, entries)

	return entries, nil
}

// Fetch returns the raw content of a file. A missing file is a nil result,
// not an error.
func (c *Client) Fetch(ctx context.Context, filePath string) ([]byte, error) {
	filePath = strings.Trim(filePath, "/")
	if cached, ok := c.files.Get(filePath); ok {
		return cached, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &FetchError{Op: "fetch", Path: filePath, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	file, _, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, filePath, c.getOptions())
	if err != nil {
		if isNotFound(resp) {
			c.logger.Debug("remote path not found", "op", "fetch", "path", filePath)
			return nil, nil
		}
		return nil, newFetchError("fetch", filePath, resp, err)
	}
	if file == nil {
		return nil, &FetchError{Op: "fetch", Path: filePath, Err: fmt.Errorf("path is a directory")}
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, &FetchError{Op: "fetch", Path: filePath, Err: fmt.Errorf("decode content: %w", err)}
	}
	data := []byte(content)
	c.files.Add(filePath, data)

	return data, nil
}

// Result is the outcome of fetching one path in FetchAll.
type Result struct {
	Path    string
	Content []byte
	Err     error
}

// FetchAll fetches paths with at most MaxWorkers requests in flight.
// Results are returned in input order; per-path failures are reported in
// Result.Err and do not stop the other fetches. The returned error is only
// set when ctx is cancelled.
func (c *Client) FetchAll(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)

	for i, p := range paths {
		g.Go(func() error {
			content, err := c.Fetch(gctx, p)
			results[i] = Result{Path: p, Content: content, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Listing is the outcome of listing one directory in ListAll.
type Listing struct {
	Path    string
	Entries []Entry
	Err     error
}

// ListAll lists dirs with the same concurrency bound and ordering
// guarantees as FetchAll.
func (c *Client) ListAll(ctx context.Context, dirs []string) ([]Listing, error) {
	listings := make([]Listing, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)

	for i, d := range dirs {
		g.Go(func() error {
			entries, err := c.List(gctx, d)
			listings[i] = Listing{Path: d, Entries: entries, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

func (c *Client) getOptions() *github.RepositoryContentGetOptions {
	if c.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: c.ref}
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// FetchError describes a failed API call.
type FetchError struct {
	Op         string
	Path       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(op, p string, resp *github.Response, err error) *FetchError {
	fe := &FetchError{Op: op, Path: p, Err: err}
	if resp != nil {
		fe.StatusCode = resp.StatusCode
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) && fe.StatusCode == 0 {
		fe.StatusCode = http.StatusForbidden
	}
	return fe
}
