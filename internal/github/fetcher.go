// Package github walks repositories through the GitHub contents API and turns
// them into a scan.FileMapping.
package github

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogh "github.com/google/go-github/v68/github"
	"golang.org/x/time/rate"

	"repolens/internal/scan"
)

const (
	DefaultMaxFiles  = 100
	defaultUserAgent = "repolens"
	acceptHeader     = "application/vnd.github.v3+json"
)

// Config controls a Fetcher. Zero values select defaults.
type Config struct {
	Token        string
	BaseURL      string // API root, e.g. a test server; defaults to api.github.com
	UserAgent    string
	RPS          float64 // <= 0 disables pacing
	Timeout      time.Duration
	MaxFiles     int
	MaxFileBytes int
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// Fetcher lists and downloads repository files one request at a time.
type Fetcher struct {
	cfg     Config
	gh      *gogh.Client
	limiter *rate.Limiter
	log     *log.Logger
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = scan.MaxFileBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	hc := &http.Client{Transport: &headerTransport{
		base:      base,
		token:     strings.TrimSpace(cfg.Token),
		userAgent: cfg.UserAgent,
	}}
	gh := gogh.NewClient(hc)
	gh.UserAgent = cfg.UserAgent
	if b := strings.TrimSpace(cfg.BaseURL); b != "" {
		if !strings.HasSuffix(b, "/") {
			b += "/"
		}
		u, err := url.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("github: invalid base url: %w", err)
		}
		gh.BaseURL = u
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &Fetcher{cfg: cfg, gh: gh, limiter: limiter, log: logger}, nil
}

// WithToken returns a Fetcher that authenticates with token instead. The
// request pacing is shared with the receiver.
func (f *Fetcher) WithToken(token string) (*Fetcher, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == f.cfg.Token {
		return f, nil
	}
	cfg := f.cfg
	cfg.Token = token
	nf, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	nf.limiter = f.limiter
	return nf, nil
}

// headerTransport attaches the fixed Accept/User-Agent pair and, when set,
// "Authorization: token <token>" to every request.
type headerTransport struct {
	base      http.RoundTripper
	token     string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", acceptHeader)
	r.Header.Set("User-Agent", t.userAgent)
	if t.token != "" {
		r.Header.Set("Authorization", "token "+t.token)
	}
	return t.base.RoundTrip(r)
}

// ContentsKind discriminates the two shapes of a contents response.
type ContentsKind int

const (
	SingleFile ContentsKind = iota + 1
	DirectoryListing
)

// Entry describes one item of a directory listing.
type Entry struct {
	Name        string
	Path        string
	Type        string // "file", "dir", "symlink", "submodule"
	Size        int
	DownloadURL string
}

// Contents is a decoded contents response. File is set for SingleFile,
// Entries for DirectoryListing.
type Contents struct {
	Kind    ContentsKind
	File    *FileContent
	Entries []Entry
}

// FileContent is a single-file response before decoding.
type FileContent struct {
	Entry
	Encoding string
	raw      *gogh.RepositoryContent
}

// getContents performs one paced, time-bounded contents request.
func (f *Fetcher) getContents(ctx context.Context, owner, repo, path string) (Contents, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Contents{}, err
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	file, dir, _, err := f.gh.Repositories.GetContents(callCtx, owner, repo, path, nil)
	if err != nil {
		return Contents{}, asRemoteError(err)
	}
	if file != nil {
		return Contents{Kind: SingleFile, File: &FileContent{
			Entry:    toEntry(file),
			Encoding: file.GetEncoding(),
			raw:      file,
		}}, nil
	}
	entries := make([]Entry, 0, len(dir))
	for _, c := range dir {
		if c == nil {
			continue
		}
		entries = append(entries, toEntry(c))
	}
	return Contents{Kind: DirectoryListing, Entries: entries}, nil
}

func toEntry(c *gogh.RepositoryContent) Entry {
	return Entry{
		Name:        c.GetName(),
		Path:        c.GetPath(),
		Type:        c.GetType(),
		Size:        c.GetSize(),
		DownloadURL: c.GetDownloadURL(),
	}
}

// ListRecursive returns every file below path in depth-first listing order.
// Directories are expanded from an explicit stack, one request per directory.
func (f *Fetcher) ListRecursive(ctx context.Context, owner, repo, path string) ([]Entry, error) {
	root, err := f.getContents(ctx, owner, repo, path)
	if err != nil {
		return nil, err
	}
	if root.Kind == SingleFile {
		return []Entry{root.File.Entry}, nil
	}

	var out []Entry
	stack := pushReversed(nil, root.Entries)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch e.Type {
		case "file":
			out = append(out, e)
		case "dir":
			sub, err := f.getContents(ctx, owner, repo, e.Path)
			if err != nil {
				return nil, err
			}
			if sub.Kind == SingleFile {
				out = append(out, sub.File.Entry)
				continue
			}
			stack = pushReversed(stack, sub.Entries)
		}
	}
	return out, nil
}

func pushReversed(stack, entries []Entry) []Entry {
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, entries[i])
	}
	return stack
}

// FetchContent downloads and decodes one file. Only base64 content is
// accepted.
func (f *Fetcher) FetchContent(ctx context.Context, owner, repo, path string) (string, error) {
	c, err := f.getContents(ctx, owner, repo, path)
	if err != nil {
		return "", err
	}
	if c.Kind != SingleFile {
		return "", fmt.Errorf("github: %s is a directory", path)
	}
	if c.File.Encoding != "base64" {
		return "", &EncodingError{Path: path, Encoding: c.File.Encoding}
	}
	text, err := c.File.raw.GetContent()
	if err != nil {
		return "", fmt.Errorf("github: decode %s: %w", path, err)
	}
	return text, nil
}

// FetchAll lists the repository, filters paths, and downloads admissible
// files until MaxFiles are collected. Files above MaxFileBytes are skipped.
// Per-file failures are logged and skipped. A rate limit stops the fetch:
// the files collected so far are returned together with the rate-limit
// error, so callers can tell a truncated mapping from a complete one.
func (f *Fetcher) FetchAll(ctx context.Context, owner, repo string) (*scan.FileMapping, error) {
	entries, err := f.ListRecursive(ctx, owner, repo, "")
	if err != nil {
		return nil, err
	}

	out := scan.NewFileMapping()
	for _, e := range entries {
		if out.Len() >= f.cfg.MaxFiles {
			break
		}
		if !scan.IsAdmissiblePath(e.Path) {
			continue
		}
		if e.Size > f.cfg.MaxFileBytes {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := f.FetchContent(ctx, owner, repo, e.Path)
		if err != nil {
			if IsRateLimited(err) {
				f.log.Printf("github: rate limited at %s/%s:%s after %d files", owner, repo, e.Path, out.Len())
				return out, err
			}
			f.log.Printf("github: skipping %s/%s:%s: %v", owner, repo, e.Path, err)
			continue
		}
		if len(text) > f.cfg.MaxFileBytes || !scan.IsAdmissibleContent(text) {
			continue
		}
		out.Set(e.Path, text)
	}
	return out, nil
}

// Repository is a summary of one repository visible to the caller.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"fullName"`
	HTMLURL       string    `json:"htmlUrl"`
	Description   string    `json:"description,omitempty"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	Language      string    `json:"language,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const maxRepositoryPages = 5

// ListUserRepositories lists repositories of the authenticated user, most
// recently updated first.
func (f *Fetcher) ListUserRepositories(ctx context.Context) ([]Repository, error) {
	if strings.TrimSpace(f.cfg.Token) == "" {
		return nil, fmt.Errorf("github: listing repositories requires a token")
	}
	opts := &gogh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: gogh.ListOptions{PerPage: 100},
	}
	var out []Repository
	for page := 0; page < maxRepositoryPages; page++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		repos, resp, err := f.gh.Repositories.ListByAuthenticatedUser(callCtx, opts)
		cancel()
		if err != nil {
			return nil, asRemoteError(err)
		}
		for _, r := range repos {
			out = append(out, Repository{
				Name:          r.GetName(),
				FullName:      r.GetFullName(),
				HTMLURL:       r.GetHTMLURL(),
				Description:   r.GetDescription(),
				Private:       r.GetPrivate(),
				DefaultBranch: r.GetDefaultBranch(),
				Language:      r.GetLanguage(),
				UpdatedAt:     r.GetUpdatedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}
