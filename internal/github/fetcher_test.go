package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	dirs     map[string][]map[string]any
	files    map[string]map[string]any
	fail     map[string]int
	requests []string
	headers  http.Header
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		dirs:  map[string][]map[string]any{},
		files: map[string]map[string]any{},
		fail:  map[string]int{},
	}
}

func (f *fakeRepo) dir(path string, entries ...map[string]any) {
	f.dirs[path] = entries
}

func (f *fakeRepo) file(path, content string) {
	f.files[path] = map[string]any{
		"name":     path[strings.LastIndex(path, "/")+1:],
		"path":     path,
		"type":     "file",
		"size":     len(content),
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func entry(path, typ string, size int) map[string]any {
	return map[string]any{"name": path[strings.LastIndex(path, "/")+1:], "path": path, "type": typ, "size": size}
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const prefix = "/repos/octo/demo/contents"
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.headers = r.Header.Clone()
	f.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	p := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	w.Header().Set("Content-Type", "application/json")
	if status, ok := f.fail[p]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded for 127.0.0.1."}`))
		return
	}
	if entries, ok := f.dirs[p]; ok {
		_ = json.NewEncoder(w).Encode(entries)
		return
	}
	if file, ok := f.files[p]; ok {
		_ = json.NewEncoder(w).Encode(file)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message":"Not Found"}`))
}

func newTestFetcher(t *testing.T, h http.Handler, cfg Config) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	return f
}

func sampleRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.dir("",
		entry("README.md", "file", 7),
		entry("src", "dir", 0),
		entry("node_modules", "dir", 0),
		entry("logo.png", "file", 10),
		entry("z.go", "file", 9),
	)
	repo.dir("src", entry("src/app.js", "file", 5), entry("src/lib", "dir", 0), entry("src/b.js", "file", 5))
	repo.dir("src/lib", entry("src/lib/util.js", "file", 4))
	repo.dir("node_modules", entry("node_modules/pkg.js", "file", 3))
	repo.file("README.md", "# Demo\n")
	repo.file("src/app.js", "app()")
	repo.file("src/b.js", "b()")
	repo.file("src/lib/util.js", "u()")
	repo.file("node_modules/pkg.js", "x")
	repo.file("logo.png", "not really")
	repo.file("z.go", "package z")
	return repo
}

func TestListRecursive_DepthFirstOrder(t *testing.T) {
	f := newTestFetcher(t, sampleRepo(), Config{})

	entries, err := f.ListRecursive(context.Background(), "octo", "demo", "")
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{
		"README.md",
		"src/app.js",
		"src/lib/util.js",
		"src/b.js",
		"node_modules/pkg.js",
		"logo.png",
		"z.go",
	}, paths)
}

func TestFetchAll_FiltersAndDecodes(t *testing.T) {
	repo := sampleRepo()
	f := newTestFetcher(t, repo, Config{})

	files, err := f.FetchAll(context.Background(), "octo", "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "src/app.js", "src/lib/util.js", "src/b.js", "z.go"}, files.Paths())
	got, _ := files.Get("README.md")
	assert.Equal(t, "# Demo\n", got)

	for _, p := range repo.requests {
		assert.NotContains(t, p, "pkg.js", "ignored paths must not be downloaded")
		assert.NotContains(t, p, "logo.png")
	}
}

func TestFetchAll_RespectsCeilings(t *testing.T) {
	repo := sampleRepo()
	repo.dir("", entry("big.txt", "file", 2048), entry("README.md", "file", 7), entry("z.go", "file", 9))
	repo.file("big.txt", strings.Repeat("x", 2048))
	f := newTestFetcher(t, repo, Config{MaxFiles: 1, MaxFileBytes: 1024})

	files, err := f.FetchAll(context.Background(), "octo", "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, files.Paths())
}

func TestFetchAll_SkipsFailingFiles(t *testing.T) {
	repo := sampleRepo()
	repo.fail["src/app.js"] = http.StatusInternalServerError
	f := newTestFetcher(t, repo, Config{})

	files, err := f.FetchAll(context.Background(), "octo", "demo")
	require.NoError(t, err)
	_, ok := files.Get("src/app.js")
	assert.False(t, ok)
	assert.Equal(t, 4, files.Len())
}

func TestFetchAll_RateLimitMidwayReturnsPartialWithError(t *testing.T) {
	repo := sampleRepo()
	repo.fail["src/b.js"] = http.StatusTooManyRequests
	f := newTestFetcher(t, repo, Config{})

	files, err := f.FetchAll(context.Background(), "octo", "demo")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	require.NotNil(t, files)
	assert.Equal(t, []string{"README.md", "src/app.js", "src/lib/util.js"}, files.Paths())

	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, p := range repo.requests {
		assert.NotContains(t, p, "z.go")
	}
}

func TestFetchAll_EveryFileRateLimited(t *testing.T) {
	repo := sampleRepo()
	for _, p := range []string{"README.md", "src/app.js", "src/lib/util.js", "src/b.js", "z.go"} {
		repo.fail[p] = http.StatusForbidden
	}
	f := newTestFetcher(t, repo, Config{})

	files, err := f.FetchAll(context.Background(), "octo", "demo")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Zero(t, files.Len())
}

func TestListRecursive_RateLimitIsDistinguishable(t *testing.T) {
	repo := sampleRepo()
	repo.fail["src"] = http.StatusForbidden
	f := newTestFetcher(t, repo, Config{})

	_, err := f.ListRecursive(context.Background(), "octo", "demo", "")
	require.Error(t, err)

	var apiErr *RemoteAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.True(t, IsRateLimited(err))
}

func TestListRecursive_NotFoundIsGenericFailure(t *testing.T) {
	f := newTestFetcher(t, newFakeRepo(), Config{})

	_, err := f.ListRecursive(context.Background(), "octo", "demo", "missing")
	require.Error(t, err)
	var apiErr *RemoteAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.False(t, IsRateLimited(err))
}

func TestFetchContent_RejectsUnknownEncoding(t *testing.T) {
	repo := newFakeRepo()
	repo.files["notes.txt"] = map[string]any{"name": "notes.txt", "path": "notes.txt", "type": "file", "encoding": "none", "content": ""}
	f := newTestFetcher(t, repo, Config{})

	_, err := f.FetchContent(context.Background(), "octo", "demo", "notes.txt")
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "none", encErr.Encoding)
}

func TestFetcher_SendsTokenHeaders(t *testing.T) {
	repo := sampleRepo()
	f := newTestFetcher(t, repo, Config{Token: "s3cret", UserAgent: "repolens-test"})

	_, err := f.FetchContent(context.Background(), "octo", "demo", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "token s3cret", repo.headers.Get("Authorization"))
	assert.Equal(t, "application/vnd.github.v3+json", repo.headers.Get("Accept"))
	assert.Equal(t, "repolens-test", repo.headers.Get("User-Agent"))
}

func TestFetcher_NoTokenSendsNoAuthorization(t *testing.T) {
	repo := sampleRepo()
	f := newTestFetcher(t, repo, Config{})

	_, err := f.FetchContent(context.Background(), "octo", "demo", "README.md")
	require.NoError(t, err)
	assert.Empty(t, repo.headers.Get("Authorization"))
}

func TestRemoteAPIError_RateLimited(t *testing.T) {
	assert.True(t, (&RemoteAPIError{Status: 429}).RateLimited())
	assert.True(t, (&RemoteAPIError{Status: 403, Body: "API rate limit exceeded"}).RateLimited())
	assert.False(t, (&RemoteAPIError{Status: 403, Body: "Resource not accessible"}).RateLimited())
	assert.False(t, (&RemoteAPIError{Status: 500}).RateLimited())
}
