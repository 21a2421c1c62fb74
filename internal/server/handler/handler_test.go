package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/analysis"
	"repolens/internal/artifact"
	"repolens/internal/cache"
	"repolens/internal/github"
	"repolens/internal/history"
	"repolens/internal/llm"
	"repolens/internal/scan"
	"repolens/internal/types"
)

type stubFetcher struct {
	mu    sync.Mutex
	files *scan.FileMapping
	err   error
}

func (f *stubFetcher) FetchAll(context.Context, string, string) (*scan.FileMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files, f.err
}

type stubLister struct {
	repos []github.Repository
	calls int
}

func (l *stubLister) ListUserRepositories(context.Context) ([]github.Repository, error) {
	l.calls++
	return l.repos, nil
}

type env struct {
	mux       *http.ServeMux
	llm       *llm.FakeClient
	fetcher   *stubFetcher
	lister    *stubLister
	history   *history.MemoryStore
	artifacts *artifact.MemoryStore
	tempDir   string
}

func newEnv(t *testing.T, replies ...string) *env {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	files := scan.NewFileMapping()
	files.Set("main.go", "package main\n\nfunc main() {}\n")
	files.Set("README.md", "# Demo\n")

	e := &env{
		llm:       llm.NewFakeClient(replies...),
		fetcher:   &stubFetcher{files: files},
		lister:    &stubLister{repos: []github.Repository{{Name: "demo", FullName: "octo/demo"}}},
		history:   history.NewMemoryStore(),
		artifacts: artifact.NewMemoryStore(),
		tempDir:   t.TempDir(),
	}
	caches := cache.NewCaches()
	svc, err := analysis.NewService(analysis.ServiceConfig{
		Orchestrator: analysis.NewOrchestrator(e.llm, analysis.Options{Logger: logger}),
		Fetcher: func(string) (analysis.RepoFetcher, error) {
			return e.fetcher, nil
		},
		Caches:    caches,
		History:   e.history,
		Artifacts: e.artifacts,
		Logger:    logger,
	})
	require.NoError(t, err)

	h := New(Deps{
		Service:   svc,
		History:   e.history,
		Artifacts: e.artifacts,
		Caches:    caches,
		Repos: func(string) (RepoLister, error) {
			return e.lister, nil
		},
		TempDir: e.tempDir,
		Logger:  logger,
	})
	e.mux = http.NewServeMux()
	h.Register(e.mux)
	return e
}

func (e *env) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExplain_RecordsHistory(t *testing.T) {
	e := newEnv(t, "It prints one.")
	rr := e.do(t, http.MethodPost, "/api/explain", `{"code":"print(1)","language":"Python"}`,
		map[string]string{HeaderUserID: "u1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "It prints one.", decodeBody[explainResponse](t, rr).Explanation)

	recs, err := e.history.List(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, types.KindExplain, recs[0].Kind)
}

func TestExplain_BadInput(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/explain", `{"code":"  "}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/explain", `{not json`, nil).Code)
}

func TestGenerate_DegradesOnModelFailure(t *testing.T) {
	e := newEnv(t)
	e.llm.Err = &llm.Error{Provider: "fake", Status: http.StatusBadRequest, Err: assert.AnError}
	rr := e.do(t, http.MethodPost, "/api/generate", `{"description":"reverse a string"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, analysis.NoCode, decodeBody[generateResponse](t, rr).Code)
}

func TestAnalyzeRepository_Success(t *testing.T) {
	e := newEnv(t, "# Analysis\n\nA tiny Go program.", "# Manual\n\nRun it.")
	rr := e.do(t, http.MethodPost, "/api/repository/analyze", `{"url":"https://github.com/octo/demo"}`,
		map[string]string{HeaderUserID: "u1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decodeBody[types.AnalysisResult](t, rr)
	assert.Equal(t, "octo/demo", res.RepositoryName)
	assert.Contains(t, res.TechnicalAnalysis, "A tiny Go program.")
	assert.Contains(t, res.UserManual, "Run it.")

	rr = e.do(t, http.MethodGet, "/api/reports/"+res.ID+"/"+artifact.UserManualName, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rr.Body.String(), "Run it.")

	rr = e.do(t, http.MethodGet, "/api/reports/"+res.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]reportEntry](t, rr), 2)
}

func TestAnalyzeRepository_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		err    error
		empty  bool
		status int
		msg    string
	}{
		{name: "invalid url", url: "not a url", status: http.StatusBadRequest},
		{name: "missing url", url: "", status: http.StatusBadRequest},
		{name: "rate limited", url: "https://github.com/octo/a", err: &github.RemoteAPIError{Status: http.StatusTooManyRequests}, status: http.StatusTooManyRequests, msg: msgRateLimited},
		{name: "remote failure", url: "https://github.com/octo/b", err: &github.RemoteAPIError{Status: http.StatusInternalServerError}, status: http.StatusBadGateway},
		{name: "not found", url: "https://github.com/octo/c", err: &github.RemoteAPIError{Status: http.StatusNotFound}, status: http.StatusNotFound},
		{name: "no files", url: "https://github.com/octo/d", empty: true, status: http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.fetcher.err = tc.err
			if tc.empty {
				e.fetcher.files = scan.NewFileMapping()
			}
			body, _ := json.Marshal(analyzeRequest{URL: tc.url})
			rr := e.do(t, http.MethodPost, "/api/repository/analyze", string(body), nil)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.msg != "" {
				assert.Equal(t, tc.msg, decodeBody[errorBody](t, rr).Error)
			}
		})
	}
}

func TestWriteError_LLMRateLimitSetsRetryAfter(t *testing.T) {
	h := New(Deps{Logger: log.New(io.Discard, "", 0)})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/repository/analyze", nil)
	h.writeError(rr, req, &llm.Error{Provider: "fake", Status: 429, RateLimited: true, RetryAfter: 1500 * time.Millisecond, Err: assert.AnError})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (e *env) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/repository/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadRepository_Success(t *testing.T) {
	e := newEnv(t)
	data := zipOf(t, map[string]string{"demo/main.go": "package main", "demo/README.md": "# Demo"})
	rr := e.upload(t, "demo.zip", data)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeBody[types.AnalysisResult](t, rr)
	assert.Equal(t, "demo", res.RepositoryName)
	assert.Equal(t, 2, res.TotalFiles)
	assertTempDirEmpty(t, e.tempDir)
}

func TestUploadRepository_Failures(t *testing.T) {
	e := newEnv(t)

	rr := e.upload(t, "broken.zip", []byte("definitely not a zip"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Failed to process archive", decodeBody[errorBody](t, rr).Error)
	assertTempDirEmpty(t, e.tempDir)

	rr = e.upload(t, "images.zip", zipOf(t, map[string]string{"logo.png": "x", "node_modules/x.js": "y"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertTempDirEmpty(t, e.tempDir)

	rr = e.upload(t, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRepositories_CachedPerUser(t *testing.T) {
	e := newEnv(t)
	headers := map[string]string{HeaderUserID: "u1", HeaderGitHubToken: "tok"}

	rr := e.do(t, http.MethodGet, "/api/repositories", "", headers)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "octo/demo", decodeBody[[]github.Repository](t, rr)[0].FullName)

	e.do(t, http.MethodGet, "/api/repositories", "", headers)
	assert.Equal(t, 1, e.lister.calls)

	rr = e.do(t, http.MethodGet, "/api/repositories", "", map[string]string{HeaderUserID: "u1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHistory_ListGetDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, e.history.Save(ctx, types.HistoryRecord{ID: "a", UserID: "u1", Kind: types.KindExplain, Title: "first", CreatedAt: now}))
	require.NoError(t, e.history.Save(ctx, types.HistoryRecord{ID: "b", UserID: "u2", Kind: types.KindGenerate, Title: "other", CreatedAt: now}))
	u1 := map[string]string{HeaderUserID: "u1"}

	rr := e.do(t, http.MethodGet, "/api/history", "", u1)
	require.Equal(t, http.StatusOK, rr.Code)
	recs := decodeBody[[]types.HistoryRecord](t, rr)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/history/a", "", u1).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/history/b", "", u1).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/history/b", "", u1).Code)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/history/a", "", u1).Code)
	rr = e.do(t, http.MethodGet, "/api/history", "", u1)
	assert.Empty(t, decodeBody[[]types.HistoryRecord](t, rr))

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/history", "", nil).Code)
}

func TestListSamples(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/api/samples", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	samples := decodeBody[[]types.CodeSample](t, rr)
	assert.NotEmpty(t, samples)
}

func TestAnalyzeWS_StreamsStagesThenResult(t *testing.T) {
	e := newEnv(t, "# Analysis\n\nA tiny Go program.", "# Manual\n\nRun it.")
	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(analyzeWSInbound{Type: "analyze", URL: "github.com/octo/demo"}))

	var stages []string
	var final analyzeWSOutbound
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg analyzeWSOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "stage" {
			stages = append(stages, msg.Stage)
			continue
		}
		final = msg
		break
	}

	assert.Equal(t, []string{"fetching", "sampling", "analyzing", "writing_manual", "done"}, stages)
	require.Equal(t, "result", final.Type)
	require.NotNil(t, final.Result)
	assert.Equal(t, "octo/demo", final.Result.RepositoryName)
}

func TestAnalyzeWS_RejectsUnknownType(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/analyze", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(analyzeWSInbound{Type: "launch"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg analyzeWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "unsupported type")
}

func readWSResult(t *testing.T, conn *websocket.Conn) analyzeWSOutbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg analyzeWSOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "stage" {
			return msg
		}
	}
}

func TestAnalyzeWS_UserIDComesOnlyFromHeader(t *testing.T) {
	e := newEnv(t, "# Analysis", "# Manual", "# Analysis", "# Manual")
	srv := httptest.NewServer(e.mux)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze"
	ctx := context.Background()

	spoofed, _, err := websocket.DefaultDialer.Dial(wsURL+"?user_id=victim", nil)
	require.NoError(t, err)
	defer spoofed.Close()
	require.NoError(t, spoofed.WriteJSON(analyzeWSInbound{Type: "analyze", URL: "github.com/octo/demo"}))
	require.Equal(t, "result", readWSResult(t, spoofed).Type)

	recs, err := e.history.List(ctx, "victim", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	header := http.Header{}
	header.Set(HeaderUserID, "u1")
	owned, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer owned.Close()
	require.NoError(t, owned.WriteJSON(analyzeWSInbound{Type: "analyze", URL: "github.com/octo/demo"}))
	require.Equal(t, "result", readWSResult(t, owned).Type)

	recs, err = e.history.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
