// Package handler serves the JSON and websocket endpoints of the API.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/artifact"
	"repolens/internal/cache"
	"repolens/internal/github"
	"repolens/internal/history"
	"repolens/internal/types"
)

const (
	HeaderUserID      = "X-User-ID"
	HeaderGitHubToken = "X-GitHub-Token"

	defaultMaxUploadBytes = 50 << 20
	maxJSONBodyBytes      = 1 << 20
)

// RepoLister lists the repositories visible to one GitHub token.
type RepoLister interface {
	ListUserRepositories(ctx context.Context) ([]github.Repository, error)
}

type Deps struct {
	Service   *analysis.Service
	History   history.Store
	Artifacts artifact.Store
	Caches    *cache.Caches
	// Repos returns a lister acting with the caller's token.
	Repos func(token string) (RepoLister, error)
	// Samples loads the code samples; defaults to the embedded set.
	Samples        func() ([]types.CodeSample, error)
	MaxUploadBytes int64
	// TempDir holds spooled uploads; "" means os.TempDir().
	TempDir string
	Logger  *log.Logger
}

type Handler struct {
	svc       *analysis.Service
	history   history.Store
	artifacts artifact.Store
	caches    *cache.Caches
	repos     func(string) (RepoLister, error)
	samples   func() ([]types.CodeSample, error)
	maxUpload int64
	tempDir   string
	log       *log.Logger
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Caches == nil {
		d.Caches = cache.NewCaches()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		svc:       d.Service,
		history:   d.History,
		artifacts: d.Artifacts,
		caches:    d.Caches,
		repos:     d.Repos,
		samples:   d.Samples,
		maxUpload: d.MaxUploadBytes,
		tempDir:   d.TempDir,
		log:       d.Logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

func githubToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderGitHubToken))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("POST /api/explain", h.Explain)
	mux.HandleFunc("POST /api/generate", h.Generate)

	mux.HandleFunc("POST /api/repository/analyze", h.AnalyzeRepository)
	mux.HandleFunc("POST /api/repository/upload", h.UploadRepository)
	mux.HandleFunc("GET /api/repositories", h.ListRepositories)

	mux.HandleFunc("GET /api/history", h.ListHistory)
	mux.HandleFunc("GET /api/history/{id}", h.GetHistory)
	mux.HandleFunc("DELETE /api/history/{id}", h.DeleteHistory)

	mux.HandleFunc("GET /api/samples", h.ListSamples)
	mux.HandleFunc("GET /api/reports/{id}", h.ListReports)
	mux.HandleFunc("GET /api/reports/{id}/{name}", h.GetReport)

	mux.HandleFunc("GET /ws/analyze", h.AnalyzeWS)
}
