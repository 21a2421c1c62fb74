package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"repolens/internal/cache"
	"repolens/internal/github"
)

type analyzeRequest struct {
	URL string `json:"url"`
}

func (h *Handler) AnalyzeRepository(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		badRequest(w, "Repository URL is required")
		return
	}
	res, err := h.svc.AnalyzeURL(r.Context(), req.URL, githubToken(r), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UploadRepository analyzes a zip archive sent as the multipart field
// "file". The upload is spooled to a temp file that is removed on return.
func (h *Handler) UploadRepository(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Upload too large"})
			return
		}
		badRequest(w, "Invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.log.Printf("upload: remove multipart files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "No file uploaded")
		return
	}
	defer file.Close()
	if !strings.EqualFold(path.Ext(header.Filename), ".zip") {
		badRequest(w, "Only .zip archives are supported")
		return
	}

	tmpPath, err := h.spool(file)
	if tmpPath != "" {
		defer h.removeTemp(tmpPath)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.AnalyzeArchiveFile(r.Context(), header.Filename, tmpPath, userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// spool copies src into a new temp file and returns its path. The path is
// returned even on failure so the caller can remove it.
func (h *Handler) spool(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(h.tempDir, "repolens-upload-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return name, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return name, fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func (h *Handler) removeTemp(p string) {
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.log.Printf("upload: remove temp file %s: %v", p, err)
	}
}

func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	token := githubToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "GitHub token is required"})
		return
	}
	if h.repos == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Repository listing is not configured"})
		return
	}
	load := func() ([]github.Repository, error) {
		lister, err := h.repos(token)
		if err != nil {
			return nil, err
		}
		return lister.ListUserRepositories(r.Context())
	}
	var repos []github.Repository
	var err error
	if uid := userID(r); uid != "" {
		repos, err = h.caches.Repos.GetOrSet(cache.UserReposKey(uid), load, cache.UserReposTTL)
	} else {
		repos, err = load()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if repos == nil {
		repos = []github.Repository{}
	}
	writeJSON(w, http.StatusOK, repos)
}
