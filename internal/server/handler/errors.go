package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"repolens/internal/analysis"
	"repolens/internal/artifact"
	"repolens/internal/github"
	"repolens/internal/history"
	"repolens/internal/llm"
	"repolens/internal/scan"
)

const msgRateLimited = "Rate limit exceeded, please try again later"

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status and a client-facing
// message. Internal details stay in the server log.
func statusFor(err error) (int, string) {
	var archiveErr *scan.ArchiveError
	var remoteErr *github.RemoteAPIError
	var llmErr *llm.Error
	switch {
	case errors.As(err, &archiveErr):
		return http.StatusBadRequest, "Failed to process archive"
	case errors.Is(err, analysis.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, analysis.ErrNoAdmissibleFiles):
		return http.StatusUnprocessableEntity, "No analyzable files found in repository"
	case errors.Is(err, history.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case github.IsRateLimited(err), llm.IsRateLimited(err):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.As(err, &remoteErr):
		if remoteErr.Status == http.StatusNotFound {
			return http.StatusNotFound, "Repository not found"
		}
		return http.StatusBadGateway, "Failed to fetch repository"
	case errors.As(err, &llmErr):
		return http.StatusBadGateway, "Language model request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	h.log.Printf("%s %s: %d: %v", r.Method, r.URL.Path, status, err)
	if status == http.StatusTooManyRequests {
		var llmErr *llm.Error
		if errors.As(err, &llmErr) && llmErr.RetryAfter > 0 {
			secs := int(math.Ceil(llmErr.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
