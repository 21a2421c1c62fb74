package handler

import (
	"net/http"
	"strings"
)

type reportEntry struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Report storage is not configured"})
		return
	}
	id := r.PathValue("id")
	names, err := h.artifacts.List(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]reportEntry, 0, len(names))
	for _, n := range names {
		u, err := h.artifacts.URL(r.Context(), id, n)
		if err != nil {
			h.log.Printf("reports: url for %s/%s: %v", id, n, err)
		}
		out = append(out, reportEntry{Name: n, URL: u})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Report storage is not configured"})
		return
	}
	id, name := r.PathValue("id"), r.PathValue("name")
	if strings.Contains(name, "..") || strings.ContainsAny(id, "./") {
		badRequest(w, "Invalid report path")
		return
	}
	body, err := h.artifacts.Get(r.Context(), id, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Printf("reports: write %s/%s: %v", id, name, err)
	}
}
