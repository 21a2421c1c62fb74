package handler

import (
	"net/http"

	"repolens/internal/cache"
	"repolens/internal/samples"
	"repolens/internal/types"
)

func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	load := h.samples
	if load == nil {
		load = samples.Load
	}
	out, err := h.caches.Samples.GetOrSet(cache.CodeSamplesKey, load, cache.CodeSamplesTTL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []types.CodeSample{}
	}
	writeJSON(w, http.StatusOK, out)
}
