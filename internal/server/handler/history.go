package handler

import (
	"net/http"
	"strconv"

	"repolens/internal/cache"
	"repolens/internal/history"
	"repolens/internal/types"
)

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "User id is required"})
		return "", false
	}
	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "History is not configured"})
		return "", false
	}
	return uid, true
}

// ListHistory returns the caller's records, newest first. The default page
// is cached per user; an explicit ?limit bypasses the cache.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	load := func(limit int) func() ([]types.HistoryRecord, error) {
		return func() ([]types.HistoryRecord, error) {
			return h.history.List(r.Context(), uid, limit)
		}
	}

	var recs []types.HistoryRecord
	var err error
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil || limit <= 0 {
			badRequest(w, "Invalid limit")
			return
		}
		recs, err = load(limit)()
	} else {
		recs, err = h.caches.History.GetOrSet(cache.HistoryKey(uid), load(history.DefaultListLimit), cache.HistoryTTL)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []types.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	rec, err := h.ownedRecord(r, uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	rec, err := h.ownedRecord(r, uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.history.Delete(r.Context(), rec.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.caches.History.Delete(cache.HistoryKey(uid))
	w.WriteHeader(http.StatusNoContent)
}

// ownedRecord hides records of other users behind ErrNotFound.
func (h *Handler) ownedRecord(r *http.Request, uid string) (types.HistoryRecord, error) {
	rec, err := h.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return types.HistoryRecord{}, err
	}
	if rec.UserID != uid {
		return types.HistoryRecord{}, history.ErrNotFound
	}
	return rec, nil
}
