package handler

import (
	"net/http"
	"strings"
)

type explainRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		badRequest(w, "Code is required")
		return
	}
	out := h.svc.Explain(r.Context(), req.Code, req.Language, userID(r))
	writeJSON(w, http.StatusOK, explainResponse{Explanation: out})
}

type generateRequest struct {
	Description string `json:"description"`
	Language    string `json:"language"`
}

type generateResponse struct {
	Code string `json:"code"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		badRequest(w, "Description is required")
		return
	}
	out := h.svc.Generate(r.Context(), req.Description, req.Language, userID(r))
	writeJSON(w, http.StatusOK, generateResponse{Code: out})
}
