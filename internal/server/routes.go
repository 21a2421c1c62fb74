package server

import (
	"log"
	"net/http"

	"repolens/internal/server/handler"
	"repolens/internal/server/middleware"
)

func NewMux(h *handler.Handler, allowedOrigins []string, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	h.Register(mux)

	return middleware.CORS(allowedOrigins)(middleware.Logging(logger)(mux))
}
