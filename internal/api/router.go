package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/trivia-go/internal/api/handler"
	"github.com/mcoot/trivia-go/internal/api/middleware"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Session handler.StatusProvider
	Storage storage.Storage
	Metrics *metrics.Metrics
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.Session, cfg.Storage)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/session", sessionHandler.Current).Methods(http.MethodGet)
	api.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
