package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jusunglee/departures-go/internal/feed"
	"github.com/jusunglee/departures-go/internal/logging"
	"github.com/jusunglee/departures-go/internal/telemetry"
	"github.com/jusunglee/departures-go/pkg/departures"
)

// Handler handles HTTP requests
type Handler struct {
	client departures.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(client departures.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/departures", h.handleDepartures).Methods("GET")
	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")
}

// NewRouter builds the full handler chain. metrics may be nil.
func NewRouter(h *Handler, metrics *telemetry.Metrics, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	if metrics != nil {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
		r.Use(MetricsMiddleware(metrics))
	}

	// wrap the router itself so unmatched requests and preflights are covered
	var handler http.Handler = r
	handler = CORSMiddleware(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"title":     "departures-go",
		"endpoints": []string{"/departures", "/healthz", "/metrics"},
	}
	h.writeJSON(w, response)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) handleDepartures(w http.ResponseWriter, r *http.Request) {
	deps, err := h.client.GetDepartures(r.Context())
	if err != nil {
		status := statusForError(err)
		logging.LogError(logging.FromContext(r.Context()), "failed to get departures", err,
			slog.Int("status", status),
			slog.String("request_id", RequestIDFromContext(r.Context())))
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, deps)
}

// statusForError maps pipeline failures onto gateway status codes
func statusForError(err error) int {
	var fetchErr *feed.FetchError
	var parseErr *feed.ParseError
	var timeoutErr interface{ Timeout() bool }

	switch {
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &timeoutErr) && timeoutErr.Timeout():
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
