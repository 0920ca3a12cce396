// Package server assembles the HTTP routing for the moderation service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenworks/imgwarden/internal/handlers"
	"github.com/wardenworks/imgwarden/internal/middleware"
)

// NewRouter constructs a ServeMux with the moderation API routes registered.
func NewRouter(h *handlers.EventsHandler) http.Handler {
	mux := http.NewServeMux()

	// Push delivery and outcome queries
	mux.HandleFunc("/api/v1/events", h.HandlePush)
	mux.HandleFunc("/api/v1/outcomes", h.HandleOutcomes)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
