// Package handlers exposes the HTTP surface: push-style event delivery,
// outcome queries, and health probes.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wardenworks/imgwarden/internal/logging"
	"github.com/wardenworks/imgwarden/internal/metrics"
	"github.com/wardenworks/imgwarden/internal/models"
	"github.com/wardenworks/imgwarden/internal/ratelimit"
	"github.com/wardenworks/imgwarden/internal/repository"
	"github.com/wardenworks/imgwarden/internal/tokens"
)

const defaultMaxBodyBytes = 1 << 20

// EventProcessor handles one delivered storage event. A non-nil error means
// the delivery should be retried by the pusher.
type EventProcessor interface {
	Process(ctx context.Context, payload []byte, receivedAt time.Time) (*models.Invocation, error)
}

// ConnChecker reports broker connectivity for the readiness probe.
type ConnChecker interface {
	IsConnected() bool
}

// EventsHandler serves push deliveries and outcome queries.
type EventsHandler struct {
	processor EventProcessor
	verifier  *tokens.Verifier
	limiter   ratelimit.RateLimiter
	repo      repository.Repository
	broker    ConnChecker
	logger    *logging.Logger

	maxBodyBytes int64
}

// NewEventsHandler creates the handler. verifier may be nil to disable push
// authentication (local development only).
func NewEventsHandler(processor EventProcessor, verifier *tokens.Verifier, limiter ratelimit.RateLimiter, repo repository.Repository, logger *logging.Logger) *EventsHandler {
	if limiter == nil {
		limiter = ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EventsHandler{
		processor:    processor,
		verifier:     verifier,
		limiter:      limiter,
		repo:         repo,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// SetBrokerCheck configures an optional broker connectivity check for the
// readiness probe.
func (h *EventsHandler) SetBrokerCheck(c ConnChecker) {
	h.broker = c
}

// HandlePush accepts a push-delivered storage event. A 2xx acknowledges the
// delivery; 5xx asks the pusher to redeliver.
func (h *EventsHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := h.clientIP(r)
	if h.verifier != nil {
		token := extractBearer(r.Header.Get("Authorization"))
		if token == "" {
			h.sendError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := h.verifier.Verify(token)
		if err != nil {
			h.sendError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Subject != "" {
			key = claims.Subject
		}
	}

	allowed, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		// Fail open: a limiter outage must not stall deliveries.
		h.logger.WarnContext(r.Context(), "rate limiter unavailable", logging.Error(err))
		allowed = true
	}
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(key).Inc()
		h.sendError(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.sendError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if len(body) == 0 {
		h.sendError(w, "empty body", http.StatusBadRequest)
		return
	}

	inv, err := h.processor.Process(r.Context(), body, time.Now())
	if err != nil {
		// Non-2xx so the pusher redelivers.
		metrics.EventsTotal.WithLabelValues("push", "redelivered").Inc()
		h.sendError(w, "processing failed", http.StatusServiceUnavailable)
		return
	}
	metrics.EventsTotal.WithLabelValues("push", string(inv.Status)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"invocation_id": inv.ID,
		"status":        string(inv.Status),
	})
}

// HandleOutcomes returns the most recent invocation records.
func (h *EventsHandler) HandleOutcomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			h.sendError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recent, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list outcomes", logging.Error(err))
		h.sendError(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outcomes": recent,
		"count":    len(recent),
	})
}

func (h *EventsHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func (h *EventsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.sendError(w, "repository unavailable", http.StatusServiceUnavailable)
		return
	}
	if h.broker != nil && !h.broker.IsConnected() {
		h.sendError(w, "broker disconnected", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ready",
	})
}

func (h *EventsHandler) sendError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (h *EventsHandler) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
