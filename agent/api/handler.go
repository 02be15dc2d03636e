// Package api exposes the router over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const maxRequestBodySize = 1 << 16

type Asker interface {
	Ask(ctx context.Context, q contractx.Query) (contractx.Result, error)
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

type Handler struct {
	router Asker
	health HealthChecker
}

func NewHandler(router Asker, health HealthChecker) *Handler {
	return &Handler{router: router, health: health}
}

type askResponse struct {
	Answer    string `json:"answer"`
	Retryable bool   `json:"retryable"`
	Rounds    int    `json:"rounds"`
	Error     string `json:"error,omitempty"`
}

// Routes builds the chi router with request logging bound to logger.
func (h *Handler) Routes(logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Post("/v1/ask", h.handleAsk)
	return r
}

// requestLogger binds a request-scoped logger to the context and writes one
// access line per request.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With().Str("request_id", chiMiddleware.GetReqID(r.Context())).Logger()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil && !h.health.CheckHealth(r.Context()) {
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var q contractx.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.router.Ask(r.Context(), q)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("ask failed")

		answer := res.Answer
		if answer == "" {
			answer = contractx.UserMessage(err)
		}
		JSON(w, statusFor(err), askResponse{
			Answer:    answer,
			Retryable: res.Retryable || contractx.Retryable(err),
			Rounds:    res.Rounds,
			Error:     errorKind(err),
		})
		return
	}

	JSON(w, http.StatusOK, askResponse{Answer: res.Answer, Retryable: res.Retryable, Rounds: res.Rounds})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrRoutingExhausted):
		return http.StatusOK
	case errors.Is(err, contractx.ErrReasoningTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, contractx.ErrTransientStore), errors.Is(err, contractx.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return "validation"
	case errors.Is(err, contractx.ErrRoutingExhausted):
		return "routing_exhausted"
	case errors.Is(err, contractx.ErrReasoningTimeout):
		return "reasoning_timeout"
	case errors.Is(err, contractx.ErrTransientStore):
		return "transient_store"
	case errors.Is(err, contractx.ErrPolicyIndexUnavailable):
		return "policy_unavailable"
	case errors.Is(err, contractx.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
