// Package httptransport is the thin HTTP layer. Handlers delegate to the
// oracle service without embedding business logic so transport concerns stay
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verivote/internal/oracle/signaltoken"
	"verivote/pkg/platform/middleware/admin"
	"verivote/pkg/platform/middleware/metadata"
	"verivote/pkg/platform/middleware/requesttime"
	"verivote/pkg/requestcontext"
)

// RouterConfig carries the transport-level knobs.
type RouterConfig struct {
	// AdminToken gates the operator override endpoint. Empty disables it.
	AdminToken string

	// RequestTimeout bounds synchronous handler work. Pipeline processing is
	// asynchronous and unaffected.
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler, signals *signaltoken.Service, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(correlationID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/verifications", h.handleSubmit)
		r.Get("/verifications/{requestID}", h.handleStatus)
		r.Get("/wallets/{wallet}/verifications", h.handleHistory)
		r.Get("/stats", h.handleStats)

		r.With(signalAuth(signals, logger)).
			Post("/signals", h.handleExternalSignal)

		r.With(admin.RequireAdminToken(cfg.AdminToken, logger)).
			Post("/verifications/{requestID}/override", h.handleOverride)
	})

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// correlationID assigns each request a correlation ID, echoed back in the
// X-Request-ID header. Distinct from verification request IDs.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := requestcontext.WithRequestID(r.Context(), rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
