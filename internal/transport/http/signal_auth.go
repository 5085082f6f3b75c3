package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"verivote/internal/oracle/signaltoken"
	dErrors "verivote/pkg/domain-errors"
	"verivote/pkg/requestcontext"
)

type signalClaimsKey struct{}

// signalAuth authenticates external verifier callbacks. The bearer token
// carries the verdict; validated claims are stashed in the context for the
// handler.
func signalAuth(signals *signaltoken.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if signals == nil {
				writeError(w, dErrors.New(dErrors.CodeUnavailable, "external signals are not configured"))
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "bearer signal token required"))
				return
			}

			claims, err := signals.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "signal token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, signalClaimsKey{}, claims)))
		})
	}
}

func signalClaims(ctx context.Context) *signaltoken.Claims {
	claims, _ := ctx.Value(signalClaimsKey{}).(*signaltoken.Claims)
	return claims
}
