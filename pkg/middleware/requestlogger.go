package middleware

import (
	"log/slog"
	"net/http"

	"github.com/murabaat/review-service/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, user_id, user_role,
// trace_id and span_id in the request context. Mount it after AccessLog, Tracing
// and the auth middleware so those values are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" {
				ctx = logger.WithUserID(ctx, id)
			}
			if role := RoleFromContext(ctx); role != "" {
				ctx = logger.WithUserRole(ctx, role)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
