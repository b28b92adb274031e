package http

import (
	"net/http"
	"strings"

	"github.com/murabaat/review-service/internal/domain"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	"github.com/murabaat/review-service/pkg/httputil"
	"github.com/murabaat/review-service/pkg/middleware"
)

var errAdminRequired = apperrors.Unauthorized("admin role required")

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// principalFrom builds the caller's principal from the claims the auth
// middleware stored. Requests without claims are anonymous.
func principalFrom(r *http.Request) domain.Principal {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return domain.Anonymous
	}
	return domain.Principal{
		UserID: userID,
		Role:   domain.ParseRole(middleware.RoleFromContext(r.Context())),
	}
}
