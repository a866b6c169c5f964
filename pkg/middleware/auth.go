package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "slotly/pkg/errors"
	httputil "slotly/pkg/http"
	"slotly/pkg/logger"
	"slotly/pkg/token"

	"github.com/julienschmidt/httprouter"
)

const OwnerIDKey contextKey = "owner_id"

// RequireAuth wraps a route with Bearer-token verification and injects the
// authenticated owner id into the request context.
func RequireAuth(secret string, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeUnauthorized(w, log, r)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := token.Parse(secret, tokenString)
			if err != nil {
				log.Warn("Rejected invalid session token",
					"request_id", requestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				writeUnauthorized(w, log, r)
				return
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, claims.UserID)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

// OwnerID returns the authenticated owner id set by RequireAuth.
func OwnerID(ctx context.Context) string {
	if v := ctx.Value(OwnerIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request) {
	if err := httputil.WriteError(w, apperrors.Unauthorized("Missing or invalid authorization")); err != nil {
		log.Error("failed to write error response",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
}
