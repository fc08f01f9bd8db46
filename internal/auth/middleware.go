package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// contextKey is an unexported type used for context keys to avoid collisions.
type contextKey int

const (
	userContextKey contextKey = iota
)

// credentialsError is the single message for every rejected token.
const credentialsError = "Could not validate credentials"

// Middleware returns an HTTP middleware that validates the bearer token in
// the Authorization header, loads the named user and injects it into the
// request context.
func Middleware(jwtMgr *JWTManager, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.NewUnauthorizedError("Not authenticated").Write(w, r)
				return
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				apierrors.NewUnauthorizedError("Not authenticated").Write(w, r)
				return
			}

			claims, err := jwtMgr.ValidateToken(tokenStr)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				apierrors.NewUnauthorizedError(credentialsError).Write(w, r)
				return
			}

			user, err := users.GetByUsername(r.Context(), claims.Sub)
			if err != nil {
				logger.Debug("token user lookup failed", "username", claims.Sub, "error", err)
				apierrors.NewUnauthorizedError(credentialsError).Write(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored in the context by the auth
// middleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok
}
