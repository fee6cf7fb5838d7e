package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"logbook.app/backend/internal/auth"
	"logbook.app/backend/internal/store"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	userKey
)

// UserIDFromContext returns the internal user id the auth middleware stashed.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func userFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey).(*store.User)
	return u
}

// AuthMiddleware validates the bearer token and syncs the user row: created
// on first sight, profile and last-login refreshed on every request after.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenString, h.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		profile := store.UserProfile{
			Username:  claims.Username,
			Email:     claims.Email,
			AvatarURL: claims.Picture,
		}
		if profile.Username == "" {
			if at := strings.Index(profile.Email, "@"); at > 0 {
				profile.Username = profile.Email[:at]
			} else {
				profile.Username = "Unknown"
			}
		}

		user, err := h.dbStore.SyncUser(claims.Subject, profile, r.UserAgent(), clientIP(r))
		if err != nil {
			h.logger.Error("user sync failed", zap.String("subject", claims.Subject), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		ctx = context.WithValue(ctx, userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}

// RequestLogger logs each request with its status, size and duration.
func RequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remoteAddr", r.RemoteAddr),
			)
		})
	}
}
