package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"wordhero/internal/auth"
	"wordhero/internal/models"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const IdentityContextKey ContextKey = "identity"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtSecret string
	agentUser string
}

// NewMiddleware creates a middleware that accepts tokens for agentUser or any admin
func NewMiddleware(jwtSecret, agentUser string) *Middleware {
	return &Middleware{jwtSecret: jwtSecret, agentUser: agentUser}
}

// RequireToken is middleware that requires a valid bearer token
func (m *Middleware) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing bearer token", "", nil)
			return
		}

		id, err := auth.ParseToken(m.jwtSecret, token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid token", "Rejected token", err)
			return
		}
		if id.UserID != m.agentUser && id.Role != models.RoleAdmin {
			respondWithError(w, http.StatusForbidden, "Token does not match this agent", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next(w, r.WithContext(ctx))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// GetIdentityFromContext retrieves the caller identity from the request context
func GetIdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(auth.Identity)
	return id, ok
}
