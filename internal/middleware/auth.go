package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// User is the authenticated caller attached to the request context.
type User struct {
	UID   string
	Email string
}

type ctxKeyUser struct{}

// UserFromContext returns the user stored by FirebaseAuth.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(User)
	return u, ok
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// FirebaseAuth verifies the Bearer ID token on every request. A nil verifier
// means Firebase is not configured and every request is rejected with 500.
func FirebaseAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth failed: missing or invalid Authorization header", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing or invalid Authorization header"})
				return
			}
			if verifier == nil {
				logger.Error("auth failed: firebase not configured", "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Firebase not configured"})
				return
			}

			decoded, err := verifier.VerifyIDToken(r.Context(), token)
			if err != nil {
				logger.Warn("auth failed: invalid token", "remote_addr", r.RemoteAddr, "error", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token: " + err.Error()})
				return
			}

			user := User{UID: decoded.UID}
			if email, ok := decoded.Claims["email"].(string); ok {
				user.Email = email
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// ServiceTokenAuth accepts a fixed set of Bearer tokens. Machine clients of the
// MCP endpoint use it when SERVICE_TOKENS is configured.
func ServiceTokenAuth(validTokens []string, logger *slog.Logger) func(http.Handler) http.Handler {
	tokenSet := make(map[string]struct{}, len(validTokens))
	for _, token := range validTokens {
		tokenSet[token] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				logger.Warn("auth failed: missing Authorization header", "remote_addr", r.RemoteAddr)
				writeRPCError(w, "Authorization header required")
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth failed: invalid Authorization format", "remote_addr", r.RemoteAddr)
				writeRPCError(w, "Bearer token required")
				return
			}
			if _, valid := tokenSet[token]; !valid {
				logger.Warn("auth failed: invalid service token", "remote_addr", r.RemoteAddr)
				writeRPCError(w, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), User{UID: "service"})))
		})
	}
}

// writeRPCError answers in JSON-RPC shape since MCP clients parse the body.
func writeRPCError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    -32001,
			"message": message,
		},
	})
}
