package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/JonMunkholm/event-recorder/internal/logging"
)

// TokenAuth checks the Authorization header against the configured tokens.
// MinIO sends its webhook auth_token either bare or as "Bearer <token>";
// both are accepted. With no tokens configured every request passes.
func TokenAuth(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(tokens) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			if token == "" {
				logging.FromContext(r.Context()).Warn("auth: missing token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing token","code":"AUTH_MISSING_TOKEN"}`, http.StatusUnauthorized)
				return
			}
			if !validToken(token, tokens) {
				logging.FromContext(r.Context()).Warn("auth: invalid token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid token","code":"AUTH_INVALID_TOKEN"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validToken compares against every configured token in constant time.
func validToken(token string, valid []string) bool {
	match := 0
	for _, v := range valid {
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(v))
	}
	return match == 1
}
