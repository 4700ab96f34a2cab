// Package middleware holds small HTTP middlewares shared by the server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
)

// CORS handles CORS and OPTIONS preflight requests against allowedOrigins.
// If allowedOrigins is empty, it falls back to envconfig.AllowedOrigins().
// A request of any method whose Origin header is present but not allowed
// gets 403. OPTIONS requests are only intercepted when the Origin header is
// present and allowed; without an Origin header they fall through to next
// so 404/405 behave normally for non-browser clients.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = envconfig.AllowedOrigins()
	}
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := allowAll || originAllowed(origin, allowedOrigins)

		if origin != "" && !allowed {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if origin != "" && allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		if r.Method == http.MethodOptions {
			if origin == "" || !allowed {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed matches origin against the allow-list, honoring a trailing
// ":*" in an allowed entry as a wildcard port match.
func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, ":*"); ok {
			if rest, ok := strings.CutPrefix(origin, prefix+":"); ok && rest != "" && !strings.Contains(rest, "/") {
				return true
			}
		}
	}
	return false
}
