package middleware

import (
	"net/http"
	"strings"
)

const (
	allowedHeaders = "Content-Type, X-Request-ID"
	allowedMethods = "GET, POST, OPTIONS"
)

// OriginPolicy answers whether a browser origin may use the API. "*" allows any origin.
type OriginPolicy struct {
	allowAny bool
	allow    map[string]struct{}
}

// NewOriginPolicy builds a policy from a list of origins; blank entries are ignored.
func NewOriginPolicy(allowedOrigins []string) OriginPolicy {
	p := OriginPolicy{allow: map[string]struct{}{}}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			p.allowAny = true
		default:
			p.allow[origin] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin is on the list.
func (p OriginPolicy) Allowed(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	if p.allowAny {
		return true
	}
	_, ok := p.allow[origin]
	return ok
}

// CheckOrigin is a websocket.Upgrader CheckOrigin func. Requests without an
// Origin header come from non-browser clients and pass.
func (p OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if strings.TrimSpace(origin) == "" {
		return true
	}
	return p.Allowed(origin)
}

// CORS echoes allowed origins back to the browser.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := NewOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if policy.Allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
