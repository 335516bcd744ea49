package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the photka web and app origins to call the support API.
// "*" echoes any Origin back; "https://*.photka.com" matches any subdomain
// (preview deploys) but not the apex.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	var suffixes []originSuffix
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		if scheme, host, ok := strings.Cut(origin, "://*."); ok {
			suffixes = append(suffixes, originSuffix{scheme: scheme + "://", host: "." + host})
			continue
		}
		allow[origin] = struct{}{}
	}

	allowedHeaders := "Authorization, Content-Type, X-Request-Id"
	allowedMethods := "GET, POST, OPTIONS"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && (allowAny || isAllowedOrigin(allow, suffixes, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id")
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

type originSuffix struct {
	scheme string
	host   string
}

func isAllowedOrigin(allow map[string]struct{}, suffixes []originSuffix, origin string) bool {
	if _, ok := allow[origin]; ok {
		return true
	}
	for _, s := range suffixes {
		rest, ok := strings.CutPrefix(origin, s.scheme)
		if ok && strings.HasSuffix(rest, s.host) && len(rest) > len(s.host) {
			return true
		}
	}
	return false
}
