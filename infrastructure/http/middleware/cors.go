package middleware

import (
	"net/http"
	"strings"
)

// CORSPolicy lists the browser origins allowed to read dashboard responses.
// A single "*" entry allows any origin, but never together with credentials.
type CORSPolicy struct {
	Origins          []string
	AllowCredentials bool
}

const (
	corsAllowedMethods = "GET, POST, OPTIONS"
	corsAllowedHeaders = "Content-Type, Authorization, " + CorrelationIDHeader
	// exports are downloaded from the browser, so the filename header must be readable
	corsExposedHeaders = CorrelationIDHeader + ", Content-Disposition, Retry-After"
)

// CORS answers preflight requests and tags responses for allowed origins
func CORS(policy CORSPolicy) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(policy.Origins))
	anyOrigin := false
	for _, o := range policy.Origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			anyOrigin = !policy.AllowCredentials
		default:
			allowed[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			_, known := allowed[origin]
			switch {
			case origin == "":
			case known:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if policy.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Expose-Headers", corsExposedHeaders)
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Expose-Headers", corsExposedHeaders)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				w.Header().Set("Access-Control-Allow-Headers", requested)
			} else {
				w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			}
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
