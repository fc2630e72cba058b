package chi

import (
	"net/http"
	"strings"
)

// exemptPaths bypass authentication so probes and scrapers need no key.
// Previews and thumbnails are never exempt: they are fingerprint images.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// imagePathPrefixes serve <img> sources. Browsers cannot attach an
// Authorization header there, so these GETs may carry ?access_token= instead.
var imagePathPrefixes = []string{
	"/api/v1/previews/",
	"/api/v1/thumbnails/",
	"/api/v1/session/preview",
}

const accessTokenParam = "access_token"

func queryTokenAllowed(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	for _, p := range imagePathPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" && queryTokenAllowed(r) {
				if token := r.URL.Query().Get(accessTokenParam); token != "" {
					if _, ok := validKeys[token]; !ok {
						writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
						return
					}
					next.ServeHTTP(w, r)
					return
				}
			}
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := strings.TrimSpace(auth[len(bearerPrefix):])
			if _, ok := validKeys[token]; !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
