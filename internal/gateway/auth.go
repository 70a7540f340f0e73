package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const authRealm = `realm="mindcanvas"`

// authMiddleware guards /api with a bearer token, basic credentials, or
// either one when both are set. Comparisons are constant time.
func authMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	challenge := "Bearer " + authRealm
	if cfg.BearerToken == "" {
		challenge = "Basic " + authRealm
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.allows(r) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("WWW-Authenticate", challenge)
			writeError(w, http.StatusUnauthorized, "unauthorized", nil)
		})
	}
}

// allows reports whether r carries credentials matching cfg.
func (a AuthConfig) allows(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	if a.BearerToken != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && constantTimeEqual(token, a.BearerToken) {
			return true
		}
	}
	if a.BasicUser != "" && a.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		return ok && constantTimeEqual(user, a.BasicUser) && constantTimeEqual(pass, a.BasicPass)
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
