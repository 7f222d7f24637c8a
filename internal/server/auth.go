package server

import (
	"net/http"
	"strings"
)

// tokenFromRequest accepts the session token as a Bearer header or a
// token query parameter (EventSource cannot set headers).
func tokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found && token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// sessionMiddleware guards routes behind the passcode gate: only tokens
// minted by a successful unlock pass.
func sessionMiddleware(app *App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" || !app.sessions.has(token) {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
