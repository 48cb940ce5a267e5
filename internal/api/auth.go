// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jimyag/profilesync/internal/log"
)

// authMiddleware enforces the API token on mutating endpoints. An unset token
// leaves them open, which is fine for localhost and loudly logged at startup.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		token := s.cfg.APIToken
		s.mu.RUnlock()

		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		logger := log.FromContext(r.Context()).With().Str("component", "auth").Logger()

		reqToken := extractToken(r)
		if reqToken == "" {
			logger.Warn().Str("event", "auth.missing_header").Msg("authorization header missing")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison to prevent timing attacks.
		if subtle.ConstantTimeCompare([]byte(reqToken), []byte(token)) != 1 {
			logger.Warn().Str("event", "auth.invalid_token").Msg("invalid api token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken accepts "Bearer <t>" and "token <t>" authorization schemes.
func extractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	for _, scheme := range []string{"Bearer ", "token "} {
		if strings.HasPrefix(h, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(h, scheme))
		}
	}
	return ""
}
