package api

import (
	"net/http"
	"strings"

	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/ratelimit"
)

// signInPathPrefix covers the anonymous and google sign-in endpoints.
const signInPathPrefix = "/api/v1/auth/"

// signInRateLimit throttles sign-in attempts per client IP.
// Runs after middleware.RealIP, so RemoteAddr already reflects proxy headers.
func (s *Server) signInRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !isSignInPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := ratelimit.ClientKey(r)
		if !s.opts.SignInLimiter.Allow(key) {
			s.logger.Warn("sign-in rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, string(domainerrors.CodeRateLimited), "Too many sign-in attempts, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSignInPath(path string) bool {
	rest, ok := strings.CutPrefix(path, signInPathPrefix)
	return ok && (rest == "anonymous" || rest == "google")
}
