package http

import (
	"net/http"

	"peatracker/internal/log"
	"peatracker/internal/middleware/ratelimit"
	"peatracker/internal/middleware/security"
	"peatracker/internal/middleware/trace"
)

// withMiddleware wraps the routes, outermost first, with the request
// logger, tracing, security headers, probe detection and rate limiting of
// mutations.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.IsMutation, s.onRateLimited)(next)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}
