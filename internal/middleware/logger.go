package middleware

import (
	"net/http"
	"time"

	"app/internal/logger"
)

// LoggerMiddleware logs each request with its duration. Streaming routes log
// once the stream ends, which may be long after the request started.
func LoggerMiddleware(next http.Handler) http.Handler {
	log := logger.New()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("uri", r.URL.RequestURI()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
