package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"archivist/internal/logger"
)

// RequestLogger logs every request at INFO once it has been served.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)

			next.ServeHTTP(rec, r)

			entry := log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"query":  r.URL.RawQuery,
				"status": rec.Status(),
				"remote": r.RemoteAddr,
				"agent":  r.UserAgent(),
				"took":   time.Since(start),
			})
			if id := logger.IDFrom(r.Context()); id != "" {
				entry = entry.WithField("request_id", id)
			}
			entry.Info("http.request")
		})
	}
}
