package api

import (
	"net/http"

	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"archivist/internal/config"
	"archivist/internal/middleware"
)

// NewRouter mounts the API routes and the middleware stack described by cfg.
func NewRouter(cfg *config.Config, srv *Server, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Instrument)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS.Origins))

	r.NotFound(errorHandler(ErrNotFound))
	r.MethodNotAllowed(errorHandler(ErrMethodNotAllowed))

	r.Get("/healthz", handlerFunc(srv.Health).ServeHTTP)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(
			middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
			errorHandler(ErrRateLimited),
		))
		r.Method(http.MethodGet, "/library", handlerFunc(srv.SearchLibrary))
		r.Method(http.MethodGet, "/archive/{id:[0-9]+}", handlerFunc(srv.ArchiveData))
	})

	return r
}
