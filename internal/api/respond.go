package api

import (
	"net/http"

	"github.com/go-chi/render"

	"archivist/internal/logger"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// WriteError renders err as the JSON error envelope. Server-side failures are
// logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := asError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.For(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("api.request.failed")
	}
	writeJSON(w, r, apiErr.Status, ErrorEnvelope{
		Error: ErrorBody{Code: apiErr.Code, Message: apiErr.Message},
	})
}

// handlerFunc is an HTTP handler that reports failure by returning it.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (fn handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// errorHandler always responds with err.
func errorHandler(err *Error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, err)
	}
}
