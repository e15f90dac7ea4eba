package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"archivist/internal/library"
	"archivist/internal/logger"
	"archivist/internal/metrics"
)

// Library is the data access the handlers delegate to.
type Library interface {
	Search(ctx context.Context, q library.SearchQuery) ([]library.ArchiveListItem, int, error)
	FetchArchiveData(ctx context.Context, id int64) (*library.Archive, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Library Library
}

// SearchLibrary serves GET /library?q=&page=&sort=&order=.
func (s *Server) SearchLibrary(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	resolver := library.Resolver{OnInvalid: func(key, raw string, err error) {
		logger.For(ctx).WithError(err).WithField("param", key).Debug("library.param.defaulted")
	}}
	q := resolver.Resolve(library.ParamsFromValues(r.URL.Query()))

	defer logger.Track(ctx, "library.search")()
	archives, total, err := s.Library.Search(ctx, q)
	if err != nil {
		return Internal(err)
	}
	metrics.LibrarySearchResults.Observe(float64(total))

	writeJSON(w, r, http.StatusOK, library.NewLibraryPage(archives, q.Page, total))
	return nil
}

// ArchiveData serves GET /archive/{id}.
func (s *Server) ArchiveData(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return ErrNotFound
	}

	archive, err := s.Library.FetchArchiveData(r.Context(), id)
	if err != nil {
		return Internal(err)
	}
	if archive == nil {
		return ErrNotFound
	}

	writeJSON(w, r, http.StatusOK, library.ToArchiveData(*archive))
	return nil
}

// Health reports whether the store answers; stores without Ping are assumed
// healthy.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) error {
	if p, ok := s.Library.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			return &Error{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "database unavailable", Cause: err}
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
	return nil
}
