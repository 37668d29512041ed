package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the audit API. When guard is non-nil every
// endpoint is wrapped with it; the server passes an admin-only role check.
func Router(store *Store, guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	if guard != nil {
		r.Use(guard)
	}

	r.Get("/requests", ListRequestsHandler(store))
	r.Get("/requests/{recordId}", GetRequestHandler(store))

	return r
}
