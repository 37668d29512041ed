package inventory

import (
	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail/pkg/cache"
)

// NewRouter creates a chi router with the inventory API routes. Every route
// expects an authenticated actor in the request context; the server mounts
// this router behind the authentication middleware. Transition authority is
// enforced by the engine itself, not by route guards, so any authenticated
// role may attempt a transition and receives a policy decision.
//
// The zero cache.Manager turns response caching off.
func NewRouter(engine *Engine, feed *Feed, caches cache.Manager) chi.Router {
	r := chi.NewRouter()

	r.Post("/items", createItemHandler(engine))
	r.Get("/items", listItemsHandler(engine))
	r.Post("/scan", scanHandler(engine))
	r.Get("/stats", statsHandler(engine, caches.Stats))

	r.Route("/items/{ref}", func(r chi.Router) {
		r.Get("/", getItemHandler(engine))
		r.Post("/status", updateStatusHandler(engine))
		r.Get("/history", historyHandler(engine))
		r.Get("/transitions", allowedTransitionsHandler(engine))
		r.Get("/label.png", labelHandler(engine, caches.Labels))
	})

	if feed != nil {
		r.Get("/events/watch", feed.Handler())
	}

	return r
}
