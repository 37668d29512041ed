package auth

import (
	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// Router creates a chi.Router for the auth API. Registration, login, refresh
// and logout are public; account management requires an admin actor. The
// token-resolving Middleware is expected to be mounted above this router.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", s.registerHandler)
	r.Post("/login", s.loginHandler)
	r.Post("/refresh", s.refreshHandler)
	r.Post("/logout", s.logoutHandler)
	r.Get("/me", s.meHandler)

	r.Route("/users", func(r chi.Router) {
		r.Use(RequireRole(lifecycle.RoleAdmin))
		r.Get("/", s.listUsersHandler)
		r.Get("/{userId}", s.getUserHandler)
		r.Patch("/{userId}/role", s.updateRoleHandler)
		r.Patch("/{userId}/active", s.setActiveHandler)
	})

	return r
}
