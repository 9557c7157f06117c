package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/juhojo/blabbermouth/internal/handlers"
)

// Handlers bundles the REST handlers mounted by SetupRoutes.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Passcodes *handlers.PasscodeHandler
	Configs   *handlers.ConfigHandler
	Fields    *handlers.FieldHandler
}

// Prefix returns the versioned API prefix, e.g. /api/v1.
func Prefix(version string) string {
	return "/api/" + version
}

// AuthPaths lists the unauthenticated credential endpoints, for rate limiting.
func AuthPaths(version string) []string {
	p := Prefix(version)
	return []string{p + "/auth", p + "/auth/login"}
}

// SetupRoutes mounts the REST API under /api/{version}. Everything below
// /users/{uid} passes through guard.
func SetupRoutes(r chi.Router, version string, h Handlers, guard func(http.Handler) http.Handler) {
	r.Get("/health", handlers.Health)

	r.Route(Prefix(version), func(r chi.Router) {
		r.Get("/", handlers.Version(version))

		r.Post("/auth", h.Auth.RequestPasscode)
		r.Post("/auth/login", h.Auth.Login)
		r.Get("/auth/validate", h.Auth.Validate)

		r.Get("/users", h.Users.List)
		r.Post("/users", h.Users.Create)

		r.Route("/users/{uid}", func(r chi.Router) {
			r.Use(guard)

			r.Get("/", h.Users.Get)
			r.Patch("/", h.Users.Update)
			r.Delete("/", h.Users.Delete)

			r.Get("/passcodes", h.Passcodes.Get)
			r.Post("/passcodes", h.Passcodes.Create)
			r.Delete("/passcodes/{pid}", h.Passcodes.Delete)

			r.Get("/configs", h.Configs.List)
			r.Post("/configs", h.Configs.Create)
			r.Route("/configs/{cid}", func(r chi.Router) {
				r.Get("/", h.Configs.Get)
				r.Patch("/", h.Configs.Update)
				r.Delete("/", h.Configs.Delete)

				r.Get("/fields", h.Fields.List)
				r.Post("/fields", h.Fields.Create)
				r.Get("/fields/{fid}", h.Fields.Get)
				r.Patch("/fields/{fid}", h.Fields.Update)
				r.Delete("/fields/{fid}", h.Fields.Delete)
			})
		})
	})
}

// SetupSubscribeRoutes mounts the WebSocket endpoint served on its own port.
func SetupSubscribeRoutes(r chi.Router, subscribe http.Handler) {
	r.Get("/health", handlers.Health)
	r.Handle("/", subscribe)
}
