package api

import (
	"net/http"

	"github.com/duraspace/duplication-policy-manager/internal/api/handler"
	"github.com/duraspace/duplication-policy-manager/internal/api/middleware"
	"github.com/duraspace/duplication-policy-manager/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(
	manager *auth.Manager,
	registry *middleware.SessionRegistry,
	newService handler.ServiceFactory,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	sessionHandler := handler.NewSessionHandler(manager, registry, newService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Login is the only unauthenticated API route.
		r.Post("/session", sessionHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(registry))

			r.Delete("/session", sessionHandler.Logout)

			accountHandler := handler.NewAccountHandler()
			r.Get("/accounts", accountHandler.List)
			r.Post("/accounts", accountHandler.Create)
			r.Delete("/accounts/{id}", accountHandler.Delete)

			policyHandler := handler.NewPolicyHandler()
			r.Route("/accounts/{id}", func(r chi.Router) {
				r.Get("/policy", policyHandler.Get)
				r.Get("/providers", policyHandler.Providers)
				r.Get("/spaces/available", policyHandler.AvailableSpaces)

				r.Post("/spaces", policyHandler.AddSpace)
				r.Delete("/spaces/{spaceId}", policyHandler.RemoveSpace)
				r.Post("/spaces/{spaceId}/rules", policyHandler.AddRule)
				r.Delete("/spaces/{spaceId}/rules/{ruleId}", policyHandler.RemoveRule)

				r.Post("/default-rules", policyHandler.AddDefaultRule)
				r.Delete("/default-rules/{ruleId}", policyHandler.RemoveDefaultRule)

				r.Get("/versions", policyHandler.ListVersions)
				r.Post("/rollback/{versionId}", policyHandler.Rollback)
			})
		})
	})

	return r
}
