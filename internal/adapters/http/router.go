package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/taskdeck/taskdeck/internal/application"
	"github.com/taskdeck/taskdeck/internal/metrics"
)

// Handler is the HTTP adapter entrypoint for Taskdeck use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// RouterDeps carries optional observability wiring for NewRouter.
type RouterDeps struct {
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// NewRouter registers the Taskdeck HTTP routes and middleware stack.
// Centralizing routes here keeps auth and error behavior consistent across
// endpoints.
func NewRouter(handler *Handler, deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if deps.Collector != nil {
		r.Use(metricsMiddleware(deps.Collector))
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handler.signup)
		r.Post("/login", handler.login)
		r.Post("/verify-token", handler.verifyToken)
		r.Get("/jwks", handler.jwks)
		r.Get("/oidc/authorize", handler.oidcAuthorize)
		r.Get("/oidc/callback", handler.oidcCallback)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/refresh", handler.refresh)
			r.Post("/logout", handler.logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Put("/users/{user_id}", handler.updateProfile)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", handler.createProject)
			r.Get("/", handler.listProjects)
			r.Get("/{project_id}", handler.getProject)
			r.Patch("/{project_id}", handler.updateProject)
			r.Put("/{project_id}", handler.updateProject)
			r.Delete("/{project_id}", handler.deleteProject)
		})

		r.Route("/task", func(r chi.Router) {
			r.Post("/", handler.createTask)
			r.Get("/", handler.listTasks)
			r.Get("/next-number", handler.nextTicketNumber)
			r.Get("/{task_id}", handler.getTask)
			r.Patch("/{task_id}", handler.updateTask)
			r.Put("/{task_id}", handler.updateTask)
			r.Delete("/{task_id}", handler.deleteTask)
		})

		r.Route("/team-members", func(r chi.Router) {
			r.Post("/", handler.createTeamMember)
			r.Get("/", handler.listTeamMembers)
			r.Post("/add-to-project", handler.assignTeamMembers)
			r.Delete("/{member_id}", handler.deleteTeamMember)
		})
	})

	return r
}
