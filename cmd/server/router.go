package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/auth"
	"sleep-diagnosis/internal/diagnosis"
	"sleep-diagnosis/internal/feedback"
	"sleep-diagnosis/internal/knowledge"
	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/session"
)

type app struct {
	kb         *knowledge.KnowledgeBase
	corsOrigin string
	logger     *zap.Logger

	sessions  *session.Manager
	session   *session.Handler
	auth      *auth.Handler
	diagnosis *diagnosis.Handler
	feedback  *feedback.Handler
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpserver.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(httpserver.CORS(a.corsOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", a.health)

		r.Group(func(r chi.Router) {
			r.Use(a.sessions.Middleware)
			session.RegisterRoutes(r, a.session)
			auth.RegisterPublicRoutes(r, a.auth)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuthenticated)
				auth.RegisterRoutes(r, a.auth)
				diagnosis.RegisterRoutes(r, a.diagnosis)
				feedback.RegisterRoutes(r, a.feedback)
			})
		})
	})
	return r
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"knowledge": a.kb.Stats(),
	})
}
