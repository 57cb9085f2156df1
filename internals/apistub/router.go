package apistub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/health", s.HandlerHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/github-login", s.HandlerLogin)
		r.Get("/auth/me", s.HandlerCurrentUser)

		r.Get("/projects", s.HandlerListProjects)
		r.Post("/projects", s.HandlerCreateProject)
		r.Get("/projects/{projectID}", s.HandlerGetProject)
		r.Patch("/projects/{projectID}", s.HandlerUpdateProject)
		r.Delete("/projects/{projectID}", s.HandlerDeleteProject)
		r.Get("/projects/{projectID}/logs", s.HandlerProjectLogs)
		r.Get("/projects/{projectID}/stream", s.HandlerProjectStream)

		r.Post("/uploads/files", s.HandlerUploadFiles)
		r.Get("/uploads/files/{filename}", s.HandlerDownloadFile)
		r.Delete("/uploads/files/{filename}", s.HandlerDeleteFile)
	})
	return r
}
