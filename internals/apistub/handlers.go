package apistub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/buildwatch/buildwatch/internals/logbuf"
	"github.com/buildwatch/buildwatch/internals/schemas"
	"github.com/buildwatch/buildwatch/internals/version"

	z "github.com/Oudwins/zog"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (s *Server) HandlerHealth(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, map[string]string{"status": "ok", "version": version.Version()})
}

func (s *Server) HandlerLogin(w http.ResponseWriter, r *http.Request) {
	var request schemas.LoginRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if issues := schemas.LoginRequestSchema.Validate(&request); len(issues) > 0 {
		RenderIssues(w, r, "body", z.Issues.Flatten(issues))
		return
	}
	if request.GithubID == "" || request.Username == "" {
		RenderIssues(w, r, "body", map[string][]string{"github_id": {"github_id and username are required"}})
		return
	}

	user, err := s.store.upsertUser(r.Context(), request)
	if err != nil {
		s.internalError(w, r, "upsert user", err)
		return
	}
	logbuf.FromContext(r.Context()).Info("login", slog.Int64("user_id", user.ID))
	RenderJSON(w, r, user)
}

func (s *Server) HandlerCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := s.store.getUser(r.Context(), userID)
	if errors.Is(err, errNotFound) {
		RenderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "get user", err)
		return
	}
	RenderJSON(w, r, user)
}

func (s *Server) HandlerListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	projects, err := s.store.listProjects(r.Context(), userID, skip, limit)
	if err != nil {
		s.internalError(w, r, "list projects", err)
		return
	}
	RenderJSON(w, r, projects)
}

func (s *Server) HandlerCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var request schemas.ProjectCreate
	if !decodeJSON(w, r, &request) {
		return
	}
	if issues := schemas.ProjectCreateSchema.Validate(&request); len(issues) > 0 {
		RenderIssues(w, r, "body", z.Issues.Flatten(issues))
		return
	}

	if _, err := s.store.getUser(r.Context(), userID); err != nil {
		if errors.Is(err, errNotFound) {
			RenderError(w, r, http.StatusNotFound, "User not found")
			return
		}
		s.internalError(w, r, "get user", err)
		return
	}

	project, err := s.store.createProject(r.Context(), userID, request)
	if err != nil {
		s.internalError(w, r, "create project", err)
		return
	}
	logbuf.FromContext(r.Context()).Info("project created", slog.Int64("project_id", project.ID))
	s.runner.start(*project)
	RenderJSON(w, r, project, Render.Status(http.StatusCreated))
}

func (s *Server) HandlerGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	RenderJSON(w, r, project)
}

func (s *Server) HandlerUpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	var update schemas.ProjectUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if issues := schemas.ProjectUpdateSchema.Validate(&update); len(issues) > 0 {
		RenderIssues(w, r, "body", z.Issues.Flatten(issues))
		return
	}

	project, err := s.store.updateProject(r.Context(), projectID, userID, update)
	if errors.Is(err, errNotFound) {
		RenderError(w, r, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "update project", err)
		return
	}
	if update.Status != nil {
		s.broker.publish(project.ID, schemas.StreamEvent{
			Type:      schemas.StreamEventStatus,
			Status:    project.Status,
			UpdatedAt: project.UpdatedAt,
		})
	}
	RenderJSON(w, r, project)
}

func (s *Server) HandlerDeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	err := s.store.deleteProject(r.Context(), projectID, userID)
	if errors.Is(err, errNotFound) {
		RenderError(w, r, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlerProjectLogs(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	logs, err := s.store.listLogs(r.Context(), project.ID)
	if err != nil {
		s.internalError(w, r, "list logs", err)
		return
	}
	RenderJSON(w, r, logs)
}

func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*schemas.Project, bool) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return nil, false
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return nil, false
	}
	project, err := s.store.getProject(r.Context(), projectID, userID)
	if errors.Is(err, errNotFound) {
		RenderError(w, r, http.StatusNotFound, "Project not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, "get project", err)
		return nil, false
	}
	return project, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logbuf.FromContext(r.Context()).Error(op, slog.String("error", err.Error()))
	RenderError(w, r, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		RenderIssues(w, r, "body", map[string][]string{"": {"invalid JSON: " + err.Error()}})
		return false
	}
	return true
}

func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	skip, limit := 0, defaultPageLimit
	issues := map[string][]string{}
	if raw := query.Get("skip"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			issues["skip"] = []string{"skip must be a non-negative integer"}
		}
		skip = value
	}
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > maxPageLimit {
			issues["limit"] = []string{"limit must be between 1 and " + strconv.Itoa(maxPageLimit)}
		}
		limit = value
	}
	if len(issues) > 0 {
		RenderIssues(w, r, "query", issues)
		return 0, 0, false
	}
	return skip, limit, true
}
