package apistub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ErrorResponse mirrors the upstream API: a plain message in detail, or a
// list of field issues for validation failures.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

type FieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type RenderOption = func(w http.ResponseWriter, r *http.Request)

type Renderer struct{}

func (Renderer) Status(status int) RenderOption {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

var Render = Renderer{}

func RenderJSON(w http.ResponseWriter, r *http.Request, payload any, opts ...RenderOption) {
	w.Header().Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(w, r)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RenderJSON(w, r, ErrorResponse{Detail: message}, Render.Status(status))
}

// RenderIssues writes a 422 with one entry per field, located under where
// ("body" or "query").
func RenderIssues(w http.ResponseWriter, r *http.Request, where string, issues map[string][]string) {
	items := []FieldIssue{}
	for field, messages := range issues {
		loc := []string{where}
		if field != "" && field != "$root" {
			loc = append(loc, field)
		}
		for _, message := range messages {
			items = append(items, FieldIssue{Loc: loc, Msg: message, Type: "value_error"})
		}
	}
	RenderJSON(w, r, ErrorResponse{Detail: items}, Render.Status(http.StatusUnprocessableEntity))
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RenderIssues(w, r, "query", map[string][]string{"user_id": {"valid user_id is required"}})
		return 0, false
	}
	return id, true
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		RenderIssues(w, r, "path", map[string][]string{"project_id": {"valid project id is required"}})
		return 0, false
	}
	return id, true
}
