package apistub

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

func newTestStore(t *testing.T) *store {
	t.Helper()
	s, err := openStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	t.Cleanup(func() { _ = s.close() })
	return s
}

func mustUser(t *testing.T, s *store, githubID string) *schemas.User {
	t.Helper()
	user, err := s.upsertUser(context.Background(), schemas.LoginRequest{GithubID: githubID, Username: "user-" + githubID})
	if err != nil {
		t.Fatalf("upsertUser: %v", err)
	}
	return user
}

func TestStoreUpsertUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustUser(t, s, "12345")
	second, err := s.upsertUser(ctx, schemas.LoginRequest{GithubID: "12345", Username: "renamed", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("upsertUser: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user id, got %d and %d", first.ID, second.ID)
	}
	if second.Username != "renamed" || second.Email != "a@b.c" {
		t.Fatalf("expected updated profile, got %+v", second)
	}
	if _, err := s.getUser(ctx, 999); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound, got %v", err)
	}
}

func TestStoreProjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "1")
	other := mustUser(t, s, "2")

	project, err := s.createProject(ctx, owner.ID, schemas.ProjectCreate{Name: "demo", TaskPrompt: "do it"})
	if err != nil {
		t.Fatalf("createProject: %v", err)
	}
	if project.Status != schemas.ProjectStatusPending || project.OwnerID != owner.ID {
		t.Fatalf("unexpected project %+v", project)
	}

	if _, err := s.getProject(ctx, project.ID, other.ID); !errors.Is(err, errNotFound) {
		t.Fatalf("expected other owner to get errNotFound, got %v", err)
	}

	name := "renamed"
	updated, err := s.updateProject(ctx, project.ID, owner.ID, schemas.ProjectUpdate{Name: &name})
	if err != nil {
		t.Fatalf("updateProject: %v", err)
	}
	if updated.Name != "renamed" || updated.TaskPrompt != "do it" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := s.updateProject(ctx, project.ID, other.ID, schemas.ProjectUpdate{Name: &name}); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound for other owner, got %v", err)
	}

	running, err := s.markRunning(ctx, project.ID)
	if err != nil || running.Status != schemas.ProjectStatusRunning || running.StartedAt == "" {
		t.Fatalf("markRunning: %+v, %v", running, err)
	}
	if _, err := s.markRunning(ctx, project.ID); !errors.Is(err, errNotFound) {
		t.Fatalf("expected second markRunning to fail, got %v", err)
	}

	if _, err := s.appendLog(ctx, project.ID, "one", schemas.LogTypeInfo); err != nil {
		t.Fatalf("appendLog: %v", err)
	}
	if _, err := s.appendLog(ctx, project.ID, "two", schemas.LogTypeSuccess); err != nil {
		t.Fatalf("appendLog: %v", err)
	}
	logs, err := s.listLogs(ctx, project.ID)
	if err != nil || len(logs) != 2 || logs[0].Message != "one" || logs[1].LogType != schemas.LogTypeSuccess {
		t.Fatalf("listLogs: %+v, %v", logs, err)
	}

	finished, err := s.finish(ctx, project.ID, runOutcome{Status: schemas.ProjectStatusCompleted, ResultSummary: "ok"})
	if err != nil || finished.Status != schemas.ProjectStatusCompleted || finished.CompletedAt == "" {
		t.Fatalf("finish: %+v, %v", finished, err)
	}
	if _, err := s.finish(ctx, project.ID, runOutcome{Status: schemas.ProjectStatusFailed}); !errors.Is(err, errNotFound) {
		t.Fatalf("expected finish on terminal project to fail, got %v", err)
	}

	if err := s.deleteProject(ctx, project.ID, owner.ID); err != nil {
		t.Fatalf("deleteProject: %v", err)
	}
	if err := s.deleteProject(ctx, project.ID, owner.ID); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound on second delete, got %v", err)
	}
	if logs, _ := s.listLogs(ctx, project.ID); len(logs) != 0 {
		t.Fatalf("expected logs removed with project")
	}
}

func TestStoreListProjectsPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "1")

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.createProject(ctx, owner.ID, schemas.ProjectCreate{Name: name, TaskPrompt: "p"}); err != nil {
			t.Fatalf("createProject: %v", err)
		}
	}

	page, err := s.listProjects(ctx, owner.ID, 0, 2)
	if err != nil {
		t.Fatalf("listProjects: %v", err)
	}
	if len(page) != 2 || page[0].Name != "c" || page[1].Name != "b" {
		t.Fatalf("unexpected first page %+v", page)
	}
	page, err = s.listProjects(ctx, owner.ID, 2, 2)
	if err != nil || len(page) != 1 || page[0].Name != "a" {
		t.Fatalf("unexpected second page %+v, %v", page, err)
	}
	empty, err := s.listProjects(ctx, 999, 0, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v, %v", empty, err)
	}
}
