package apistub

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

//go:embed migrations/*.sql
var migrations embed.FS

var errNotFound = errors.New("not found")

type store struct {
	db *sql.DB
}

func openStore(ctx context.Context, dbPath string) (*store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps pragmas stable.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *store) close() error {
	return s.db.Close()
}

func (s *store) upsertUser(ctx context.Context, request schemas.LoginRequest) (*schemas.User, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (github_id, username, email, avatar_url, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(github_id) DO UPDATE SET
	username = excluded.username,
	email = excluded.email,
	avatar_url = excluded.avatar_url
`, request.GithubID, request.Username, nullIfEmpty(request.Email), nullIfEmpty(request.AvatarURL), now())
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, userSelect+` WHERE github_id = ?`, request.GithubID)
	return scanUser(row)
}

func (s *store) getUser(ctx context.Context, id int64) (*schemas.User, error) {
	row := s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id)
	return scanUser(row)
}

const userSelect = `SELECT id, github_id, username, email, avatar_url, created_at FROM users`

func scanUser(row *sql.Row) (*schemas.User, error) {
	var user schemas.User
	var email, avatarURL sql.NullString
	if err := row.Scan(&user.ID, &user.GithubID, &user.Username, &email, &avatarURL, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}
	user.Email = email.String
	user.AvatarURL = avatarURL.String
	return &user, nil
}

func (s *store) createProject(ctx context.Context, ownerID int64, request schemas.ProjectCreate) (*schemas.Project, error) {
	createdAt := now()
	result, err := s.db.ExecContext(ctx, `
INSERT INTO projects (owner_id, name, description, status, task_prompt, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, ownerID, request.Name, nullIfEmpty(request.Description), schemas.ProjectStatusPending, request.TaskPrompt, createdAt, createdAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.getProject(ctx, id, ownerID)
}

func (s *store) listProjects(ctx context.Context, ownerID int64, skip int, limit int) ([]schemas.Project, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+`
WHERE owner_id = ?
ORDER BY id DESC
LIMIT ? OFFSET ?
`, ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []schemas.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// getProject scopes the lookup to ownerID; other owners' projects read as
// missing.
func (s *store) getProject(ctx context.Context, id int64, ownerID int64) (*schemas.Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+` WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanProject(row)
}

func (s *store) projectByID(ctx context.Context, id int64) (*schemas.Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+` WHERE id = ?`, id)
	return scanProject(row)
}

func (s *store) updateProject(ctx context.Context, id int64, ownerID int64, update schemas.ProjectUpdate) (*schemas.Project, error) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", nullIfEmpty(*update.Description))
	}
	if update.TaskPrompt != nil {
		add("task_prompt", *update.TaskPrompt)
	}
	if update.Status != nil {
		add("status", *update.Status)
		if update.Status.IsTerminal() {
			add("completed_at", now())
		}
	}
	if update.ResultSummary != nil {
		add("result_summary", nullIfEmpty(*update.ResultSummary))
	}
	if update.ErrorMessage != nil {
		add("error_message", nullIfEmpty(*update.ErrorMessage))
	}
	add("updated_at", now())
	args = append(args, id, ownerID)

	result, err := s.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, errNotFound
	}
	return s.getProject(ctx, id, ownerID)
}

func (s *store) deleteProject(ctx context.Context, id int64, ownerID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_logs WHERE project_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *store) markRunning(ctx context.Context, id int64) (*schemas.Project, error) {
	timestamp := now()
	result, err := s.db.ExecContext(ctx, `
UPDATE projects SET status = ?, started_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`, schemas.ProjectStatusRunning, timestamp, timestamp, id, schemas.ProjectStatusPending)
	if err != nil {
		return nil, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, errNotFound
	}
	return s.projectByID(ctx, id)
}

type runOutcome struct {
	Status        schemas.ProjectStatus
	ResultSummary string
	ErrorMessage  string
	OutputFiles   string
}

// finish records the outcome unless the run already reached a terminal
// status some other way.
func (s *store) finish(ctx context.Context, id int64, outcome runOutcome) (*schemas.Project, error) {
	timestamp := now()
	result, err := s.db.ExecContext(ctx, `
UPDATE projects
SET status = ?, result_summary = ?, error_message = ?, output_files = ?, completed_at = ?, updated_at = ?
WHERE id = ? AND status IN (?, ?)
`, outcome.Status, nullIfEmpty(outcome.ResultSummary), nullIfEmpty(outcome.ErrorMessage), nullIfEmpty(outcome.OutputFiles), timestamp, timestamp,
		id, schemas.ProjectStatusPending, schemas.ProjectStatusRunning)
	if err != nil {
		return nil, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, errNotFound
	}
	return s.projectByID(ctx, id)
}

func (s *store) appendLog(ctx context.Context, projectID int64, message string, logType schemas.LogType) (*schemas.TaskLog, error) {
	createdAt := now()
	result, err := s.db.ExecContext(ctx, `
INSERT INTO task_logs (project_id, message, log_type, created_at)
VALUES (?, ?, ?, ?)
`, projectID, message, logType, createdAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &schemas.TaskLog{
		ID:        id,
		ProjectID: projectID,
		Message:   message,
		LogType:   logType,
		CreatedAt: createdAt,
	}, nil
}

func (s *store) listLogs(ctx context.Context, projectID int64) ([]schemas.TaskLog, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_id, message, log_type, created_at
FROM task_logs
WHERE project_id = ?
ORDER BY id
`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []schemas.TaskLog{}
	for rows.Next() {
		var entry schemas.TaskLog
		var logType string
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Message, &logType, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.LogType = schemas.LogType(logType)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

const projectSelect = `
SELECT id, owner_id, name, description, status, task_prompt, uploaded_files, result_summary,
	output_files, error_message, created_at, started_at, completed_at, updated_at
FROM projects`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*schemas.Project, error) {
	var project schemas.Project
	var status string
	var description, uploadedFiles, resultSummary, outputFiles, errorMessage, startedAt, completedAt sql.NullString
	err := row.Scan(&project.ID, &project.OwnerID, &project.Name, &description, &status, &project.TaskPrompt,
		&uploadedFiles, &resultSummary, &outputFiles, &errorMessage, &project.CreatedAt, &startedAt, &completedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}
	project.Status = schemas.ProjectStatus(status)
	project.Description = description.String
	project.UploadedFiles = uploadedFiles.String
	project.ResultSummary = resultSummary.String
	project.OutputFiles = outputFiles.String
	project.ErrorMessage = errorMessage.String
	project.StartedAt = startedAt.String
	project.CompletedAt = completedAt.String
	return &project, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
