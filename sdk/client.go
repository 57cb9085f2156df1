package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildwatch/buildwatch/internals/env"
	"github.com/buildwatch/buildwatch/internals/schemas"
	"github.com/buildwatch/buildwatch/internals/timeouts"
	"github.com/buildwatch/buildwatch/internals/version"

	z "github.com/Oudwins/zog"
)

const DefaultPageLimit = 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL: env.Get().API_URL,
		httpClient: &http.Client{
			Timeout: timeouts.Request,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying client. Its Timeout applies to one-shot
// calls only; the live stream builds its own client without one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Login(ctx context.Context, request schemas.LoginRequest) (*schemas.User, error) {
	if issues := schemas.LoginRequestSchema.Validate(&request); len(issues) > 0 {
		return nil, newValidationError(z.Issues.Flatten(issues), z.Issues.Prettify(issues))
	}
	var user schemas.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/github-login", request, &user, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &user, nil
}

func (c *Client) CurrentUser(ctx context.Context, userID int64) (*schemas.User, error) {
	var user schemas.User
	path := "/api/auth/me?" + userQuery(userID).Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &user, http.StatusOK); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

func (c *Client) ListProjects(ctx context.Context, userID int64, opts schemas.ListOptions) ([]schemas.Project, error) {
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultPageLimit
	}
	query := userQuery(userID)
	query.Set("skip", strconv.Itoa(opts.Skip))
	query.Set("limit", strconv.Itoa(opts.Limit))

	var projects []schemas.Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects?"+query.Encode(), nil, &projects, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if projects == nil {
		projects = []schemas.Project{}
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, projectID int64, userID int64) (*schemas.Project, error) {
	var project schemas.Project
	if err := c.doJSON(ctx, http.MethodGet, projectPath(projectID, "", userID), nil, &project, http.StatusOK); err != nil {
		return nil, fmt.Errorf("get project %d: %w", projectID, err)
	}
	return &project, nil
}

// CreateProject validates the request locally and only then calls the API.
func (c *Client) CreateProject(ctx context.Context, request schemas.ProjectCreate, userID int64) (*schemas.Project, error) {
	if issues := schemas.ProjectCreateSchema.Validate(&request); len(issues) > 0 {
		return nil, newValidationError(z.Issues.Flatten(issues), z.Issues.Prettify(issues))
	}
	var project schemas.Project
	path := "/api/projects?" + userQuery(userID).Encode()
	if err := c.doJSON(ctx, http.MethodPost, path, request, &project, http.StatusOK, http.StatusCreated, http.StatusAccepted); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID int64, update schemas.ProjectUpdate, userID int64) (*schemas.Project, error) {
	if issues := schemas.ProjectUpdateSchema.Validate(&update); len(issues) > 0 {
		return nil, newValidationError(z.Issues.Flatten(issues), z.Issues.Prettify(issues))
	}
	var project schemas.Project
	if err := c.doJSON(ctx, http.MethodPatch, projectPath(projectID, "", userID), update, &project, http.StatusOK); err != nil {
		return nil, fmt.Errorf("update project %d: %w", projectID, err)
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID int64, userID int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, projectPath(projectID, "", userID), nil, nil, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete project %d: %w", projectID, err)
	}
	return nil
}

func (c *Client) ProjectLogs(ctx context.Context, projectID int64, userID int64) ([]schemas.TaskLog, error) {
	var logs []schemas.TaskLog
	if err := c.doJSON(ctx, http.MethodGet, projectPath(projectID, "/logs", userID), nil, &logs, http.StatusOK); err != nil {
		return nil, fmt.Errorf("project logs %d: %w", projectID, err)
	}
	if logs == nil {
		logs = []schemas.TaskLog{}
	}
	return logs, nil
}

// StreamURL is the text/event-stream endpoint for a project's live progress.
func (c *Client) StreamURL(projectID int64, userID int64) string {
	return c.baseURL + projectPath(projectID, "/stream", userID)
}

func (c *Client) UploadFiles(ctx context.Context, paths []string) (*schemas.UploadResponse, error) {
	if len(paths) == 0 {
		return nil, errors.New("upload files: no files given")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		if err := addFormFile(writer, path); err != nil {
			return nil, fmt.Errorf("upload files: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload files: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/uploads/files", &body, writer.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("upload files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload files: %w", responseError(resp))
	}

	var payload schemas.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("upload files: decode response: %w", err)
	}
	return &payload, nil
}

// FileURL is where an uploaded file can be fetched from.
func (c *Client) FileURL(filename string) string {
	return c.baseURL + filePath(filename)
}

func (c *Client) DownloadFile(ctx context.Context, filename string, dst io.Writer) (int64, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, filePath(filename), nil, "")
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: %w", filename, responseError(resp))
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", filename, err)
	}
	return n, nil
}

func (c *Client) DeleteFile(ctx context.Context, filename string) error {
	if err := c.doJSON(ctx, http.MethodDelete, filePath(filename), nil, nil, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, okStatuses ...int) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.doRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, okStatuses) {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, err
	}
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return resp, nil
}

func addFormFile(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func filePath(filename string) string {
	return "/api/uploads/files/" + url.PathEscape(filename)
}

func projectPath(projectID int64, suffix string, userID int64) string {
	return "/api/projects/" + strconv.FormatInt(projectID, 10) + suffix + "?" + userQuery(userID).Encode()
}

func userQuery(userID int64) url.Values {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))
	return query
}

func statusIn(status int, accepted []int) bool {
	for _, candidate := range accepted {
		if status == candidate {
			return true
		}
	}
	return false
}

// ValidationError is returned when a request fails local validation; no
// network call has been made.
type ValidationError struct {
	Issues map[string][]string
	pretty string
}

func newValidationError(issues map[string][]string, pretty string) *ValidationError {
	return &ValidationError{Issues: issues, pretty: pretty}
}

func (e *ValidationError) Error() string {
	return "invalid request:\n" + e.pretty
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
