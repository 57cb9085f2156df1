package schemas

import (
	"encoding/json"
	"strings"

	z "github.com/Oudwins/zog"
)

type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusRunning   ProjectStatus = "running"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{
		ProjectStatusPending,
		ProjectStatusRunning,
		ProjectStatusCompleted,
		ProjectStatusFailed,
		ProjectStatusCancelled,
	}
}

// IsTerminal reports whether the agent run has finished one way or another.
func (s ProjectStatus) IsTerminal() bool {
	switch s {
	case ProjectStatusCompleted, ProjectStatusFailed, ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

func (s ProjectStatus) String() string {
	return string(s)
}

type Project struct {
	ID            int64         `json:"id" yaml:"id"`
	OwnerID       int64         `json:"owner_id" yaml:"owner_id"`
	Name          string        `json:"name" yaml:"name"`
	Description   string        `json:"description,omitempty" yaml:"description,omitempty"`
	Status        ProjectStatus `json:"status" yaml:"status"`
	TaskPrompt    string        `json:"task_prompt" yaml:"task_prompt"`
	UploadedFiles string        `json:"uploaded_files,omitempty" yaml:"uploaded_files,omitempty"`
	ResultSummary string        `json:"result_summary,omitempty" yaml:"result_summary,omitempty"`
	OutputFiles   string        `json:"output_files,omitempty" yaml:"output_files,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CreatedAt     string        `json:"created_at" yaml:"created_at"`
	StartedAt     string        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt   string        `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	UpdatedAt     string        `json:"updated_at" yaml:"updated_at"`
	Owner         *User         `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// OutputFileList decodes output_files, which the server stores either as a
// JSON array or as a comma separated list.
func (p *Project) OutputFileList() []string {
	raw := strings.TrimSpace(p.OutputFiles)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var files []string
		if err := json.Unmarshal([]byte(raw), &files); err == nil {
			return files
		}
	}
	files := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			files = append(files, part)
		}
	}
	return files
}

type ProjectCreate struct {
	Name        string `json:"name" zog:"name"`
	Description string `json:"description,omitempty" zog:"description"`
	TaskPrompt  string `json:"task_prompt" zog:"task_prompt"`
}

var ProjectCreateSchema = z.Struct(z.Shape{
	"Name":        z.String().Required(z.Message("name is required")).Trim().Min(1, z.Message("name is required")),
	"Description": z.String().Optional().Trim(),
	"TaskPrompt":  z.String().Required(z.Message("task_prompt is required")).Trim().Min(1, z.Message("task_prompt is required")),
})

// ProjectUpdate is a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name          *string        `json:"name,omitempty" zog:"name"`
	Description   *string        `json:"description,omitempty" zog:"description"`
	TaskPrompt    *string        `json:"task_prompt,omitempty" zog:"task_prompt"`
	Status        *ProjectStatus `json:"status,omitempty" zog:"status"`
	ResultSummary *string        `json:"result_summary,omitempty" zog:"result_summary"`
	ErrorMessage  *string        `json:"error_message,omitempty" zog:"error_message"`
}

func (u ProjectUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.TaskPrompt == nil &&
		u.Status == nil && u.ResultSummary == nil && u.ErrorMessage == nil
}

var ProjectUpdateSchema = z.Struct(z.Shape{
	"Name":          z.Ptr(z.String().Trim().Min(1, z.Message("name cannot be empty"))),
	"Description":   z.Ptr(z.String().Trim()),
	"TaskPrompt":    z.Ptr(z.String().Trim().Min(1, z.Message("task_prompt cannot be empty"))),
	"Status":        z.Ptr(z.StringLike[ProjectStatus]().OneOf(ProjectStatuses(), z.Message("unknown status"))),
	"ResultSummary": z.Ptr(z.String()),
	"ErrorMessage":  z.Ptr(z.String()),
}).TestFunc(func(valPtr any, ctx z.Ctx) bool {
	return !valPtr.(*ProjectUpdate).IsEmpty()
}, z.Message("at least one field must be set"))

type ListOptions struct {
	Skip  int
	Limit int
}
