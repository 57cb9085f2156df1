package schemas

type LogType string

const (
	LogTypeInfo    LogType = "info"
	LogTypeToolUse LogType = "tool_use"
	LogTypeSuccess LogType = "success"
	LogTypeError   LogType = "error"
)

type TaskLog struct {
	ID        int64   `json:"id" yaml:"id"`
	ProjectID int64   `json:"project_id" yaml:"project_id"`
	Message   string  `json:"message" yaml:"message"`
	LogType   LogType `json:"log_type" yaml:"log_type"`
	CreatedAt string  `json:"created_at" yaml:"created_at"`
	// Synthetic is set when the stream omitted log_id and the client
	// numbered the entry itself. Such ids are only unique within one
	// subscription.
	Synthetic bool `json:"-" yaml:"-"`
}
