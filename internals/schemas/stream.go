package schemas

type StreamEventType string

const (
	StreamEventLog      StreamEventType = "log"
	StreamEventStatus   StreamEventType = "status"
	StreamEventComplete StreamEventType = "complete"
)

// StreamEvent is one message of a project's live progress stream.
type StreamEvent struct {
	Type          StreamEventType `json:"type"`
	LogID         int64           `json:"log_id,omitempty"`
	Message       string          `json:"message,omitempty"`
	LogType       LogType         `json:"log_type,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Status        ProjectStatus   `json:"status,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
	ResultSummary string          `json:"result_summary,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}
