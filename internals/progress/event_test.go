package progress

import (
	"errors"
	"testing"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

func TestParseEventValid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want schemas.StreamEventType
	}{
		{"log", `{"type":"log","log_id":3,"message":"hi","log_type":"tool_use","timestamp":"T1"}`, schemas.StreamEventLog},
		{"log without id", `{"type":"log","message":"hi","log_type":"info","timestamp":"T1"}`, schemas.StreamEventLog},
		{"status", `{"type":"status","status":"running","updated_at":"T2"}`, schemas.StreamEventStatus},
		{"complete", `{"type":"complete"}`, schemas.StreamEventComplete},
		{"complete with error", `{"type":"complete","status":"failed","error_message":"boom"}`, schemas.StreamEventComplete},
		{"extra fields", `{"type":"status","status":"running","extra":true}`, schemas.StreamEventStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			if event.Type != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, event.Type)
			}
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json`},
		{"truncated", `{"type":"log"`},
		{"array", `[1,2]`},
		{"no type", `{"message":"hi"}`},
		{"unknown type", `{"type":"progress","percent":50}`},
		{"log missing message", `{"type":"log","log_type":"info","timestamp":"T1"}`},
		{"log missing log_type", `{"type":"log","message":"hi","timestamp":"T1"}`},
		{"log missing timestamp", `{"type":"log","message":"hi","log_type":"info"}`},
		{"status missing status", `{"type":"status"}`},
		{"wrong field type", `{"type":"log","log_id":"abc","message":"hi","log_type":"info","timestamp":"T1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.data)); !errors.Is(err, ErrMalformedEvent) {
				t.Fatalf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}
