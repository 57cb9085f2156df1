package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

var ErrMalformedEvent = errors.New("malformed stream event")

// ParseEvent decodes one stream message. Payloads that are not JSON objects,
// carry an unknown type, or lack the fields their type requires are
// reported as ErrMalformedEvent.
func ParseEvent(data []byte) (schemas.StreamEvent, error) {
	var event schemas.StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return schemas.StreamEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var missing []string
	switch event.Type {
	case schemas.StreamEventLog:
		if event.Message == "" {
			missing = append(missing, "message")
		}
		if event.LogType == "" {
			missing = append(missing, "log_type")
		}
		if event.Timestamp == "" {
			missing = append(missing, "timestamp")
		}
	case schemas.StreamEventStatus:
		if event.Status == "" {
			missing = append(missing, "status")
		}
	case schemas.StreamEventComplete:
	case "":
		return schemas.StreamEvent{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return schemas.StreamEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
	}
	if len(missing) > 0 {
		return schemas.StreamEvent{}, fmt.Errorf("%w: %s event missing %s", ErrMalformedEvent, event.Type, strings.Join(missing, ", "))
	}
	return event, nil
}
