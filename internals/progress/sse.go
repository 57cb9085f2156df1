package progress

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

const defaultSSEEvent = "message"

type sseEvent struct {
	Event string
	Data  string
	ID    string
}

// sseDecoder reads text/event-stream framing. Lines may end in \n or \r\n.
// An event is dispatched on a blank line; a trailing event without one is
// discarded at EOF. The id and retry fields are parsed but never acted on:
// the client does not reconnect, so there is nothing to resume.
type sseDecoder struct {
	r      *bufio.Reader
	lastID string
	retry  time.Duration
}

func newSSEDecoder(r io.Reader) *sseDecoder {
	return &sseDecoder{r: bufio.NewReader(r)}
}

func (d *sseDecoder) Next() (sseEvent, error) {
	var (
		data      strings.Builder
		eventType string
		hasData   bool
	)
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return sseEvent{}, io.EOF
			}
			return sseEvent{}, err
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			if !hasData {
				eventType = ""
				continue
			}
			if eventType == "" {
				eventType = defaultSSEEvent
			}
			return sseEvent{
				Event: eventType,
				Data:  strings.TrimSuffix(data.String(), "\n"),
				ID:    d.lastID,
			}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			eventType = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				d.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}
