package apistub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/buildwatch/buildwatch/internals/logbuf"
	"github.com/buildwatch/buildwatch/internals/schemas"
)

// HandlerProjectStream replays the project's stored logs and then forwards
// live run events until the run completes or the client goes away. A
// project that already finished gets its history and a complete event.
func (s *Server) HandlerProjectStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		RenderError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	// Subscribe before reading history so nothing falls between the two.
	events, unsubscribe := s.broker.subscribe(projectID)
	defer unsubscribe()

	ctx := r.Context()
	project, err := s.store.getProject(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			RenderError(w, r, http.StatusNotFound, "Project not found")
			return
		}
		s.internalError(w, r, "get project", err)
		return
	}
	history, err := s.store.listLogs(ctx, projectID)
	if err != nil {
		s.internalError(w, r, "list logs", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	diag := logbuf.FromContext(ctx)
	sent := 0
	send := func(event schemas.StreamEvent) bool {
		data, err := json.Marshal(event)
		if err != nil {
			diag.Error("encode event", slog.String("error", err.Error()))
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		sent++
		return true
	}
	defer func() { diag.Add(slog.Int("events_sent", sent)) }()

	var lastLogID int64
	for _, entry := range history {
		if !send(logEvent(entry)) {
			return
		}
		lastLogID = entry.ID
	}
	if project.Status != schemas.ProjectStatusPending {
		if !send(schemas.StreamEvent{Type: schemas.StreamEventStatus, Status: project.Status, UpdatedAt: project.UpdatedAt}) {
			return
		}
	}
	if project.Status.IsTerminal() {
		send(completeEvent(project))
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event := <-events:
			if event.Type == schemas.StreamEventLog && event.LogID <= lastLogID {
				continue
			}
			if !send(event) {
				return
			}
			if event.Type == schemas.StreamEventComplete {
				return
			}
		}
	}
}

func logEvent(entry schemas.TaskLog) schemas.StreamEvent {
	return schemas.StreamEvent{
		Type:      schemas.StreamEventLog,
		LogID:     entry.ID,
		Message:   entry.Message,
		LogType:   entry.LogType,
		Timestamp: entry.CreatedAt,
	}
}
