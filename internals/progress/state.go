package progress

import (
	"github.com/buildwatch/buildwatch/internals/schemas"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseConnecting  Phase = "connecting"
	PhaseOpen        Phase = "open"
	PhaseComplete    Phase = "complete"
	PhaseErrorClosed Phase = "error-closed"
	PhaseClosed      Phase = "closed"
)

// Terminal reports whether no further events are processed in this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseComplete, PhaseErrorClosed, PhaseClosed:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	return string(p)
}

// State is what a subscription has folded from its stream so far.
type State struct {
	ProjectID int64
	Phase     Phase
	Logs      []schemas.TaskLog
	Status    schemas.ProjectStatus
	Complete  bool
	// Error is the failure reported by the server on completion.
	Error         string
	ResultSummary string
	Connected     bool
	// Cause is the transport error that ended the subscription, if any.
	Cause   string
	Dropped int

	syntheticSeq int64
}

func NewState(projectID int64) State {
	return State{
		ProjectID: projectID,
		Phase:     PhaseIdle,
		Status:    schemas.ProjectStatusPending,
	}
}

// Failed reports whether the run ended badly, either by the server's account
// or because the stream broke before completion.
func (s State) Failed() bool {
	if s.Phase == PhaseErrorClosed {
		return true
	}
	return s.Complete && (s.Error != "" || s.Status == schemas.ProjectStatusFailed)
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	clone := s
	if s.Logs != nil {
		clone.Logs = make([]schemas.TaskLog, len(s.Logs))
		copy(clone.Logs, s.Logs)
	}
	return clone
}

func (s *State) connecting() bool {
	if s.Phase != PhaseIdle {
		return false
	}
	s.Phase = PhaseConnecting
	return true
}

func (s *State) opened() bool {
	if s.Phase != PhaseConnecting {
		return false
	}
	s.Phase = PhaseOpen
	s.Connected = true
	return true
}

func (s *State) fail(cause error) bool {
	if s.Phase != PhaseConnecting && s.Phase != PhaseOpen {
		return false
	}
	s.Phase = PhaseErrorClosed
	s.Connected = false
	if cause != nil {
		s.Cause = cause.Error()
	}
	return true
}

func (s *State) drop() bool {
	if s.Phase.Terminal() {
		return false
	}
	s.Dropped++
	return true
}

// close discards everything folded so far. Allowed from any phase.
func (s *State) close() {
	*s = State{
		ProjectID: s.ProjectID,
		Phase:     PhaseClosed,
		Status:    schemas.ProjectStatusPending,
	}
}

// Apply folds one event into the state. It returns false and leaves the
// state untouched unless the subscription is open.
func (s *State) Apply(event schemas.StreamEvent) bool {
	if s.Phase != PhaseOpen {
		return false
	}

	switch event.Type {
	case schemas.StreamEventLog:
		entry := schemas.TaskLog{
			ID:        event.LogID,
			ProjectID: s.ProjectID,
			Message:   event.Message,
			LogType:   event.LogType,
			CreatedAt: event.Timestamp,
		}
		if entry.ID == 0 {
			s.syntheticSeq++
			entry.ID = s.syntheticSeq
			entry.Synthetic = true
		}
		s.Logs = append(s.Logs, entry)
	case schemas.StreamEventStatus:
		s.Status = event.Status
	case schemas.StreamEventComplete:
		s.Complete = true
		if event.Status != "" {
			s.Status = event.Status
		}
		if event.ErrorMessage != "" {
			s.Error = event.ErrorMessage
		}
		if event.ResultSummary != "" {
			s.ResultSummary = event.ResultSummary
		}
		s.Connected = false
		s.Phase = PhaseComplete
	default:
		return false
	}
	return true
}
