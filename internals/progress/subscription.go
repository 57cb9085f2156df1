package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/buildwatch/buildwatch/internals/logbuf"
)

type options struct {
	logger    *slog.Logger
	diagLimit int
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDiagnosticLimit caps how many diagnostics a subscription keeps before
// it only counts them.
func WithDiagnosticLimit(limit int) Option {
	return func(o *options) {
		o.diagLimit = limit
	}
}

// Subscription follows one project's live stream. A single goroutine reads
// the stream and is the only writer of the state; readers take snapshots.
type Subscription struct {
	projectID int64
	viewerID  int64
	logger    *slog.Logger
	diag      *logbuf.Buffer

	mu    sync.Mutex
	state State

	stream Stream
	cancel context.CancelFunc

	changes   chan struct{}
	done      chan struct{}
	exited    chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// Subscribe starts following projectID as viewerID. A non-positive project
// id leaves the subscription idle without dialing, with Done already closed.
func Subscribe(ctx context.Context, dialer Dialer, projectID int64, viewerID int64, opts ...Option) *Subscription {
	o := options{logger: slog.Default(), diagLimit: logbuf.DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}

	sub := &Subscription{
		projectID: projectID,
		viewerID:  viewerID,
		logger:    o.logger,
		diag: logbuf.New(o.diagLimit,
			slog.Int64("project_id", projectID),
			slog.Int64("viewer_id", viewerID),
		),
		state:   NewState(projectID),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}

	if projectID <= 0 {
		close(sub.exited)
		sub.doneOnce.Do(func() { close(sub.done) })
		return sub
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub.cancel = cancel
	sub.update(func(s *State) bool { return s.connecting() })
	go sub.run(runCtx, dialer)
	return sub
}

func (s *Subscription) ProjectID() int64 {
	return s.projectID
}

// Snapshot returns a copy of the current state.
func (s *Subscription) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Changes receives a value after the state changes. Notifications coalesce,
// so a reader should take a fresh Snapshot on every receive.
func (s *Subscription) Changes() <-chan struct{} {
	return s.changes
}

// Done is closed once the subscription reaches a terminal phase, or right
// away for an idle subscription that will never dial.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and discards its state. It waits for the
// reader goroutine to exit, so no event is applied after Close returns.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		stream := s.stream
		s.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		<-s.exited

		s.update(func(st *State) bool {
			st.close()
			return true
		})
	})
}

func (s *Subscription) run(ctx context.Context, dialer Dialer) {
	defer close(s.exited)
	defer s.flushDiagnostics()

	s.diag.Debug("dialing")
	stream, err := dialer.Dial(ctx, s.projectID, s.viewerID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.transportError(err)
		return
	}
	defer stream.Close()

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.stream = stream
	s.mu.Unlock()

	s.diag.Debug("stream open")
	s.update(func(st *State) bool { return st.opened() })

	for {
		data, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.transportError(err)
			return
		}

		event, err := ParseEvent(data)
		if err != nil {
			s.logger.Warn("dropped stream event",
				slog.Int64("project_id", s.projectID),
				slog.String("error", err.Error()),
			)
			s.diag.Warn("dropped stream event",
				slog.String("error", err.Error()),
				slog.String("payload", truncate(string(data), 200)),
			)
			s.update(func(st *State) bool { return st.drop() })
			continue
		}

		terminal := false
		s.update(func(st *State) bool {
			changed := st.Apply(event)
			terminal = st.Phase.Terminal()
			return changed
		})
		if terminal {
			s.diag.Info("run complete")
			return
		}
	}
}

func (s *Subscription) transportError(err error) {
	s.diag.Error("stream transport error", slog.String("error", err.Error()))
	s.update(func(st *State) bool { return st.fail(err) })
}

// update applies fn under the lock and notifies readers when it reports a
// change.
func (s *Subscription) update(fn func(*State) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	terminal := s.state.Phase.Terminal()
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.changes <- struct{}{}:
	default:
	}
	if terminal {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *Subscription) flushDiagnostics() {
	state := s.Snapshot()
	s.diag.Add(
		slog.String("phase", state.Phase.String()),
		slog.Int("logs", len(state.Logs)),
		slog.Int("dropped", state.Dropped),
	)
	s.logger.Log(context.Background(), s.diag.Level(), "subscription ended", s.diag.Flush())
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}
