package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/buildwatch/buildwatch/internals/session"
)

var ErrInvalidProject = errors.New("invalid project id")

// Tracker keeps at most one live subscription for a viewer. Watching a new
// project tears the previous subscription down first.
type Tracker struct {
	dialer Dialer
	viewer session.Viewer
	opts   []Option

	mu      sync.Mutex
	current *Subscription
}

func NewTracker(dialer Dialer, viewer session.Viewer, opts ...Option) *Tracker {
	return &Tracker{
		dialer: dialer,
		viewer: viewer,
		opts:   opts,
	}
}

// Watch returns a subscription for projectID. A live subscription for the
// same project is reused; any other is closed before the new one dials.
func (t *Tracker) Watch(ctx context.Context, projectID int64) (*Subscription, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProject, projectID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		if t.current.ProjectID() == projectID && !t.current.Snapshot().Phase.Terminal() {
			return t.current, nil
		}
		t.current.Close()
		t.current = nil
	}

	t.current = Subscribe(ctx, t.dialer, projectID, t.viewer.UserID, t.opts...)
	return t.current, nil
}

func (t *Tracker) Current() *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.Close()
		t.current = nil
	}
}
