package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type streamMsg struct {
	data []byte
	err  error
}

type fakeStream struct {
	msgs      chan streamMsg
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream(buffer int) *fakeStream {
	return &fakeStream{
		msgs:   make(chan streamMsg, buffer),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Next() ([]byte, error) {
	select {
	case <-s.closed:
		return nil, errors.New("use of closed stream")
	default:
	}
	select {
	case msg := <-s.msgs:
		return msg.data, msg.err
	case <-s.closed:
		return nil, errors.New("use of closed stream")
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeStream) send(data string) {
	s.msgs <- streamMsg{data: []byte(data)}
}

func (s *fakeStream) fail(err error) {
	s.msgs <- streamMsg{err: err}
}

type fakeDialer struct {
	mu      sync.Mutex
	streams map[int64]*fakeStream
	err     error
	calls   []int64
	viewers []int64
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{streams: map[int64]*fakeStream{}}
}

func (d *fakeDialer) add(projectID int64, buffer int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	stream := newFakeStream(buffer)
	d.streams[projectID] = stream
	return stream
}

func (d *fakeDialer) Dial(ctx context.Context, projectID int64, viewerID int64) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, projectID)
	d.viewers = append(d.viewers, viewerID)
	if d.err != nil {
		return nil, d.err
	}
	stream, ok := d.streams[projectID]
	if !ok {
		return nil, errors.New("no stream")
	}
	return stream, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, sub *Subscription, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		state := sub.Snapshot()
		if cond(state) {
			return state
		}
		select {
		case <-sub.Changes():
		case <-deadline:
			t.Fatalf("timed out waiting for state, last %+v", sub.Snapshot())
		}
	}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for subscription to finish, last %+v", sub.Snapshot())
	}
}
