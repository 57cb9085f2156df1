package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

func TestSubscriptionScenario(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(42, 0)

	sub := Subscribe(context.Background(), dialer, 42, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)

	waitFor(t, sub, func(s State) bool { return s.Phase == PhaseOpen })

	stream.send(`{"type":"log","message":"starting","log_type":"info","timestamp":"T1"}`)
	state := waitFor(t, sub, func(s State) bool { return len(s.Logs) == 1 })
	if state.Logs[0].Message != "starting" || !state.Connected {
		t.Fatalf("unexpected state after log %+v", state)
	}

	stream.send(`{"type":"status","status":"running"}`)
	state = waitFor(t, sub, func(s State) bool { return s.Status == schemas.ProjectStatusRunning })
	if state.Complete {
		t.Fatalf("expected incomplete after status")
	}

	stream.send(`{"type":"complete","status":"completed"}`)
	waitDone(t, sub)
	state = sub.Snapshot()
	if !state.Complete || state.Status != schemas.ProjectStatusCompleted || state.Error != "" {
		t.Fatalf("unexpected completed state %+v", state)
	}
	if state.Connected || state.Phase != PhaseComplete {
		t.Fatalf("expected closed connection, got %+v", state)
	}

	if dialer.viewers[0] != 7 {
		t.Fatalf("expected viewer 7 to be dialed, got %v", dialer.viewers)
	}
	<-sub.exited
	if !stream.isClosed() {
		t.Fatalf("expected stream closed after complete")
	}
}

func TestSubscriptionTransportErrorBeforeMessage(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 1)
	stream.fail(errors.New("connection reset"))

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)
	waitDone(t, sub)

	state := sub.Snapshot()
	if state.Phase != PhaseErrorClosed || state.Connected || state.Complete {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(state.Logs) != 0 {
		t.Fatalf("expected no logs, got %+v", state.Logs)
	}
	if state.Cause != "connection reset" || !state.Failed() {
		t.Fatalf("expected cause recorded, got %+v", state)
	}
}

func TestSubscriptionDialError(t *testing.T) {
	dialer := newFakeDialer()
	dialer.err = errors.New("503 Service Unavailable")

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)
	waitDone(t, sub)

	state := sub.Snapshot()
	if state.Phase != PhaseErrorClosed || state.Connected {
		t.Fatalf("expected error-closed, got %+v", state)
	}
}

func TestSubscriptionEndOfStreamIsTransportError(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 2)
	stream.send(`{"type":"log","message":"a","log_type":"info","timestamp":"T1"}`)
	stream.fail(ErrStreamEnded)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)
	waitDone(t, sub)

	state := sub.Snapshot()
	if state.Phase != PhaseErrorClosed || len(state.Logs) != 1 || state.Complete {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestSubscriptionIgnoresEventsAfterComplete(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 4)
	stream.send(`{"type":"log","message":"a","log_type":"info","timestamp":"T1"}`)
	stream.send(`{"type":"complete","status":"completed"}`)
	stream.send(`{"type":"log","message":"late","log_type":"info","timestamp":"T2"}`)
	stream.send(`{"type":"status","status":"running"}`)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)
	waitDone(t, sub)

	state := sub.Snapshot()
	if len(state.Logs) != 1 || state.Logs[0].Message != "a" {
		t.Fatalf("expected only first log, got %+v", state.Logs)
	}
	if state.Status != schemas.ProjectStatusCompleted {
		t.Fatalf("expected completed status, got %s", state.Status)
	}
}

func TestSubscriptionDropsMalformedEvents(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 6)
	stream.send(`not json`)
	stream.send(`{"type":"complete"`)
	stream.send(`{"type":"status"}`)
	stream.send(`{"type":"bogus"}`)
	stream.send(`{"type":"log","message":"ok","log_type":"success","timestamp":"T1"}`)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)

	state := waitFor(t, sub, func(s State) bool { return len(s.Logs) == 1 })
	if state.Dropped != 4 {
		t.Fatalf("expected 4 dropped events, got %d", state.Dropped)
	}
	if state.Complete || state.Status != schemas.ProjectStatusPending || state.Phase != PhaseOpen {
		t.Fatalf("malformed events changed state: %+v", state)
	}
}

func TestSubscriptionPreservesArrivalOrder(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 0)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	t.Cleanup(sub.Close)

	messages := []string{"first", "second", "third", "fourth", "fifth"}
	go func() {
		for _, message := range messages {
			stream.send(`{"type":"log","message":"` + message + `","log_type":"info","timestamp":"T"}`)
		}
	}()

	state := waitFor(t, sub, func(s State) bool { return len(s.Logs) == len(messages) })
	for i, message := range messages {
		if state.Logs[i].Message != message {
			t.Fatalf("log %d: expected %q, got %q", i, message, state.Logs[i].Message)
		}
		if state.Logs[i].ID != int64(i+1) || !state.Logs[i].Synthetic {
			t.Fatalf("log %d: expected synthetic id %d, got %+v", i, i+1, state.Logs[i])
		}
	}
}

func TestSubscriptionCloseDiscardsState(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 1)
	stream.send(`{"type":"log","message":"a","log_type":"info","timestamp":"T1"}`)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	waitFor(t, sub, func(s State) bool { return len(s.Logs) == 1 })

	sub.Close()
	sub.Close()

	state := sub.Snapshot()
	if state.Phase != PhaseClosed || state.Connected || len(state.Logs) != 0 {
		t.Fatalf("expected discarded closed state, got %+v", state)
	}
	if !stream.isClosed() {
		t.Fatalf("expected stream closed")
	}
	select {
	case <-sub.Done():
	default:
		t.Fatalf("expected done after close")
	}
}

func TestSubscriptionCloseAfterComplete(t *testing.T) {
	dialer := newFakeDialer()
	stream := dialer.add(1, 1)
	stream.send(`{"type":"complete","status":"completed"}`)

	sub := Subscribe(context.Background(), dialer, 1, 7, WithLogger(quietLogger()))
	waitDone(t, sub)
	sub.Close()

	if state := sub.Snapshot(); state.Phase != PhaseClosed || state.Complete {
		t.Fatalf("expected close to discard completed state, got %+v", state)
	}
}

func TestSubscriptionContextCancelIsNotTransportError(t *testing.T) {
	dialer := newFakeDialer()
	dialer.add(1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sub := Subscribe(ctx, dialer, 1, 7, WithLogger(quietLogger()))
	waitFor(t, sub, func(s State) bool { return s.Phase == PhaseOpen })

	cancel()
	sub.Close()
	if state := sub.Snapshot(); state.Phase != PhaseClosed || state.Cause != "" {
		t.Fatalf("expected clean close, got %+v", state)
	}
}

func TestSubscribeInvalidProjectStaysIdle(t *testing.T) {
	dialer := newFakeDialer()
	sub := Subscribe(context.Background(), dialer, 0, 7, WithLogger(quietLogger()))

	if state := sub.Snapshot(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %s", state.Phase)
	}
	if dialer.callCount() != 0 {
		t.Fatalf("expected no dial")
	}
	select {
	case <-sub.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected Done closed for idle subscription, phase=%s", sub.Snapshot().Phase)
	}
	sub.Close()
	if state := sub.Snapshot(); state.Phase != PhaseClosed {
		t.Fatalf("expected closed, got %s", state.Phase)
	}
}
