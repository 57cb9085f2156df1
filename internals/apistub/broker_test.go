package apistub

import (
	"io"
	"log/slog"
	"testing"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

func TestBrokerPublishReachesProjectSubscribers(t *testing.T) {
	b := newBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, unsubFirst := b.subscribe(1)
	second, unsubSecond := b.subscribe(1)
	other, unsubOther := b.subscribe(2)
	defer unsubOther()

	b.publish(1, schemas.StreamEvent{Type: schemas.StreamEventStatus, Status: schemas.ProjectStatusRunning})

	for _, ch := range []<-chan schemas.StreamEvent{first, second} {
		select {
		case event := <-ch:
			if event.Status != schemas.ProjectStatusRunning {
				t.Fatalf("unexpected event %+v", event)
			}
		default:
			t.Fatalf("expected event delivered")
		}
	}
	select {
	case event := <-other:
		t.Fatalf("unexpected event for other project %+v", event)
	default:
	}

	unsubFirst()
	unsubFirst()
	if b.subscriberCount(1) != 1 {
		t.Fatalf("expected one subscriber left, got %d", b.subscriberCount(1))
	}
	unsubSecond()
	if b.subscriberCount(1) != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestBrokerPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := newBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ch, unsubscribe := b.subscribe(1)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.publish(1, schemas.StreamEvent{Type: schemas.StreamEventLog, LogID: int64(i + 1)})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer full at %d, got %d", subscriberBuffer, len(ch))
	}
}
