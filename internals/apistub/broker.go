package apistub

import (
	"log/slog"
	"sync"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

const subscriberBuffer = 64

// broker fans a project's run events out to the stream handlers watching it.
type broker struct {
	logger *slog.Logger
	mu     sync.Mutex
	subs   map[int64]map[chan schemas.StreamEvent]struct{}
}

func newBroker(logger *slog.Logger) *broker {
	return &broker{
		logger: logger,
		subs:   make(map[int64]map[chan schemas.StreamEvent]struct{}),
	}
}

// subscribe returns a channel of events for projectID and a func that
// detaches it. The channel is never closed by the broker.
func (b *broker) subscribe(projectID int64) (<-chan schemas.StreamEvent, func()) {
	ch := make(chan schemas.StreamEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[chan schemas.StreamEvent]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[projectID], ch)
			if len(b.subs[projectID]) == 0 {
				delete(b.subs, projectID)
			}
		})
	}
}

// publish never blocks the run; a subscriber whose buffer is full misses
// the event.
func (b *broker) publish(projectID int64, event schemas.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[projectID] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("stream subscriber lagging, event dropped",
				"project_id", projectID,
				"event_type", event.Type,
			)
		}
	}
}

func (b *broker) subscriberCount(projectID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[projectID])
}
