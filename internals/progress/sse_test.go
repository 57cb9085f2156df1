package progress

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestSSEDecoder(t *testing.T) {
	input := strings.Join([]string{
		": keepalive",
		"",
		"data: one",
		"",
		"id: 7",
		"data: two",
		"data: lines",
		"",
		"event: ping",
		"data: skip",
		"",
		"retry: 1500",
		"data:no-space",
		"",
		"event:",
		"",
		"data: trailing without blank line",
	}, "\n")
	decoder := newSSEDecoder(strings.NewReader(input))

	want := []sseEvent{
		{Event: "message", Data: "one"},
		{Event: "message", Data: "two\nlines", ID: "7"},
		{Event: "ping", Data: "skip", ID: "7"},
		{Event: "message", Data: "no-space", ID: "7"},
	}
	for i, expected := range want {
		got, err := decoder.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if got != expected {
			t.Fatalf("event %d: expected %+v, got %+v", i, expected, got)
		}
	}
	if decoder.retry != 1500*time.Millisecond {
		t.Fatalf("expected retry 1.5s, got %s", decoder.retry)
	}
	if _, err := decoder.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSSEDecoderCRLF(t *testing.T) {
	decoder := newSSEDecoder(strings.NewReader("data: {\"a\":1}\r\n\r\ndata: b\r\n\r\n"))
	first, err := decoder.Next()
	if err != nil || first.Data != `{"a":1}` {
		t.Fatalf("unexpected first event %+v, %v", first, err)
	}
	second, err := decoder.Next()
	if err != nil || second.Data != "b" {
		t.Fatalf("unexpected second event %+v, %v", second, err)
	}
}

func TestSSEDecoderEmptyData(t *testing.T) {
	decoder := newSSEDecoder(strings.NewReader("data:\n\n"))
	event, err := decoder.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Data != "" || event.Event != "message" {
		t.Fatalf("unexpected event %+v", event)
	}
}
