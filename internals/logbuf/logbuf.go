// Package logbuf collects diagnostics for one unit of work (a request, a
// stream subscription) and emits them as a single structured record when
// the work ends.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultLimit bounds how many entries a buffer keeps before it only counts.
const DefaultLimit = 100

type Entry struct {
	Level   slog.Level
	Message string
	At      time.Time
	Seq     uint64
	Attrs   []slog.Attr
}

type Buffer struct {
	mu       sync.Mutex
	attrs    []slog.Attr
	entries  []Entry
	seq      uint64
	limit    int
	overflow int
}

func New(limit int, attrs ...slog.Attr) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{
		attrs: append([]slog.Attr(nil), attrs...),
		limit: limit,
	}
}

// Add attaches attrs to the record emitted by Flush.
func (b *Buffer) Add(attrs ...slog.Attr) {
	if len(attrs) == 0 {
		return
	}
	b.mu.Lock()
	b.attrs = append(b.attrs, attrs...)
	b.mu.Unlock()
}

func (b *Buffer) Debug(message string, attrs ...slog.Attr) {
	b.append(slog.LevelDebug, message, attrs)
}

func (b *Buffer) Info(message string, attrs ...slog.Attr) {
	b.append(slog.LevelInfo, message, attrs)
}

func (b *Buffer) Warn(message string, attrs ...slog.Attr) {
	b.append(slog.LevelWarn, message, attrs)
}

func (b *Buffer) Error(message string, attrs ...slog.Attr) {
	b.append(slog.LevelError, message, attrs)
}

// Len counts every entry recorded since the last Flush, including the ones
// past the limit.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) + b.overflow
}

// Level is the highest level recorded since the last Flush, or Info when
// nothing was recorded.
func (b *Buffer) Level() slog.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	level := slog.LevelInfo
	for _, entry := range b.entries {
		if entry.Level > level {
			level = entry.Level
		}
	}
	return level
}

// Flush returns the buffered attrs and entries as one unnamed group and
// resets the entries. Attrs added with Add are kept.
func (b *Buffer) Flush() slog.Attr {
	b.mu.Lock()
	entries := b.entries
	overflow := b.overflow
	attrs := append([]slog.Attr(nil), b.attrs...)
	b.entries = nil
	b.overflow = 0
	b.seq = 0
	b.mu.Unlock()

	args := make([]any, 0, len(attrs)+2)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	args = append(args, slog.Any("entries", entriesToPayload(entries)))
	if overflow > 0 {
		args = append(args, slog.Int("entries_dropped", overflow))
	}
	return slog.Group("", args...)
}

func (b *Buffer) append(level slog.Level, message string, attrs []slog.Attr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	if len(b.entries) >= b.limit {
		b.overflow++
		return
	}
	entry := Entry{
		Level:   level,
		Message: message,
		At:      time.Now(),
		Seq:     b.seq,
	}
	if len(attrs) > 0 {
		entry.Attrs = append(entry.Attrs, attrs...)
	}
	b.entries = append(b.entries, entry)
}

func entriesToPayload(entries []Entry) []map[string]any {
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		item := map[string]any{
			"message": entry.Message,
			"level":   entry.Level.String(),
			"at":      entry.At,
			"seq":     entry.Seq,
		}
		for key, value := range attrsToMap(entry.Attrs) {
			if _, reserved := item[key]; reserved {
				continue
			}
			item[key] = value
		}
		payload = append(payload, item)
	}
	return payload
}

func attrsToMap(attrs []slog.Attr) map[string]any {
	result := map[string]any{}
	for _, attr := range attrs {
		if attr.Key == "" {
			if attr.Value.Kind() == slog.KindGroup {
				for key, value := range attrsToMap(attr.Value.Group()) {
					result[key] = value
				}
			}
			continue
		}
		if attr.Value.Kind() == slog.KindGroup {
			result[attr.Key] = attrsToMap(attr.Value.Group())
			continue
		}
		result[attr.Key] = attr.Value.Resolve().Any()
	}
	return result
}
