package logbuf

import "context"

type contextKey struct{}

func WithContext(ctx context.Context, buf *Buffer) context.Context {
	return context.WithValue(ctx, contextKey{}, buf)
}

// FromContext returns the buffer stored in ctx, or a throwaway buffer so
// callers never need a nil check.
func FromContext(ctx context.Context) *Buffer {
	buf, ok := ctx.Value(contextKey{}).(*Buffer)
	if !ok {
		return New(1)
	}
	return buf
}
