package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/buildwatch/buildwatch/internals/version"
	"github.com/buildwatch/buildwatch/sdk"
)

// Dialer opens a project's live stream. A nil error is the open
// acknowledgment.
type Dialer interface {
	Dial(ctx context.Context, projectID int64, viewerID int64) (Stream, error)
}

// Stream yields raw event payloads in arrival order. Next blocks until a
// payload arrives, the stream ends, or the dial context is cancelled.
// Close may be called concurrently with Next.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

type DialerFunc func(ctx context.Context, projectID int64, viewerID int64) (Stream, error)

func (f DialerFunc) Dial(ctx context.Context, projectID int64, viewerID int64) (Stream, error) {
	return f(ctx, projectID, viewerID)
}

var ErrStreamEnded = errors.New("stream ended")

type HTTPDialer struct {
	client     *sdk.Client
	httpClient *http.Client
}

// NewHTTPDialer streams from client's API. It reuses the client's transport
// but never its timeout, which would cut long runs short.
func NewHTTPDialer(client *sdk.Client) *HTTPDialer {
	transport := http.DefaultTransport
	if base := client.HTTPClient(); base != nil && base.Transport != nil {
		transport = base.Transport
	}
	return &HTTPDialer{
		client:     client,
		httpClient: &http.Client{Transport: transport},
	}
}

func (d *HTTPDialer) Dial(ctx context.Context, projectID int64, viewerID int64) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.client.StreamURL(projectID, viewerID), nil)
	if err != nil {
		return nil, fmt.Errorf("stream project %d: %w", projectID, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream project %d: %w", projectID, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream project %d: unexpected status %s", projectID, resp.Status)
	}
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != "text/event-stream" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream project %d: unexpected content type %q", projectID, resp.Header.Get("Content-Type"))
	}
	return &httpStream{body: resp.Body, decoder: newSSEDecoder(resp.Body)}, nil
}

type httpStream struct {
	body      io.ReadCloser
	decoder   *sseDecoder
	closeOnce sync.Once
	closeErr  error
}

func (s *httpStream) Next() ([]byte, error) {
	for {
		event, err := s.decoder.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrStreamEnded
			}
			return nil, err
		}
		if event.Event != defaultSSEEvent {
			continue
		}
		return []byte(event.Data), nil
	}
}

func (s *httpStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
