package organizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/italolelis/organizer_hook/internal/logctx"
)

const (
	RequestIDHeader   = "X-Request-ID"
	TorrentNameHeader = "X-Torrent-Name"
	TorrentDirHeader  = "X-Torrent-Dir"

	// DefaultTimeout bounds a single attempt so a hung organizer cannot block
	// the torrent client's hook forever.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 512
)

// Item identifies the completed download. Both fields are opaque.
type Item struct {
	Dir  string
	Name string
}

// Client triggers scans on the organizer service.
type Client struct {
	client      *http.Client
	url         string
	includeItem bool
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithTransport sets the round tripper used for triggers.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.client.Transport = rt
	}
}

// WithItemHeaders makes every trigger carry the completed item's name and
// directory so the organizer can tell what finished.
func WithItemHeaders(enabled bool) Option {
	return func(c *Client) {
		c.includeItem = enabled
	}
}

// NewClient creates a client posting to the full trigger URL, e.g.
// http://organizer:8000/scan-once.
func NewClient(triggerURL string, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		url: triggerURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// URL returns the trigger endpoint.
func (c *Client) URL() string {
	return c.url
}

// TriggerScan performs exactly one trigger attempt and returns the observed
// status code. It returns nil only when the exchange completed and the
// organizer answered 200.
func (c *Client) TriggerScan(ctx context.Context, item Item) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := logctx.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req.Header.Set(RequestIDHeader, requestID)

	if c.includeItem {
		req.Header.Set(TorrentNameHeader, item.Name)
		req.Header.Set(TorrentDirHeader, item.Dir)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &TransportError{Op: "send_request", Err: err}
	}
	defer resp.Body.Close()

	// The whole body must arrive; a 200 whose body is cut short does not
	// count as an acknowledgment.
	var head bytes.Buffer
	if _, err := io.Copy(io.Discard, io.TeeReader(resp.Body, &limitedWriter{w: &head, n: maxErrorBody})); err != nil {
		return resp.StatusCode, &TransportError{Op: "read_response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(head.String()),
		}
	}

	return resp.StatusCode, nil
}

// limitedWriter keeps the first n bytes written to it and drops the rest.
type limitedWriter struct {
	w *bytes.Buffer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if remaining := l.n - l.w.Len(); remaining > 0 {
		if len(p) > remaining {
			l.w.Write(p[:remaining])
		} else {
			l.w.Write(p)
		}
	}

	return len(p), nil
}
