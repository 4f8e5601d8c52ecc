package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/botapigen/wire"
)

// HTTPTransport is the default transport adapter: it POSTs encoded bodies
// to <base URL>/bot<token>/<method> and hands the raw envelope bytes back
// to the codec without interpreting them. Non-2xx statuses are not errors
// here; the remote wraps every outcome in the envelope, including
// rejections delivered with 4xx/5xx statuses.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// HTTPOption configures an HTTPTransport. Options are passed through
// opaquely; the codec never sees them.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient substitutes a custom *http.Client (proxies, instrumented
// transports).
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if hc != nil {
			t.client = hc
		}
	}
}

// WithTimeout bounds each request round trip.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) { t.client.Timeout = d }
}

// WithBaseURL overrides the API endpoint, e.g. for a local test server.
func WithBaseURL(u string) HTTPOption {
	return func(t *HTTPTransport) { t.baseURL = strings.TrimRight(u, "/") }
}

const defaultBaseURL = "https://api.telegram.org"

// NewHTTPTransport builds the default adapter for the given bot token.
func NewHTTPTransport(token string, opts ...HTTPOption) (*HTTPTransport, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("client: empty token")
	}
	t := &HTTPTransport{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *wire.EncodedRequest) ([]byte, error) {
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, req.Method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", req.ContentType)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
