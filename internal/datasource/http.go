package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/reportcore/internal/record"
)

// DefaultHTTPTimeout bounds a single remote fetch.
const DefaultHTTPTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// HTTPSource fetches rows from a remote endpoint.
//
// Fetch issues GET {baseURL}/{id}. The response body is a JSON array of
// objects or an object holding a "rows" array. 404 maps to
// ErrUnknownSource; any other non-2xx status is a fetch error.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	header  http.Header
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// WithTimeout sets the request timeout. It applies on top of any client
// passed to WithHTTPClient without modifying that client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.timeout = d
	}
}

// WithRateLimit caps outgoing requests at r per second with the given burst.
// Fetch waits for a token, or returns early when ctx is done.
func WithRateLimit(r rate.Limit, burst int) HTTPOption {
	return func(s *HTTPSource) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

// WithHeader adds a header sent with every request (e.g. Authorization).
func WithHeader(key, value string) HTTPOption {
	return func(s *HTTPSource) {
		s.header.Add(key, value)
	}
}

// NewHTTPSource creates a source for the endpoint at baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout > 0 && s.client.Timeout != s.timeout {
		c := *s.client
		c.Timeout = s.timeout
		s.client = &c
	}
	return s
}

// Fetch retrieves the rows of dataSourceID.
func (s *HTTPSource) Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	endpoint := s.baseURL + "/" + url.PathEscape(dataSourceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, unknown(dataSourceID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	rows, err := record.DecodeRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return rows, nil
}
