package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_feed_fetch_attempts_total",
		Help: "The total number of tower feed fetch attempts",
	})

	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_feed_fetch_errors_total",
		Help: "The total number of failed tower feed fetches",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snatchbot_feed_fetch_duration_seconds",
		Help:    "Duration of successful tower feed fetches",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	})
)

const (
	// The feed host selects its output encoding with a fixed query parameter
	outputFormat = "json"

	// Cap the body read; the full tower listing is a few KB
	maxBodySize = 4 << 20
)

// TransportError wraps a fetch that failed before yielding a usable payload
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tower feed unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client fetches the unclaimed-sites feed. One GET per call and no retries;
// callers bound each call with a context deadline instead.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

func NewClient(endpoint string, userAgent string) *Client {
	return &Client{
		endpoint:  endpoint,
		userAgent: userAgent,
		http:      http.DefaultClient,
	}
}

// Fetch performs a single GET against the feed endpoint and returns the raw
// payload bytes. Any failure to come back with a 2xx body inside the context
// deadline is a TransportError.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	fetchAttempts.Inc()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to parse endpoint: %w", err)}
	}

	q := u.Query()
	q.Set("output", outputFormat)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		fetchErrors.Inc()
		log.Errorf("tower feed fetch failed: %v", err)
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		fetchErrors.Inc()
		log.Errorf("tower feed returned status %d", res.StatusCode)
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		fetchErrors.Inc()
		log.Errorf("tower feed body read failed: %v", err)
		return nil, &TransportError{Err: fmt.Errorf("failed to read body: %w", err)}
	}

	fetchDuration.Observe(time.Since(start).Seconds())

	return body, nil
}
