// Package ledgerapi provides the client for the external accounting
// source. All requests flow through a rate limiting queue so period
// backfills stay within the source's request quota.
package ledgerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/domain"
)

const (
	defaultRateLimitDelay = 1100 * time.Millisecond
	requestQueueSize      = 100
)

// requestJob represents a job in the rate limiting queue
type requestJob struct {
	ctx      context.Context
	path     string
	query    url.Values
	resultCh chan requestResult
}

// requestResult represents the result of a request
type requestResult struct {
	body []byte
	err  error
}

// Client talks to the accounting source API. One worker goroutine
// processes queued requests sequentially, enforcing a fixed delay
// between consecutive calls.
type Client struct {
	baseURL      string
	apiToken     string
	httpClient   *http.Client
	log          zerolog.Logger
	delay        time.Duration
	requestQueue chan requestJob
	stopChan     chan struct{}
	workerDone   chan struct{}
	once         sync.Once
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimitDelay overrides the delay between consecutive requests.
func WithRateLimitDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an accounting source client and starts its rate
// limiting worker. Call Close to stop the worker.
func NewClient(baseURL, apiToken string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiToken:     apiToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log.With().Str("client", "ledgerapi").Logger(),
		delay:        defaultRateLimitDelay,
		requestQueue: make(chan requestJob, requestQueueSize),
		stopChan:     make(chan struct{}),
		workerDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.worker()

	return c
}

// get queues a GET request and waits for its result.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	select {
	case <-c.stopChan:
		return nil, fmt.Errorf("%w: client is closed", domain.ErrSourceUnavailable)
	default:
	}

	resultCh := make(chan requestResult, 1)

	job := requestJob{
		ctx:      ctx,
		path:     path,
		query:    query,
		resultCh: resultCh,
	}

	select {
	case c.requestQueue <- job:
	case <-c.stopChan:
		return nil, fmt.Errorf("%w: client is closed", domain.ErrSourceUnavailable)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-resultCh:
		return result.body, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// worker processes requests from the queue sequentially with rate limiting
func (c *Client) worker() {
	defer close(c.workerDone)

	var lastRequestTime time.Time
	firstRequest := true

	processJob := func(job requestJob) {
		if !firstRequest {
			elapsed := time.Since(lastRequestTime)
			if elapsed < c.delay {
				select {
				case <-time.After(c.delay - elapsed):
				case <-job.ctx.Done():
					job.resultCh <- requestResult{err: job.ctx.Err()}
					return
				}
			}
		}
		firstRequest = false

		var result requestResult
		result.body, result.err = c.doRequest(job.ctx, job.path, job.query)
		lastRequestTime = time.Now()

		job.resultCh <- result
	}

	for {
		select {
		case <-c.stopChan:
			// Drain remaining jobs so no caller blocks forever.
			for {
				select {
				case job, ok := <-c.requestQueue:
					if !ok {
						return
					}
					processJob(job)
				default:
					return
				}
			}
		case job, ok := <-c.requestQueue:
			if !ok {
				return
			}
			processJob(job)
		}
	}
}

// Close gracefully shuts down the rate limiting worker.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.stopChan)
		<-c.workerDone
	})
}

// doRequest performs one HTTP GET without rate limiting.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to build request URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(body)
		if len(bodyStr) > 500 {
			bodyStr = bodyStr[:500] + "..."
		}
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("path", path).
			Str("response_body", bodyStr).
			Msg("Source API returned non-200 status")
		return nil, fmt.Errorf("%w: status %d on %s", domain.ErrSourceUnavailable, resp.StatusCode, path)
	}

	return body, nil
}

// decodeEnvelope parses the source's standard `{"data": ...}` envelope.
// A body that is not valid JSON, or whose data element is missing, is a
// malformed payload.
func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data element", domain.ErrMalformedPayload)
	}
	return envelope.Data, nil
}
