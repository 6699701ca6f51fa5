package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/skinoai/internal/logging"
)

const (
	DefaultPredictPath = "/predict"
	DefaultPingPath    = "/ping"

	maxResponseSize = 1 << 20
)

// Option configures a Client during construction.
type Option func(c *Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPaths overrides the predict and ping path suffixes.
func WithPaths(predictPath, pingPath string) Option {
	return func(c *Client) {
		if predictPath != "" {
			c.predictPath = predictPath
		}
		if pingPath != "" {
			c.pingPath = pingPath
		}
	}
}

// WithObserver registers an observer notified of every predict attempt.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// Client posts images to an ordered list of backends and returns the first
// successful prediction.
type Client struct {
	endpoints   []string
	predictPath string
	pingPath    string
	httpClient  *http.Client
	observer    Observer
	logger      *zap.Logger
}

// NewClient builds a client over endpoints. Order is priority order.
func NewClient(endpoints []string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		endpoints:   append([]string(nil), endpoints...),
		predictPath: DefaultPredictPath,
		pingPath:    DefaultPingPath,
		httpClient:  http.DefaultClient,
		observer:    nopObserver{},
		logger:      logger.Named("predictor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the configured base URLs in priority order.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// Predict tries every endpoint in order and returns the first response whose
// success flag is set. When all endpoints fail it returns an *AggregateError
// carrying the last failure message.
func (c *Client) Predict(ctx context.Context, imageBase64 string) (*Response, error) {
	if len(c.endpoints) == 0 {
		return nil, &AggregateError{LastError: noEndpointsMessage}
	}

	body, err := json.Marshal(Request{Image: imageBase64})
	if err != nil {
		return nil, logging.Wrap("predictor.encode_request", "", err)
	}

	var lastError string
	for i, base := range c.endpoints {
		url := joinURL(base, c.predictPath)
		c.logger.Debug("trying backend", zap.String("url", url), zap.Int("attempt", i+1))

		start := time.Now()
		resp, outcome, msg := c.attempt(ctx, url, body)
		c.observer.ObserveAttempt(Attempt{Endpoint: base, Outcome: outcome, Duration: time.Since(start), Err: msg})

		if outcome == OutcomeSuccess {
			c.logger.Info("received prediction",
				zap.String("endpoint", base),
				zap.String("class", resp.Class),
				zap.Float64("confidence", resp.Confidence),
			)
			return resp, nil
		}

		lastError = msg
		c.logger.Warn("backend attempt failed",
			zap.String("endpoint", base),
			zap.String("outcome", string(outcome)),
			zap.String("error", msg),
		)
	}

	return nil, &AggregateError{LastError: lastError, Attempts: len(c.endpoints)}
}

func (c *Client) attempt(ctx context.Context, url string, body []byte) (*Response, Outcome, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, OutcomeTransportError, transportMessage(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, OutcomeTransportError, transportMessage(err)
	}
	defer httpResp.Body.Close()

	var parsed Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, OutcomeServerError, serverErrorMessage(nil, httpResp.StatusCode)
	}
	if !statusOK(httpResp.StatusCode) || !parsed.Success {
		return nil, OutcomeServerError, serverErrorMessage(&parsed, httpResp.StatusCode)
	}
	return &parsed, OutcomeSuccess, ""
}

// CheckHealth reports whether any endpoint answers its ping path.
func (c *Client) CheckHealth(ctx context.Context) bool {
	_, ok := c.Probe(ctx)
	return ok
}

// Probe pings endpoints in order and returns the first base URL that answered
// with a 2xx status.
func (c *Client) Probe(ctx context.Context) (string, bool) {
	for _, base := range c.endpoints {
		if err := c.ping(ctx, joinURL(base, c.pingPath)); err != nil {
			c.logger.Warn("backend health check failed", zap.String("endpoint", base), zap.Error(err))
			continue
		}
		c.logger.Info("backend is healthy", zap.String("endpoint", base))
		return base, true
	}
	return "", false
}

func (c *Client) ping(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if !statusOK(resp.StatusCode) {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// statusOK reports whether status is in the 2xx range.
func statusOK(status int) bool {
	return status >= 200 && status <= 299
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func transportMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return networkFailure
}
