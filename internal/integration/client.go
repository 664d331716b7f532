// Package integration holds the HTTP clients for the institutional curriculum,
// transcript and identity feeds.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

const maxFeedBody = 8 << 20

// Recorder receives one observation per feed request.
type Recorder interface {
	RecordFeedRequest(feed, result string)
}

// ClientConfig configures a feed client.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Retries       int
	RetryDelay    time.Duration
}

type feedClient struct {
	name     string
	cfg      ClientConfig
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	recorder Recorder
}

func newFeedClient(name string, cfg ClientConfig, logger *zap.Logger, recorder Recorder) *feedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &feedClient{
		name:     name,
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With(zap.String("feed", name)),
		recorder: recorder,
	}
}

// feedResponse is a decoded feed body with its HTTP status.
type feedResponse struct {
	Status int
	Body   interface{}
}

// get issues a rate-limited GET, retrying transport failures and 5xx answers.
// The body is decoded as generic JSON.
func (c *feedClient) get(ctx context.Context, path, rawQuery string, headers map[string]string) (*feedResponse, error) {
	endpoint := c.cfg.BaseURL + path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying feed request", zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, c.fail(ctx.Err())
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.fail(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, c.fail(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", c.name, err)
			continue
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read %s response: %w", c.name, err)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
			continue
		}

		var body interface{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, c.fail(fmt.Errorf("decode %s response (status %d): %w", c.name, resp.StatusCode, err))
			}
		}
		c.record("ok")
		return &feedResponse{Status: resp.StatusCode, Body: body}, nil
	}

	return nil, c.fail(fmt.Errorf("%s failed after %d attempts: %w", c.name, c.cfg.Retries+1, lastErr))
}

func (c *feedClient) fail(err error) error {
	c.record("error")
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, fmt.Sprintf("%s feed unavailable", c.name))
}

func (c *feedClient) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordFeedRequest(c.name, result)
	}
}

func query(pairs ...string) string {
	values := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return values.Encode()
}

// errorMessage extracts the "error" field some feeds return with a 200 status.
func errorMessage(body interface{}) (string, bool) {
	obj, ok := body.(map[string]interface{})
	if !ok {
		return "", false
	}
	raw, exists := obj["error"]
	if !exists || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case bool:
		return "request rejected", v
	default:
		return fmt.Sprint(v), true
	}
}
