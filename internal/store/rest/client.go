package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/opsdeck/opsdeck/internal/circuitbreaker"
	"github.com/opsdeck/opsdeck/internal/common/config"
	"github.com/opsdeck/opsdeck/internal/common/errors"
	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/ratelimit"
	"github.com/opsdeck/opsdeck/internal/retry"
)

// Client is the JSON/HTTP implementation of the store contracts. All
// failures map onto the shared error taxonomy so callers can decide
// between silent retry and a user-facing notice.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	breaker *circuitbreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	logger  *zap.Logger
	retry   retry.Config
}

func NewClient(cfg config.APIConfig, limiter *ratelimit.Limiter, metrics *observability.Metrics, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.OAuth.TokenURL != "" {
		cc := clientcredentials.Config{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Scopes:       cfg.OAuth.Scopes,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	}

	breaker := circuitbreaker.New(5, 30*time.Second)
	breaker.OnStateChange(func(state circuitbreaker.State) {
		logger.Warn("store circuit breaker state changed", zap.String("state", state.String()))
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.RetryIf = errors.IsTransient

	return &Client{
		baseURL: base,
		http:    httpClient,
		token:   cfg.Token,
		breaker: breaker,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
		retry:   retryCfg,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	err := c.breaker.Call(func() error {
		return c.doOnce(ctx, method, path, query, body, out)
	})
	c.metrics.ObserveStoreRequest(operation, time.Since(start))

	if err == circuitbreaker.ErrCircuitOpen {
		return errors.Transient("store temporarily unavailable", err)
	}
	return err
}

// doRead is do with silent retries for idempotent fetches.
func (c *Client) doRead(ctx context.Context, operation, path string, query url.Values, out any) error {
	return retry.WithBackoff(ctx, c.retry, func() error {
		return c.do(ctx, operation, http.MethodGet, path, query, nil, out)
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Internal("encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return errors.Internal("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Transient("store unreachable", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Malformed("store response could not be decoded")
		}
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return errors.Unauthorized("store rejected credentials")
	case code == http.StatusForbidden:
		return errors.PermissionDenied("store denied the operation")
	case code == http.StatusNotFound:
		return errors.NotFound("store resource not found")
	case code == http.StatusTooManyRequests || code >= 500:
		return errors.Transient(fmt.Sprintf("store returned %d", code), nil)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errors.Malformed(fmt.Sprintf("store rejected request with %d", code))
	default:
		return errors.ActionFailed(fmt.Sprintf("store returned %d", code), nil)
	}
}

func limitQuery(scopeID string, limit int) url.Values {
	q := url.Values{}
	if scopeID != "" {
		q.Set("scope", scopeID)
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}
