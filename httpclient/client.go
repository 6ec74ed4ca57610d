package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is an HTTP client wrapper with logging and retry support
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	baseURL    string
	headers    map[string]string
	maxRetries int
}

// Config holds HTTP client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Logger     zerolog.Logger
	Headers    map[string]string
	MaxRetries int
}

// New creates a new HTTP client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     cfg.Logger.With().Str("component", "http-client").Logger(),
		baseURL:    cfg.BaseURL,
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
	}
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post performs a POST request with JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, headers)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*Response, error) {
	url := c.baseURL + path

	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff between attempts
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		resp, err := c.doOnce(ctx, method, url, jsonBody, headers)
		if err == nil {
			// Retry only on server-side failures
			if resp.StatusCode >= 500 && attempt < c.maxRetries {
				lastErr = fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(resp.Body))
				continue
			}
			return resp, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, url string, jsonBody []byte, headers map[string]string) (*Response, error) {
	var reqBody io.Reader
	if jsonBody != nil {
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	startTime := time.Now()
	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Msg("HTTP request started")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("url", url).
			Dur("duration", time.Since(startTime)).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("HTTP request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

// GetJSON performs a GET request and unmarshals the response
func (c *Client) GetJSON(ctx context.Context, path string, headers map[string]string, dest interface{}) error {
	resp, err := c.Get(ctx, path, headers)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(resp.Body))
	}

	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsSuccess checks if the response indicates success
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
