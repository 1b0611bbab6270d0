package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RequestConfig holds configuration for outbound HTTP requests.
type RequestConfig struct {
	Logger         *zap.Logger
	Headers        map[string][]string
	Method         string
	URL            string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RetryEnabled   bool
}

// DefaultRequestConfig returns a RequestConfig with sensible defaults.
func DefaultRequestConfig(method, url string) RequestConfig {
	return RequestConfig{
		Method:         method,
		URL:            url,
		Timeout:        10 * time.Second,
		RetryEnabled:   true,
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// Response represents an HTTP response with its body fully read.
type Response struct {
	Headers    http.Header
	Body       []byte
	StatusCode int
}

// Request performs an HTTP request with exponential-backoff retries.
// The payload may be a []byte, a string, or any value that marshals to JSON.
func Request(ctx context.Context, config RequestConfig, payload interface{}) (*Response, error) {
	var body []byte
	if payload != nil {
		var err error
		switch v := payload.(type) {
		case []byte:
			body = v
		case string:
			body = []byte(v)
		default:
			body, err = json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal payload: %w", err)
			}
		}
	}

	client := &http.Client{Timeout: config.Timeout}

	var response *Response

	operation := func() error {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, config.Method, config.URL, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		for key, values := range config.Headers {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		if reqBody != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		response = &Response{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Headers:    resp.Header,
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Client errors won't succeed on retry.
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, respBody))
		}
		return nil
	}

	var err error
	if config.RetryEnabled {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = config.InitialBackoff
		b.MaxInterval = config.MaxBackoff
		b.MaxElapsedTime = time.Duration(config.MaxRetries) * config.MaxBackoff

		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	} else {
		err = operation()
	}

	if err != nil {
		if config.Logger != nil {
			config.Logger.Warn("outbound request failed",
				zap.String("method", config.Method),
				zap.String("url", config.URL),
				zap.Error(err))
		}
		return response, err
	}

	return response, nil
}
