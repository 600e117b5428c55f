// Package mailapi is the HTTP client for the category-classifying mail
// backend. It is the only place remote records enter the program, and it
// normalizes them into model.MessageSummary values.
package mailapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nhle/mailterm/internal/model"
)

// Client is a thin HTTP client for the mail backend. It handles JSON
// marshaling, client-side rate limiting, and automatic retry with
// exponential backoff on HTTP 429. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        logrus.FieldLogger
}

// NewClient creates a client from the api section of the configuration.
func NewClient(cfg model.APIConfig, log logrus.FieldLogger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// do sends a JSON request and unmarshals a JSON response into result.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) error {
	respBody, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			method, path, err,
		)
	}
	return nil
}

// send is the core HTTP method. It builds the request, waits for the rate
// limiter, retries on 429, and maps error statuses to typed errors. It
// returns the raw 2xx response body.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	requestID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warn("request failed")
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"attempt": attempt,
			"elapsed": time.Since(start).String(),
		}).Debug("request completed")

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			msg := extractDetail(respBody)
			if msg == "" {
				msg = "the backend rejected the session"
			}
			return nil, &AuthError{Message: msg}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Method:     method,
				Path:       path,
				Detail:     extractDetail(respBody),
			}
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// extractDetail pulls the server's explanation out of an error body. A
// string detail is returned verbatim, any other JSON detail compactly, and a
// non-JSON body trimmed.
func extractDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var er errorResponse
	if err := json.Unmarshal(trimmed, &er); err == nil && len(er.Detail) > 0 && string(er.Detail) != "null" {
		var s string
		if json.Unmarshal(er.Detail, &s) == nil {
			return s
		}
		var buf bytes.Buffer
		if json.Compact(&buf, er.Detail) == nil {
			return buf.String()
		}
		return string(er.Detail)
	}

	return decodeText(trimmed)
}

// decodeText returns a JSON string body unquoted and anything else trimmed.
func decodeText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(trimmed)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
