package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/observability"
)

// maxErrorBody bounds how much of an error response ends up in a message.
const maxErrorBody = 512

// Client sends JSON requests with retry.
type Client struct {
	HTTP     *http.Client
	Attempts int
	Delay    time.Duration
	Header   http.Header
}

// NewClient returns a client with the given per-request timeout and the
// default retry policy (3 attempts, 1 second initial delay).
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Attempts: 3,
		Delay:    time.Second,
	}
}

// PostJSON posts in as JSON to url and decodes the response into out.
//
// Network failures, 5xx and 429 responses are retried; other 4xx responses
// fail immediately with [apperrors.ErrCodeInvalidInput].
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return Retry(ctx, c.Attempts, c.Delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, vs := range c.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return c.do(req, out)
	})
}

func (c *Client) do(req *http.Request, out any) error {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(req.Context(), req.Method, host, path)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		hooks.OnError(req.Context(), req.Method, host, path, err)
		if req.Context().Err() != nil {
			return apperrors.Wrap(apperrors.ErrCodeTimeout, err, "%s %s", req.Method, req.URL)
		}
		return Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork, err, "%s %s", req.Method, req.URL))
	}
	defer resp.Body.Close()
	hooks.OnResponse(req.Context(), req.Method, host, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return Retryable(&apperrors.RateLimitedError{RetryAfter: retryAfter, Message: snippet(resp.Body)})
	case resp.StatusCode >= 500:
		return Retryable(apperrors.New(apperrors.ErrCodeNetwork, "%s %s: %s: %s",
			req.Method, req.URL, resp.Status, snippet(resp.Body)))
	case resp.StatusCode >= 400:
		return apperrors.New(apperrors.ErrCodeInvalidInput, "%s %s: %s: %s",
			req.Method, req.URL, resp.Status, snippet(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode response from %s", req.URL)
	}
	return nil
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(bytes.TrimSpace(b))
}
