package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"reelcast/internal/services"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 4, base: time.Second, ceiling: 10 * time.Second}
}

func (p retryPolicy) maxAttempts() uint {
	if p.attempts < 1 {
		return 1
	}
	return uint(p.attempts)
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "llm", "encode request", "", err)
	}
	attempts := c.policy.maxAttempts()

	var answer string
	err = retry.Do(
		func() error {
			text, err := c.post(ctx, body)
			if err == nil {
				answer = text
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.policy.base),
		retry.MaxDelay(c.policy.ceiling),
		retry.DelayType(c.delay),
		retry.RetryIf(shouldRetry),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return answer, nil
	}
	if attempts > 1 && shouldRetry(err) {
		return "", services.Wrap(services.ErrTransient, "llm", "complete", fmt.Sprintf("gave up after %d attempts", attempts), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", services.Wrap(services.ErrTimeout, "llm", "complete", "", err)
	}
	return "", services.Wrap(services.ErrExternalTool, "llm", "complete", "", err)
}

// post performs one round trip and returns the extracted completion text.
func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed (timeout %s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		wait, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw)), RetryAfter: wait}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", errEmptyCompletion)
	}
	text, finish := parsed.content()
	if text == "" {
		return "", fmt.Errorf("%w (finish_reason=%q, response_snippet=%s)", errEmptyCompletion, finish, snippet(string(raw)))
	}
	return text, nil
}

// delay prefers the server's Retry-After hint over exponential backoff.
func (c *Client) delay(n uint, err error, cfg *retry.Config) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter
	}
	return retry.BackOffDelay(n, err, cfg)
}

func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errEmptyCompletion) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second, secs >= 0
	}
	when, err := http.ParseTime(header)
	if err != nil {
		return 0, false
	}
	wait := time.Until(when)
	return wait, wait > 0
}
