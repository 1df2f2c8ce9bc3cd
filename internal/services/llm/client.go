package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reelcast/internal/services"
)

// DefaultEndpoint is the OpenRouter chat completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// Config holds the OpenAI-compatible endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

func (c Config) normalized() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Model = strings.TrimSpace(c.Model)
	c.Referer = strings.TrimSpace(c.Referer)
	c.Title = strings.TrimSpace(c.Title)
	if c.BaseURL == "" {
		c.BaseURL = DefaultEndpoint
	}
	return c
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Client issues JSON-mode chat completions.
type Client struct {
	cfg    Config
	http   *http.Client
	policy retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryMaxAttempts bounds the number of requests per completion.
func WithRetryMaxAttempts(n int) Option {
	return func(c *Client) { c.policy.attempts = n }
}

func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.policy.base = base
		c.policy.ceiling = ceiling
	}
}

// NewClient builds a client; an empty BaseURL targets OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.normalized()
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.timeout()},
		policy: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// CompleteJSON sends a system and user prompt in JSON response mode and
// returns the raw content of the first non-empty choice.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	system, user = strings.TrimSpace(system), strings.TrimSpace(user)
	switch {
	case c.cfg.APIKey == "":
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	case system == "":
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "system prompt required", nil)
	case user == "":
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "user prompt required", nil)
	}
	return c.complete(ctx, newJSONRequest(c.cfg.Model, system, user))
}

// HealthCheck asks the model for a fixed acknowledgement object.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "Reply with a JSON object only.", `Reply with {"ok":true}`)
	if err != nil {
		return err
	}
	var ack struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &ack); err != nil {
		return services.Wrap(services.ErrProtocol, "llm", "health", "unreadable acknowledgement", err)
	}
	if !ack.OK {
		return services.Wrap(services.ErrProtocol, "llm", "health", "model did not acknowledge", nil)
	}
	return nil
}

// StatusError is a non-2xx answer from the completion endpoint.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm endpoint returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether the endpoint may answer differently later.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// errEmptyCompletion marks a 2xx answer that carried no usable content.
var errEmptyCompletion = errors.New("empty completion")
