package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelcast/internal/config"
)

const userAgent = "reelcast/0.1.0"

// Event names a notification type.
type Event string

const (
	EventSeriesImported   Event = "series_imported"
	EventQueueCompleted   Event = "queue_completed"
	EventEpisodePublished Event = "episode_published"
	EventPublishFailed    Event = "publish_failed"
	EventError            Event = "error"
	EventTest             Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		publish:  cfg.Notifications.Publish,
		queue:    cfg.Notifications.Queue,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	publish  bool
	queue    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, p Payload) (message, bool) {
	switch event {
	case EventSeriesImported:
		if !n.queue {
			return message{}, false
		}
		return message{
			title: "reelcast - Series Imported",
			body:  fmt.Sprintf("📥 Imported %s (%d episodes)", p.str("title"), p.num("episodes")),
			tags:  []string{"reelcast", "series", "imported"},
		}, true
	case EventQueueCompleted:
		if !n.queue {
			return message{}, false
		}
		processed, failed := p.num("processed"), p.num("failed")
		if processed == 0 {
			return message{}, false
		}
		duration := p.duration("duration")
		if failed == 0 {
			return message{
				title: "reelcast - Downloads Complete",
				body:  fmt.Sprintf("Download queue drained: %d tasks in %s", processed, duration),
				tags:  []string{"reelcast", "queue", "completed"},
			}, true
		}
		return message{
			title: "reelcast - Downloads Complete (with errors)",
			body:  fmt.Sprintf("Download queue drained: %d succeeded, %d failed in %s", processed-failed, failed, duration),
			tags:  []string{"reelcast", "queue", "failed"},
		}, true
	case EventEpisodePublished:
		if !n.publish {
			return message{}, false
		}
		body := fmt.Sprintf("✅ Published EPS %d - %s", p.num("episode"), p.str("series"))
		if url := p.str("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "reelcast - Published",
			body:  body,
			tags:  []string{"reelcast", "publish", "completed"},
		}, true
	case EventPublishFailed:
		if !n.publish {
			return message{}, false
		}
		return message{
			title:    "reelcast - Publish Failed",
			body:     fmt.Sprintf("❌ EPS %d - %s: %s", p.num("episode"), p.str("series"), p.str("error")),
			tags:     []string{"reelcast", "publish", "failed"},
			priority: "high",
		}, true
	case EventError:
		if !n.errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := p.str("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := p.str("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "reelcast - Error",
			body:     b.String(),
			tags:     []string{"reelcast", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "reelcast - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelcast", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) str(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if err, ok := v.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (p Payload) num(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
