package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/config"
)

const userAgent = "Postpilot-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventPublishSucceeded Event = "publish_succeeded"
	EventPublishFailed    Event = "publish_failed"
	EventTickError        Event = "tick_error"
	EventTest             Event = "test"
)

// Payload carries event fields. Known keys: platform, title, url, error,
// schedule, context.
type Payload map[string]any

// Service defines the notification surface exposed to dispatch components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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
		enabled: map[Event]bool{
			EventPublishSucceeded: cfg.Notifications.PublishSuccess,
			EventPublishFailed:    cfg.Notifications.PublishFailures,
			EventTickError:        cfg.Notifications.TickErrors,
			EventTest:             true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	platform := payload.text("platform")
	title := payload.text("title")
	switch event {
	case EventPublishSucceeded:
		body := fmt.Sprintf("✅ Published to %s: %s", fallback(platform, "unknown platform"), fallback(title, "untitled"))
		if url := payload.text("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Postpilot - Published",
			body:  body,
			tags:  []string{"postpilot", "publish", strings.ToLower(fallback(platform, "unknown"))},
		}, true
	case EventPublishFailed:
		body := fmt.Sprintf("❌ Publish to %s failed: %s", fallback(platform, "unknown platform"), fallback(title, "untitled"))
		if errText := payload.text("error"); errText != "" {
			body += "\n" + errText
		}
		return message{
			title:    "Postpilot - Publish Failed",
			body:     body,
			tags:     []string{"postpilot", "publish", "failed"},
			priority: "high",
		}, true
	case EventTickError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" during ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(fallback(payload.text("error"), "unknown"))
		return message{
			title:    "Postpilot - Error",
			body:     b.String(),
			tags:     []string{"postpilot", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Postpilot - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"postpilot", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
