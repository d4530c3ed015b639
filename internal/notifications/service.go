package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "Reelsmith-Go/0.1.0"

// Event identifies a pipeline milestone worth a push notification.
type Event string

const (
	EventStageFailed      Event = "stage_failed"
	EventPoolExhausted    Event = "pool_exhausted"
	EventProjectCompleted Event = "project_completed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

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

// Service is the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
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
			EventStageFailed:      cfg.Notifications.StageFailures,
			EventPoolExhausted:    cfg.Notifications.PoolExhausted,
			EventProjectCompleted: cfg.Notifications.ProjectCompleted,
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
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventStageFailed:
		var builder strings.Builder
		builder.WriteString("❌ Stage ")
		builder.WriteString(fallback(payload.text("stage"), "unknown"))
		builder.WriteString(" failed")
		if project := payload.text("project"); project != "" {
			builder.WriteString(" for ")
			builder.WriteString(project)
		}
		builder.WriteString(": ")
		builder.WriteString(fallback(payload.text("error"), "unknown"))
		if hint := payload.text("hint"); hint != "" {
			builder.WriteString("\nNext: ")
			builder.WriteString(hint)
		}
		return message{
			title:    "Reelsmith - Stage Failed",
			body:     builder.String(),
			tags:     []string{"reelsmith", "stage", "failed"},
			priority: "high",
		}, true
	case EventPoolExhausted:
		body := "🔑 No active credential keys are available"
		if stage := payload.text("stage"); stage != "" {
			body = fmt.Sprintf("%s (stage %s)", body, stage)
		}
		return message{
			title:    "Reelsmith - Credential Pool Exhausted",
			body:     body + "\nAdd or re-activate a key.",
			tags:     []string{"reelsmith", "credentials", "alert"},
			priority: "urgent",
		}, true
	case EventProjectCompleted:
		body := fmt.Sprintf("✅ Project complete: %s", fallback(payload.text("project"), "untitled"))
		if scenes := payload.text("scenes"); scenes != "" {
			body = fmt.Sprintf("%s (%s scenes)", body, scenes)
		}
		return message{
			title: "Reelsmith - Complete",
			body:  body,
			tags:  []string{"reelsmith", "project", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "Reelsmith - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelsmith", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
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
