package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsreel/internal/config"
)

const userAgent = "newsreel/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventRunStarted    Event = "run_started"
	EventRunCompleted  Event = "run_completed"
	EventRunFailed     Event = "run_failed"
	EventReportReady   Event = "report_ready"
	EventVideoUploaded Event = "video_uploaded"
	EventTest          Event = "test"
)

// Payload carries event-specific values. Well-known keys: run_id, mode,
// completed_steps, total_steps, duration, step, error, title, url, report.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

type notifier interface {
	Service
	name() string
}

// NewService builds a service for every configured transport. Events the
// configuration disables are dropped before reaching any transport.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	settings := cfg.Notifications
	timeout := time.Duration(settings.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var notifiers []notifier
	if topic := strings.TrimSpace(settings.NtfyTopic); topic != "" {
		notifiers = append(notifiers, &ntfyNotifier{endpoint: topic, client: client})
	}
	if hook := strings.TrimSpace(settings.DiscordWebhookURL); hook != "" {
		notifiers = append(notifiers, &discordNotifier{webhookURL: hook, client: client})
	}
	if len(notifiers) == 0 {
		return noopService{}
	}
	return &multiService{
		notifiers: notifiers,
		enabled: map[Event]bool{
			EventRunCompleted:  settings.RunCompleted,
			EventRunFailed:     settings.RunFailed,
			EventReportReady:   settings.RunCompleted,
			EventVideoUploaded: true,
			EventTest:          true,
		},
	}
}

type multiService struct {
	notifiers []notifier
	enabled   map[Event]bool
}

// Publish delivers to every transport and joins their failures.
func (m *multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !m.enabled[event] {
		return nil
	}
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Publish(ctx, event, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.name(), err))
		}
	}
	return errors.Join(errs...)
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyNotifier) name() string { return "ntfy" }

func (n *ntfyNotifier) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := ntfyMessage(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func ntfyMessage(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		return message{
			title: "Newsreel - Run Complete",
			body: fmt.Sprintf("✅ %s run finished: %d/%d steps in %s",
				payload.text("mode", "full"),
				payload.integer("completed_steps"),
				payload.integer("total_steps"),
				payload.duration("duration")),
			tags: []string{"newsreel", "run", "completed"},
		}, true
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("❌ Run failed")
		if step := payload.text("step", ""); step != "" {
			b.WriteString(" at ")
			b.WriteString(step)
		}
		b.WriteString(": ")
		b.WriteString(payload.text("error", "unknown"))
		return message{
			title:    "Newsreel - Run Failed",
			body:     b.String(),
			tags:     []string{"newsreel", "error", "alert"},
			priority: "high",
		}, true
	case EventVideoUploaded:
		body := fmt.Sprintf("📺 Uploaded: %s", payload.text("title", "video"))
		if url := payload.text("url", ""); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Newsreel - Video Uploaded",
			body:  body,
			tags:  []string{"newsreel", "upload", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "Newsreel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"newsreel", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyNotifier) send(ctx context.Context, data message) error {
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
	return do(n.client, req)
}

func do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notification endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	case fmt.Stringer:
		return v.String()
	}
	return fallback
}

func (p Payload) integer(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
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
