package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"concierge/internal/config"
)

const userAgent = "Concierge/0.1.0"

// Event identifies an operator alert.
type Event string

const (
	EventTaskOverdue         Event = "task_overdue"
	EventTaskCompleted       Event = "task_completed"
	EventTicketClosed        Event = "ticket_closed"
	EventPersistenceDegraded Event = "persistence_degraded"
	EventError               Event = "error"
	EventTest                Event = "test"
)

// Payload carries event fields. Keys used per event:
//
//	task_overdue:         title, number, assignee, due
//	task_completed:       title, number, completedBy
//	ticket_closed:        channel, reason, closedBy
//	persistence_degraded: error
//	error:                context, error
type Payload map[string]any

// Service publishes operator alerts.
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
			EventTaskOverdue:         cfg.Notifications.TaskOverdue,
			EventTaskCompleted:       cfg.Notifications.TaskCompleted,
			EventTicketClosed:        cfg.Notifications.TicketClosed,
			EventPersistenceDegraded: cfg.Notifications.Errors,
			EventError:               cfg.Notifications.Errors,
			EventTest:                true,
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

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventTaskOverdue:
		return message{
			title:    "Concierge - Task Overdue",
			body:     fmt.Sprintf("Task #%s %q is overdue (due %s, assigned to %s)", p.text("number"), p.text("title"), p.text("due"), p.text("assignee")),
			tags:     []string{"concierge", "task", "overdue"},
			priority: "high",
		}, true
	case EventTaskCompleted:
		return message{
			title: "Concierge - Task Completed",
			body:  fmt.Sprintf("Task #%s %q completed by %s", p.text("number"), p.text("title"), p.text("completedBy")),
			tags:  []string{"concierge", "task", "completed"},
		}, true
	case EventTicketClosed:
		return message{
			title: "Concierge - Ticket Closed",
			body:  fmt.Sprintf("Ticket %s (%s) closed by %s", p.text("channel"), p.text("reason"), p.text("closedBy")),
			tags:  []string{"concierge", "ticket", "closed"},
		}, true
	case EventPersistenceDegraded:
		return message{
			title:    "Concierge - Save Failed",
			body:     "Records could not be saved; changes are held in memory: " + p.text("error"),
			tags:     []string{"concierge", "storage", "alert"},
			priority: "high",
		}, true
	case EventError:
		body := "Error"
		if label := p.text("context"); label != "" && label != "unknown" {
			body += " with " + label
		}
		return message{
			title:    "Concierge - Error",
			body:     body + ": " + p.text("error"),
			tags:     []string{"concierge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Concierge - Test",
			body:     "Notification system test",
			tags:     []string{"concierge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return "unknown"
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return "unknown"
	}
	return s
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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
