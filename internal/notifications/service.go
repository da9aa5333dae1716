package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"librarian/internal/config"
)

const userAgent = "Librarian-Go/0.1.0"

// Service defines the notification surface exposed to the ingest pipeline
// and the daemon.
type Service interface {
	NotifyContentAdded(ctx context.Context, title, contentID string) error
	NotifyContentRejected(ctx context.Context, path, reason string) error
	NotifyTunerAlert(ctx context.Context, detail string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
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
		toggles:  cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) NotifyContentAdded(ctx context.Context, title, contentID string) error {
	if !n.toggles.Ingest {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Librarian - Content Added",
		message: fmt.Sprintf("Added to library: %s (%s)", title, contentID),
		tags:    []string{"librarian", "ingest", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyContentRejected(ctx context.Context, path, reason string) error {
	if !n.toggles.Rejected {
		return nil
	}
	data := payload{
		title:   "Librarian - Zipball Rejected",
		message: fmt.Sprintf("Rejected %s: %s", strings.TrimSpace(path), strings.TrimSpace(reason)),
		tags:    []string{"librarian", "ingest", "rejected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTunerAlert(ctx context.Context, detail string) error {
	if !n.toggles.TunerAlerts {
		return nil
	}
	data := payload{
		title:    "Librarian - Tuner Alert",
		message:  strings.TrimSpace(detail),
		tags:     []string{"librarian", "tuner", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.toggles.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Librarian - Error",
		message:  builder.String(),
		tags:     []string{"librarian", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Librarian - Test",
		message:  "Notification system test",
		tags:     []string{"librarian", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyContentAdded(context.Context, string, string) error    { return nil }
func (noopService) NotifyContentRejected(context.Context, string, string) error { return nil }
func (noopService) NotifyTunerAlert(context.Context, string) error              { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
