package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"gametime/internal/config"
	"gametime/internal/dataset"
)

const userAgent = "gametime/0.1.0"

// Service defines the notifications sent by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary dataset.Summary) error
	NotifyRunFailed(ctx context.Context, folder string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary dataset.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Acquired %d of %d subjects at %s", summary.Subjects-summary.Missing, summary.Subjects,
		summary.AcquiredAt.UTC().Format("2006-01-02 15:04:05"))
	if summary.Missing > 0 {
		fmt.Fprintf(&b, "\nMissing: %d (backfilled %d)", summary.Missing, summary.Backfilled)
	}
	fmt.Fprintf(&b, "\nDataset: %s (%d rows)", filepath.Base(summary.DatasetPath), summary.Rows)

	data := payload{
		title:   "Gametime - Update Complete",
		message: b.String(),
		tags:    []string{"gametime", "update", "completed"},
	}
	if summary.Subjects > 0 && summary.Missing == summary.Subjects {
		data.title = "Gametime - Update Complete (no data)"
		data.tags = []string{"gametime", "update", "warning"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, folder string, err error) error {
	message := "Update failed"
	if folder = strings.TrimSpace(folder); folder != "" {
		message += " for " + folder
	}
	message += ": "
	if err != nil {
		message += strings.TrimSpace(err.Error())
	} else {
		message += "unknown"
	}
	return n.send(ctx, payload{
		title:    "Gametime - Error",
		message:  message,
		tags:     []string{"gametime", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Gametime - Test",
		message:  "Notification system test",
		tags:     []string{"gametime", "test"},
		priority: "low",
	})
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

func (noopService) NotifyRunCompleted(context.Context, dataset.Summary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error      { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }

// Sink publishes run summaries to a Service.
type Sink struct {
	service Service
}

var _ dataset.Sink = (*Sink)(nil)

// NewSink wraps service as a dataset run sink.
func NewSink(service Service) *Sink { return &Sink{service: service} }

// Name implements dataset.Sink.
func (s *Sink) Name() string { return "notifications" }

// Publish implements dataset.Sink.
func (s *Sink) Publish(ctx context.Context, summary dataset.Summary) error {
	return s.service.NotifyRunCompleted(ctx, summary)
}
