package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bindery/internal/config"
)

const userAgent = "Bindery/0.1.0"

// Service defines the notification surface exposed to the merge
// pipeline and CLI.
type Service interface {
	NotifyMergeStarted(ctx context.Context, bookTitle string, inputCount int) error
	NotifyMergeCompleted(ctx context.Context, bookTitle, summary string) error
	NotifyMergeFailed(ctx context.Context, bookTitle string, err error) error
	NotifyMergeCancelled(ctx context.Context, bookTitle string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
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

func (n *ntfyService) NotifyMergeStarted(ctx context.Context, bookTitle string, inputCount int) error {
	bookTitle = displayTitle(bookTitle)
	data := payload{
		title:   "Bindery - Merge Started",
		message: fmt.Sprintf("Started merging %s (%d files)", bookTitle, inputCount),
		tags:    []string{"bindery", "merge", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMergeCompleted(ctx context.Context, bookTitle, summary string) error {
	bookTitle = displayTitle(bookTitle)
	message := fmt.Sprintf("📚 Ready to listen: %s", bookTitle)
	if summary = strings.TrimSpace(summary); summary != "" {
		message = fmt.Sprintf("%s\n%s", message, summary)
	}
	data := payload{
		title:    "Bindery - Merge Complete",
		message:  message,
		tags:     []string{"bindery", "merge", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMergeFailed(ctx context.Context, bookTitle string, err error) error {
	bookTitle = displayTitle(bookTitle)
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Bindery - Merge Failed",
		message:  fmt.Sprintf("❌ Merge failed: %s\n%s", bookTitle, reason),
		tags:     []string{"bindery", "merge", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMergeCancelled(ctx context.Context, bookTitle string) error {
	bookTitle = displayTitle(bookTitle)
	data := payload{
		title:   "Bindery - Merge Cancelled",
		message: fmt.Sprintf("Merge cancelled: %s", bookTitle),
		tags:    []string{"bindery", "merge", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Bindery - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"bindery", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func displayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "untitled book"
	}
	return title
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

func (noopService) NotifyMergeStarted(context.Context, string, int) error    { return nil }
func (noopService) NotifyMergeCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyMergeFailed(context.Context, string, error) error   { return nil }
func (noopService) NotifyMergeCancelled(context.Context, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
