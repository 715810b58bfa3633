// Package notify posts answered questions to a Discord webhook.
//
// Delivery is asynchronous: OnAnswer queues a message and returns, one
// worker posts it with retries behind a circuit breaker, and Close drains
// whatever is still queued.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	rerrors "github.com/Aman-CERP/ruleseek/internal/errors"
	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/pkg/version"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultQueueSize = 64
	DefaultUsername  = "ruleseek"

	// Discord rejects embed descriptions longer than 4096 characters and
	// field values longer than 1024.
	maxDescription = 4096
	maxFieldValue  = 1024

	colorFound    = 0x2ecc71
	colorNotFound = 0xe67e22
)

// Message is the Discord webhook payload.
type Message struct {
	Content  string  `json:"content,omitempty"`
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Config configures a Notifier. An empty WebhookURL disables delivery.
type Config struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
	QueueSize  int
	Retry      rerrors.RetryConfig
}

// DefaultConfig returns defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		WebhookURL: url,
		Username:   DefaultUsername,
		Timeout:    DefaultTimeout,
		QueueSize:  DefaultQueueSize,
		Retry:      rerrors.DefaultRetryConfig(),
	}
}

// Stats counts delivery outcomes.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Notifier delivers webhook messages. It implements search.AnswerListener.
type Notifier struct {
	cfg     Config
	client  *http.Client
	breaker *rerrors.CircuitBreaker
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup

	sent, failed, dropped atomic.Int64
}

var _ search.AnswerListener = (*Notifier)(nil)

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *rerrors.CircuitBreaker) Option {
	return func(n *Notifier) {
		if cb != nil {
			n.breaker = cb
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a notifier and starts its worker when cfg has a URL.
func New(cfg Config, opts ...Option) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}

	n := &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: rerrors.NewCircuitBreaker("discord-webhook"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.Enabled() {
		n.queue = make(chan Message, cfg.QueueSize)
		n.wg.Add(1)
		go n.run()
	}
	return n
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.WebhookURL != ""
}

// Stats returns delivery counters.
func (n *Notifier) Stats() Stats {
	return Stats{Sent: n.sent.Load(), Failed: n.failed.Load(), Dropped: n.dropped.Load()}
}

// OnAnswer queues a notification for a. It never blocks.
func (n *Notifier) OnAnswer(_ context.Context, a *search.Answer) {
	if !n.Enabled() {
		return
	}
	n.Enqueue(AnswerMessage(a))
}

// Enqueue queues msg, dropping it when the queue is full or closed.
func (n *Notifier) Enqueue(msg Message) bool {
	if !n.Enabled() {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.dropped.Add(1)
		return false
	}
	select {
	case n.queue <- msg:
		return true
	default:
		total := n.dropped.Add(1)
		n.logger.Warn("notification queue full, message dropped", slog.Int64("dropped_total", total))
		return false
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for msg := range n.queue {
		if err := n.Send(context.Background(), msg); err != nil {
			attrs := append([]slog.Attr{slog.String("breaker", n.breaker.State().String())}, rerrors.LogAttrs(err)...)
			n.logger.LogAttrs(context.Background(), slog.LevelWarn, "discord notification failed", attrs...)
		}
	}
}

// Close stops accepting messages and waits until queued ones are sent
// or ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	if !n.Enabled() {
		return nil
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers msg synchronously through the breaker and retry policy.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}
	if msg.Username == "" {
		msg.Username = n.cfg.Username
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return rerrors.InternalError("failed to encode webhook message", err)
	}

	err = n.breaker.Execute(func() error {
		return rerrors.Retry(ctx, n.cfg.Retry, func() error {
			return n.post(ctx, body)
		})
	})
	if err != nil {
		n.failed.Add(1)
		return err
	}
	n.sent.Add(1)
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return rerrors.New(rerrors.ErrCodeWebhookRejected, "failed to create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && isTimeout(err) {
			return rerrors.New(rerrors.ErrCodeNetworkTimeout, "webhook request timed out", err)
		}
		return rerrors.NetworkError("webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return rerrors.NetworkError(msg, nil)
	}
	return rerrors.New(rerrors.ErrCodeWebhookRejected, msg, nil).
		WithSuggestion("check notify.discord_webhook_url")
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	t, ok := err.(timeout)
	return ok && t.Timeout()
}

// AnswerMessage renders a as a Discord embed.
func AnswerMessage(a *search.Answer) Message {
	e := Embed{
		Title:       "Новый вопрос",
		Description: truncate(a.Question, maxDescription),
		Color:       colorFound,
		Timestamp:   a.AskedAt.UTC().Format(time.RFC3339),
		Fields: []EmbedField{
			{Name: "Найдено правил", Value: fmt.Sprintf("%d", a.TotalFound), Inline: true},
			{Name: "Время обработки", Value: fmt.Sprintf("%d мс", a.ProcessingTime.Milliseconds()), Inline: true},
		},
	}
	if a.TotalFound == 0 {
		e.Color = colorNotFound
	}
	if points := a.TopPoints(); len(points) > 0 {
		e.Fields = append(e.Fields, EmbedField{
			Name:  "Пункты",
			Value: truncate(strings.Join(points, ", "), maxFieldValue),
		})
	}
	return Message{Embeds: []Embed{e}}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
