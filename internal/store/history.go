package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/ruleseek/internal/search"
)

// DefaultQueueSize bounds answers waiting to be written.
const DefaultQueueSize = 128

func initHistorySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		mode TEXT NOT NULL,
		terms TEXT NOT NULL DEFAULT '',
		result_count INTEGER NOT NULL DEFAULT 0,
		top_points TEXT NOT NULL DEFAULT '',
		corpus_version INTEGER NOT NULL DEFAULT 0,
		latency_us INTEGER NOT NULL DEFAULT 0,
		asked_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_history_asked_at ON query_history(asked_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}

// Entry is one answered question.
type Entry struct {
	ID            int64
	Question      string
	Mode          string
	Terms         []string
	ResultCount   int
	TopPoints     []string
	CorpusVersion uint64
	Latency       time.Duration
	AskedAt       time.Time
}

// EntryFromAnswer converts an engine answer into a history row.
func EntryFromAnswer(a *search.Answer) Entry {
	return Entry{
		Question:      a.Question,
		Mode:          string(a.Mode),
		Terms:         a.Terms,
		ResultCount:   a.TotalFound,
		TopPoints:     a.TopPoints(),
		CorpusVersion: a.CorpusVersion,
		Latency:       a.ProcessingTime,
		AskedAt:       a.AskedAt,
	}
}

// History records answered questions. As a search.AnswerListener it
// queues writes to a background goroutine; Close drains the queue.
type History struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Entry
	wg      sync.WaitGroup
	dropped atomic.Int64
}

var _ search.AnswerListener = (*History)(nil)

// HistoryOption configures a History.
type HistoryOption func(*historyOptions)

type historyOptions struct {
	queueSize int
	logger    *slog.Logger
}

// WithQueueSize sets the write queue capacity.
func WithQueueSize(n int) HistoryOption {
	return func(o *historyOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HistoryOption {
	return func(o *historyOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewHistory starts a history writer on db, which must be migrated.
func NewHistory(db *sql.DB, opts ...HistoryOption) (*History, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	o := historyOptions{queueSize: DefaultQueueSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	h := &History{db: db, logger: o.logger, queue: make(chan Entry, o.queueSize)}
	h.wg.Add(1)
	go h.run()
	return h, nil
}

func (h *History) run() {
	defer h.wg.Done()
	for e := range h.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := h.Append(ctx, e); err != nil {
			h.logger.Warn("history append failed", slog.String("error", err.Error()))
		}
		cancel()
	}
}

// OnAnswer queues a. Answers are dropped when the queue is full.
func (h *History) OnAnswer(_ context.Context, a *search.Answer) {
	e := EntryFromAnswer(a)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.queue <- e:
	default:
		n := h.dropped.Add(1)
		h.logger.Warn("history queue full, answer dropped", slog.Int64("dropped_total", n))
	}
}

// Dropped returns the number of answers that were not queued.
func (h *History) Dropped() int64 { return h.dropped.Load() }

// Close stops accepting answers and waits for queued ones to be written.
func (h *History) Close() error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}

// Append writes e synchronously and returns its row id.
func (h *History) Append(ctx context.Context, e Entry) (int64, error) {
	if e.AskedAt.IsZero() {
		e.AskedAt = time.Now()
	}
	res, err := h.db.ExecContext(ctx, `
		INSERT INTO query_history
			(question, mode, terms, result_count, top_points, corpus_version, latency_us, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Question, e.Mode, strings.Join(e.Terms, " "), e.ResultCount,
		strings.Join(e.TopPoints, ","), int64(e.CorpusVersion),
		e.Latency.Microseconds(), e.AskedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, mode, terms, result_count, top_points, corpus_version, latency_us, asked_at
		FROM query_history
		ORDER BY asked_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			terms, points     string
			version           int64
			latencyUS, atMill int64
		)
		if err := rows.Scan(&e.ID, &e.Question, &e.Mode, &terms, &e.ResultCount, &points, &version, &latencyUS, &atMill); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Terms = splitNonEmpty(terms, " ")
		e.TopPoints = splitNonEmpty(points, ",")
		e.CorpusVersion = uint64(version)
		e.Latency = time.Duration(latencyUS) * time.Microsecond
		e.AskedAt = time.UnixMilli(atMill)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_history`).Scan(&n)
	return n, err
}

// Trim keeps the newest keep entries and returns how many were deleted.
// keep <= 0 leaves the table untouched.
func (h *History) Trim(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := h.db.ExecContext(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history ORDER BY asked_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	return res.RowsAffected()
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
