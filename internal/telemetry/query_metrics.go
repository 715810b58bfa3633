// Package telemetry aggregates question statistics for operators: how
// often each search mode runs, which terms people ask about, which
// questions found nothing, and how long searches take. Data stays local.
package telemetry

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryMode mirrors the search pipeline branch that answered a question.
type QueryMode string

const (
	ModeBrowse  QueryMode = "browse"
	ModeRanked  QueryMode = "ranked"
	ModeNoTerms QueryMode = "no_terms"
)

// LatencyBucket is a latency histogram bucket. A linear scan over a few
// hundred rules takes well under a millisecond, so buckets are fine
// grained at the low end.
type LatencyBucket string

const (
	BucketSub1ms  LatencyBucket = "lt1ms"
	Bucket5ms     LatencyBucket = "lt5ms"
	Bucket20ms    LatencyBucket = "lt20ms"
	Bucket100ms   LatencyBucket = "lt100ms"
	BucketOver100 LatencyBucket = "ge100ms"
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketSub1ms
	case d < 5*time.Millisecond:
		return Bucket5ms
	case d < 20*time.Millisecond:
		return Bucket20ms
	case d < 100*time.Millisecond:
		return Bucket100ms
	default:
		return BucketOver100
	}
}

// QueryEvent is one answered question.
type QueryEvent struct {
	Query       string
	Mode        QueryMode
	Terms       []string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports a non-blank question that found nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.Mode != ModeBrowse && e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer; capacity defaults to 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
		return out
	}
	n := copy(out, b.items[b.head:])
	copy(out[n:], b.items[:b.head])
	return out
}

func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// TermCount is a term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ZeroResultQuery is a question that found nothing.
type ZeroResultQuery struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy of the in-memory aggregates.
type Snapshot struct {
	ModeCounts          map[QueryMode]int64     `json:"mode_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of questions that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// MetricsStore persists aggregates. Counts passed to the Save and Upsert
// methods are increments since the previous flush.
type MetricsStore interface {
	SaveModeCounts(date string, counts map[QueryMode]int64) error
	GetModeCounts(from, to string) (map[QueryMode]int64, error)
	UpsertTermCounts(terms map[string]int64) error
	GetTopTerms(limit int) ([]TermCount, error)
	AddZeroResultQueries(queries []ZeroResultQuery) error
	GetZeroResultQueries(limit int) ([]string, error)
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)
}

// Config configures QueryMetrics.
type Config struct {
	TopTermsCapacity    int
	ZeroResultsCapacity int
	// FlushInterval starts a background flush loop when positive and a
	// store is configured. The service schedules flushes itself and
	// leaves this at zero.
	FlushInterval time.Duration
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
	}
}

// pending holds increments not yet flushed.
type pending struct {
	modes     map[QueryMode]int64
	terms     map[string]int64
	latencies map[LatencyBucket]int64
	zero      []ZeroResultQuery
}

func newPending() pending {
	return pending{
		modes:     make(map[QueryMode]int64),
		terms:     make(map[string]int64),
		latencies: make(map[LatencyBucket]int64),
	}
}

// QueryMetrics collects question telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	modes           map[QueryMode]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	pending pending
	store   MetricsStore
	flushMu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewQueryMetrics creates a collector with DefaultConfig. A nil store
// keeps metrics in memory only.
func NewQueryMetrics(store MetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector with cfg.
func NewQueryMetricsWithConfig(store MetricsStore, cfg Config) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	m := &QueryMetrics{
		modes:       make(map[QueryMode]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
		pending:     newPending(),
		store:       store,
		stopCh:      make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.wg.Add(1)
		go m.flushLoop(cfg.FlushInterval)
	}
	return m
}

func (m *QueryMetrics) flushLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record adds one answered question.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Without a store nothing drains pending, so it is not kept.
	persist := m.store != nil

	m.totalQueries++
	m.modes[event.Mode]++
	if persist {
		m.pending.modes[event.Mode]++
	}

	for _, term := range event.Terms {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		if persist {
			m.pending.terms[term]++
		}
	}

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
		if persist {
			m.pending.zero = append(m.pending.zero, ZeroResultQuery{Query: event.Query, Timestamp: event.Timestamp})
		}
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	if persist {
		m.pending.latencies[bucket]++
	}
}

// Snapshot returns the current aggregates. Top terms are sorted by count,
// ties by term.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[QueryMode]int64, len(m.modes))
	for k, v := range m.modes {
		modes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &Snapshot{
		ModeCounts:          modes,
		TopTerms:            terms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		Since:               m.startTime,
	}
}

// Flush writes increments recorded since the last successful flush. On
// failure the increments are kept for the next attempt.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	batch := m.pending
	m.pending = newPending()
	m.mu.Unlock()

	if err := m.write(&batch); err != nil {
		m.mu.Lock()
		m.pending.merge(batch)
		m.mu.Unlock()
		return err
	}
	return nil
}

// write stores b, clearing each part once it is stored so that a later
// failure only re-queues what was not written.
func (m *QueryMetrics) write(b *pending) error {
	today := time.Now().Format("2006-01-02")
	if len(b.modes) > 0 {
		if err := m.store.SaveModeCounts(today, b.modes); err != nil {
			return err
		}
		b.modes = map[QueryMode]int64{}
	}
	if len(b.terms) > 0 {
		if err := m.store.UpsertTermCounts(b.terms); err != nil {
			return err
		}
		b.terms = map[string]int64{}
	}
	if len(b.zero) > 0 {
		if err := m.store.AddZeroResultQueries(b.zero); err != nil {
			return err
		}
		b.zero = nil
	}
	if len(b.latencies) > 0 {
		if err := m.store.SaveLatencyCounts(today, b.latencies); err != nil {
			return err
		}
		b.latencies = map[LatencyBucket]int64{}
	}
	return nil
}

func (p *pending) merge(o pending) {
	for k, v := range o.modes {
		p.modes[k] += v
	}
	for k, v := range o.terms {
		p.terms[k] += v
	}
	for k, v := range o.latencies {
		p.latencies[k] += v
	}
	p.zero = append(o.zero, p.zero...)
}

// Close stops the flush loop and flushes once more.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	return m.Flush()
}
