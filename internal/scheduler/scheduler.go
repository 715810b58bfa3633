// Package scheduler runs named background jobs on cron schedules:
// pruning idle visitor sessions, flushing query metrics and trimming
// the question history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work. ctx is cancelled by Stop.
type Job func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name      string
	Spec      string
	Next      time.Time
	Prev      time.Time
	Runs      int64
	Failures  int64
	LastError string
}

type entry struct {
	id   cron.EntryID
	spec string
	job  Job

	mu       sync.Mutex
	runs     int64
	failures int64
	lastErr  error
}

// Scheduler wraps a cron runner. Runs of the same job never overlap.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*entry
	started bool
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	location *time.Location
	logger   *slog.Logger
}

// WithLocation sets the time zone for schedules. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	o := options{location: time.Local, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: o.logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
}

// Add registers job under name. spec uses the standard five-field cron
// syntax or descriptors such as "@every 10m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if name == "" {
		return errors.New("job name must not be empty")
	}
	if job == nil {
		return fmt.Errorf("job %q: nil function", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	e := &entry{spec: spec, job: job}
	id, err := s.cron.AddFunc(spec, func() { s.execute(name, e) })
	if err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", name, spec, err)
	}
	e.id = id
	s.jobs[name] = e
	return nil
}

// Run executes the named job immediately on the calling goroutine.
func (s *Scheduler) Run(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.execute(name, e)
}

func (s *Scheduler) execute(name string, e *entry) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", name, r)
		}

		e.mu.Lock()
		e.runs++
		e.lastErr = err
		if err != nil {
			e.failures++
		}
		e.mu.Unlock()

		if err != nil {
			s.logger.Warn("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()))
			return
		}
		s.logger.Debug("scheduled job done",
			slog.String("job", name),
			slog.Duration("took", time.Since(start)))
	}()
	return e.job(s.ctx)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		e.mu.Lock()
		info := JobInfo{
			Name:     name,
			Spec:     e.spec,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Runs:     e.runs,
			Failures: e.failures,
		}
		if e.lastErr != nil {
			info.LastError = e.lastErr.Error()
		}
		e.mu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start begins running schedules in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
