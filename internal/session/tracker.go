package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultActiveWindow is how recently a session must be seen to count
// as active.
const DefaultActiveWindow = 5 * time.Minute

// DefaultMaxUsers bounds the registry. Prune evicts the oldest users
// without sessions beyond it.
const DefaultMaxUsers = 10000

// Tracker is the in-memory visitor registry. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	users    []User
	byID     map[string]int
	sessions map[string]*Session
	dirty    bool

	// next is the number given to the next new user. Numbers are never
	// reused, even after eviction.
	next int

	window   time.Duration
	maxUsers int
	storage  *Storage
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithActiveWindow sets the active-user window.
func WithActiveWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithMaxUsers caps the users kept by Prune. Zero or less disables the cap.
func WithMaxUsers(n int) Option {
	return func(t *Tracker) { t.maxUsers = n }
}

// WithStorage enables Load and Save.
func WithStorage(s *Storage) Option {
	return func(t *Tracker) { t.storage = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		byID:     make(map[string]int),
		sessions: make(map[string]*Session),
		next:     1,
		window:   DefaultActiveWindow,
		maxUsers: DefaultMaxUsers,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch registers sessionID on first sight and refreshes it afterwards.
// It reports whether a new user was created. Invalid ids are rejected
// and leave the registry untouched.
func (t *Tracker) Touch(sessionID, userAgent string) (Session, bool, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return Session{}, false, err
	}
	if userAgent == "" {
		userAgent = "Unknown"
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[sessionID]; ok {
		s.LastSeen = now
		s.UserAgent = userAgent
		t.dirty = true
		return *s, false, nil
	}

	user := User{ID: uuid.NewString(), Number: t.next, FirstSeen: now}
	t.next++
	t.byID[user.ID] = len(t.users)
	t.users = append(t.users, user)

	s := &Session{ID: sessionID, UserID: user.ID, UserAgent: userAgent, Created: now, LastSeen: now}
	t.sessions[sessionID] = s
	t.dirty = true

	t.logger.Info("new visitor",
		slog.Int("number", user.Number),
		slog.String("user_id", user.ID[:8]))
	return *s, true, nil
}

// Stats summarizes visitors as seen by sessionID, which may be empty.
func (t *Tracker) Stats(sessionID string) Stats {
	now := t.now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Stats{
		TotalUsers:    len(t.users),
		TotalSessions: len(t.sessions),
		Timestamp:     now.UTC(),
	}
	for _, s := range t.sessions {
		if s.IsActive(now, t.window) {
			st.ActiveUsers++
		}
	}
	if s, ok := t.sessions[sessionID]; ok {
		id := s.UserID
		st.CurrentUserID = &id
		if i, ok := t.byID[id]; ok {
			st.UserNumber = t.users[i].Number
		}
	}
	return st
}

// UserCount returns the number of registered users.
func (t *Tracker) UserCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

// SessionCount returns the number of known sessions.
func (t *Tracker) SessionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many
// were removed. Users are kept so registration numbers stay stable, until
// the registry outgrows the user cap: then the oldest users with no
// remaining session are evicted.
func (t *Tracker) Prune(maxIdle time.Duration) int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, s := range t.sessions {
		if now.Sub(s.LastSeen) > maxIdle {
			delete(t.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		t.dirty = true
		t.logger.Debug("pruned idle sessions", slog.Int("removed", removed), slog.Int("remaining", len(t.sessions)))
	}
	if evicted := t.evictUsers(); evicted > 0 {
		t.dirty = true
		t.logger.Info("evicted idle users", slog.Int("evicted", evicted), slog.Int("remaining", len(t.users)))
	}
	return removed
}

// evictUsers trims users beyond maxUsers, oldest first, skipping users
// that still have a session. Callers hold t.mu.
func (t *Tracker) evictUsers() int {
	excess := len(t.users) - t.maxUsers
	if t.maxUsers <= 0 || excess <= 0 {
		return 0
	}

	live := make(map[string]bool, len(t.sessions))
	for _, s := range t.sessions {
		live[s.UserID] = true
	}

	kept := t.users[:0]
	for _, u := range t.users {
		if excess > 0 && !live[u.ID] {
			excess--
			continue
		}
		kept = append(kept, u)
	}
	evicted := len(t.users) - len(kept)
	clear(t.users[len(kept):])
	t.users = kept

	t.byID = make(map[string]int, len(kept))
	for i, u := range kept {
		t.byID[u.ID] = i
	}
	return evicted
}

// Load replaces the registry with the stored state. Without storage it
// does nothing.
func (t *Tracker) Load() error {
	if t.storage == nil {
		return nil
	}
	st, err := t.storage.Load()
	if err != nil {
		return err
	}

	users := append([]User(nil), st.Users...)
	sort.SliceStable(users, func(i, j int) bool { return users[i].Number < users[j].Number })

	t.mu.Lock()
	defer t.mu.Unlock()

	t.users = users
	t.byID = make(map[string]int, len(users))
	t.next = max(st.NextNumber, 1)
	for i, u := range users {
		t.byID[u.ID] = i
		t.next = max(t.next, u.Number+1)
	}
	t.sessions = make(map[string]*Session, len(st.Sessions))
	for _, s := range st.Sessions {
		if s == nil {
			continue
		}
		if _, ok := t.byID[s.UserID]; !ok {
			continue
		}
		t.sessions[s.ID] = s
	}
	t.dirty = false

	t.logger.Info("visitors loaded",
		slog.String("path", t.storage.Path()),
		slog.Int("users", len(t.users)),
		slog.Int("sessions", len(t.sessions)))
	return nil
}

// Save persists the registry when it changed since the last Load or Save.
func (t *Tracker) Save() error {
	if t.storage == nil {
		return nil
	}

	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return nil
	}
	st := &State{Users: append([]User(nil), t.users...), NextNumber: t.next}
	for _, s := range t.sessions {
		cp := *s
		st.Sessions = append(st.Sessions, &cp)
	}
	t.dirty = false
	t.mu.Unlock()

	sort.Slice(st.Sessions, func(i, j int) bool { return st.Sessions[i].Created.Before(st.Sessions[j].Created) })

	if err := t.storage.Save(st); err != nil {
		t.mu.Lock()
		t.dirty = true
		t.mu.Unlock()
		return err
	}
	return nil
}
