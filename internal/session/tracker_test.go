package session

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(opts ...Option) (*Tracker, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTracker(append([]Option{WithClock(c.now)}, opts...)...), c
}

func TestTracker_TouchRegistersOncePerSession(t *testing.T) {
	// Given: an empty tracker
	tr, c := newTestTracker()

	// When: the same session calls twice and another session calls once
	first, isNew, err := tr.Touch("session_a", "Firefox")
	require.NoError(t, err)
	assert.True(t, isNew)

	c.advance(time.Minute)
	again, isNew, err := tr.Touch("session_a", "")
	require.NoError(t, err)
	assert.False(t, isNew)

	_, isNew, err = tr.Touch("session_b", "Chrome")
	require.NoError(t, err)
	assert.True(t, isNew)

	// Then: two users exist and the repeat call refreshed the session
	assert.Equal(t, 2, tr.UserCount())
	assert.Equal(t, 2, tr.SessionCount())
	assert.Equal(t, first.UserID, again.UserID)
	assert.Equal(t, "Unknown", again.UserAgent)
	assert.Equal(t, first.Created, again.Created)
	assert.True(t, again.LastSeen.After(first.LastSeen))
}

func TestTracker_TouchRejectsInvalidID(t *testing.T) {
	tr, _ := newTestTracker()

	_, _, err := tr.Touch("bad id", "ua")

	assert.Error(t, err)
	assert.Equal(t, 0, tr.UserCount())
}

func TestTracker_Stats(t *testing.T) {
	// Given: three visitors, one of them idle past the active window
	tr, c := newTestTracker()
	_, _, _ = tr.Touch("old", "ua")
	c.advance(10 * time.Minute)
	_, _, _ = tr.Touch("mid", "ua")
	_, _, _ = tr.Touch("new", "ua")

	tests := []struct {
		name       string
		sessionID  string
		wantNumber int
		wantUser   bool
	}{
		{"first registered", "old", 1, true},
		{"third registered", "new", 3, true},
		{"unknown session", "nobody", 0, false},
		{"no session", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: asking for stats
			st := tr.Stats(tt.sessionID)

			// Then: counts cover everyone and the caller is identified
			assert.Equal(t, 3, st.TotalUsers)
			assert.Equal(t, 3, st.TotalSessions)
			assert.Equal(t, 2, st.ActiveUsers)
			assert.Equal(t, tt.wantNumber, st.UserNumber)
			assert.Equal(t, tt.wantUser, st.CurrentUserID != nil)
			assert.Equal(t, c.t, st.Timestamp)
		})
	}
}

func TestStats_JSONUsesNullForUnknownUser(t *testing.T) {
	tr, _ := newTestTracker()

	data, err := json.Marshal(tr.Stats(""))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Contains(t, body, "currentUserId")
	assert.Nil(t, body["currentUserId"])
	assert.Equal(t, float64(0), body["userNumber"])
}

func TestTracker_PruneKeepsUsers(t *testing.T) {
	// Given: one idle and one fresh session
	tr, c := newTestTracker()
	_, _, _ = tr.Touch("idle", "ua")
	c.advance(2 * time.Hour)
	_, _, _ = tr.Touch("fresh", "ua")

	// When: pruning sessions idle for more than an hour
	removed := tr.Prune(time.Hour)

	// Then: the session is gone but the user and numbering remain
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tr.SessionCount())
	assert.Equal(t, 2, tr.UserCount())
	assert.Equal(t, 2, tr.Stats("fresh").UserNumber)

	// A returning browser registers as a new user
	_, isNew, err := tr.Touch("idle", "ua")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 3, tr.Stats("idle").UserNumber)
}

func TestTracker_PruneEvictsUsersBeyondCap(t *testing.T) {
	// Given: a cap of two users and four visitors, the newest still active
	tr, c := newTestTracker(WithMaxUsers(2))
	for _, id := range []string{"a", "b", "c"} {
		_, _, _ = tr.Touch(id, "ua")
	}
	c.advance(2 * time.Hour)
	_, _, _ = tr.Touch("d", "ua")
	_, _, _ = tr.Touch("a", "ua")

	// When: pruning idle sessions
	removed := tr.Prune(time.Hour)

	// Then: the oldest users without sessions are evicted
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, tr.UserCount())
	assert.Equal(t, 1, tr.Stats("a").UserNumber)
	assert.Equal(t, 4, tr.Stats("d").UserNumber)

	// And: numbers are not reused
	_, _, _ = tr.Touch("e", "ua")
	assert.Equal(t, 5, tr.Stats("e").UserNumber)
}

func TestTracker_PruneKeepsUsersWithSessions(t *testing.T) {
	// Given: more live visitors than the cap
	tr, _ := newTestTracker(WithMaxUsers(1))
	_, _, _ = tr.Touch("a", "ua")
	_, _, _ = tr.Touch("b", "ua")

	// When: pruning
	tr.Prune(time.Hour)

	// Then: nobody with a session is evicted
	assert.Equal(t, 2, tr.UserCount())
}

func TestTracker_NoCap(t *testing.T) {
	tr, c := newTestTracker(WithMaxUsers(0))
	for _, id := range []string{"a", "b", "c"} {
		_, _, _ = tr.Touch(id, "ua")
	}
	c.advance(2 * time.Hour)

	tr.Prune(time.Hour)

	assert.Equal(t, 3, tr.UserCount())
}

func TestTracker_NumberingSurvivesEvictionAcrossSave(t *testing.T) {
	// Given: the newest user was evicted before saving
	path := filepath.Join(t.TempDir(), "users.json")
	tr, c := newTestTracker(WithMaxUsers(1), WithStorage(NewStorage(path)))
	_, _, _ = tr.Touch("a", "ua")
	c.advance(2 * time.Hour)
	_, _, _ = tr.Touch("b", "ua")
	_, _, _ = tr.Touch("a", "ua")
	c.advance(2 * time.Hour)
	_, _, _ = tr.Touch("a", "ua")
	tr.Prune(time.Hour)
	require.Equal(t, 1, tr.UserCount())
	require.NoError(t, tr.Save())

	// When: loading and registering a new visitor
	restored, _ := newTestTracker(WithStorage(NewStorage(path)))
	require.NoError(t, restored.Load())
	_, _, _ = restored.Touch("c", "ua")

	// Then: the evicted user's number is skipped
	assert.Equal(t, 3, restored.Stats("c").UserNumber)
}

func TestTracker_SaveAndLoad(t *testing.T) {
	// Given: a tracker with storage and two visitors
	path := filepath.Join(t.TempDir(), "users.json")
	tr, _ := newTestTracker(WithStorage(NewStorage(path)))
	_, _, _ = tr.Touch("a", "ua")
	b, _, _ := tr.Touch("b", "ua")

	// When: saving and loading into a fresh tracker
	require.NoError(t, tr.Save())
	restored, _ := newTestTracker(WithStorage(NewStorage(path)))
	require.NoError(t, restored.Load())

	// Then: users, numbers and sessions survive
	assert.Equal(t, 2, restored.UserCount())
	assert.Equal(t, 2, restored.SessionCount())
	st := restored.Stats("b")
	require.NotNil(t, st.CurrentUserID)
	assert.Equal(t, b.UserID, *st.CurrentUserID)
	assert.Equal(t, 2, st.UserNumber)

	// And: the next user continues the numbering
	_, _, _ = restored.Touch("c", "ua")
	assert.Equal(t, 3, restored.Stats("c").UserNumber)
}

func TestTracker_LoadMissingFile(t *testing.T) {
	tr, _ := newTestTracker(WithStorage(NewStorage(filepath.Join(t.TempDir(), "users.json"))))

	require.NoError(t, tr.Load())
	assert.Equal(t, 0, tr.UserCount())
}

func TestTracker_WithoutStorage(t *testing.T) {
	tr, _ := newTestTracker()
	_, _, _ = tr.Touch("a", "ua")

	assert.NoError(t, tr.Save())
	assert.NoError(t, tr.Load())
	assert.Equal(t, 1, tr.UserCount())
}

func TestTracker_ConcurrentTouch(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _, _ = tr.Touch("shared", "ua")
				_ = tr.Stats("shared")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tr.UserCount())
	assert.Equal(t, 1, tr.Stats("shared").UserNumber)
}
