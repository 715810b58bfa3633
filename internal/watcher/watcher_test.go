package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector records handler batches.
type collector struct {
	mu      sync.Mutex
	batches [][]FileEvent
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 16)}
}

func (c *collector) handle(_ context.Context, events []FileEvent) {
	c.mu.Lock()
	c.batches = append(c.batches, events)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collector) wait(t *testing.T) []FileEvent {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]string{"rules.json"}, nil, DefaultOptions())
	assert.Error(t, err)

	_, err = New([]string{"", ""}, func(context.Context, []FileEvent) {}, DefaultOptions())
	assert.Error(t, err)

	w, err := New([]string{"rules.json", "./rules.json", ""}, func(context.Context, []FileEvent) {}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, w.Files(), 1)
	assert.True(t, filepath.IsAbs(w.Files()[0]))
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()

	assert.Equal(t, 500*time.Millisecond, o.DebounceWindow)
	assert.Equal(t, 2*time.Second, o.PollInterval)
	assert.NotNil(t, o.Logger)
}

func TestPollingWatcher_Scan(t *testing.T) {
	// Given: one existing and one missing file
	dir := t.TempDir()
	existing := filepath.Join(dir, "rules.json")
	missing := filepath.Join(dir, "demo_rules.txt")
	require.NoError(t, os.WriteFile(existing, []byte("[]"), 0o644))

	var events []FileEvent
	p := NewPollingWatcher(time.Hour, []string{existing, missing}, func(e FileEvent) { events = append(events, e) })

	// When: the missing file appears and the existing one grows
	require.NoError(t, os.WriteFile(missing, []byte("1. a | b"), 0o644))
	require.NoError(t, os.WriteFile(existing, []byte("[ ]"), 0o644))
	p.Scan()

	// Then: a modify and a create are reported
	require.Len(t, events, 2)
	assert.Equal(t, FileEvent{Path: existing, Operation: OpModify}, FileEvent{Path: events[0].Path, Operation: events[0].Operation})
	assert.Equal(t, FileEvent{Path: missing, Operation: OpCreate}, FileEvent{Path: events[1].Path, Operation: events[1].Operation})

	// And: removal is a delete, and an unchanged scan is quiet
	events = nil
	require.NoError(t, os.Remove(existing))
	p.Scan()
	p.Scan()
	require.Len(t, events, 1)
	assert.Equal(t, OpDelete, events[0].Operation)
}

func TestFileWatcher_Modes(t *testing.T) {
	tests := []struct {
		name     string
		polling  bool
		wantMode string
	}{
		{"fsnotify", false, "fsnotify"},
		{"polling", true, "polling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a watcher on a rules file
			dir := t.TempDir()
			rulesPath := filepath.Join(dir, "rules.json")
			require.NoError(t, os.WriteFile(rulesPath, []byte("[]"), 0o644))

			c := newCollector()
			w, err := New([]string{rulesPath}, c.handle, Options{
				DebounceWindow: 50 * time.Millisecond,
				PollInterval:   20 * time.Millisecond,
				ForcePolling:   tt.polling,
			})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			time.Sleep(100 * time.Millisecond)

			// When: the file is rewritten with different content
			require.NoError(t, os.WriteFile(rulesPath, []byte(`[{"point":"1"}]`), 0o644))

			// Then: the handler sees the file in one batch
			batch := c.wait(t)
			require.NotEmpty(t, batch)
			assert.Equal(t, rulesPath, batch[0].Path)
			assert.Equal(t, tt.wantMode, w.Mode())
			assert.GreaterOrEqual(t, w.Batches(), uint64(1))

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("Run did not return after cancel")
			}
		})
	}
}

func TestFileWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte("[]"), 0o644))

	c := newCollector()
	w, err := New([]string{rulesPath}, c.handle, Options{DebounceWindow: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-c.signal:
		t.Fatal("handler called for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileWatcher_MissingDirectoryFallsBackToPolling(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "later", "rules.json")

	c := newCollector()
	w, err := New([]string{rulesPath}, c.handle, Options{DebounceWindow: 20 * time.Millisecond, PollInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Dir(rulesPath), 0o755))
	require.NoError(t, os.WriteFile(rulesPath, []byte("[]"), 0o644))

	batch := c.wait(t)
	assert.Equal(t, "polling", w.Mode())
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}
