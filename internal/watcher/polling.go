package watcher

import (
	"context"
	"os"
	"time"
)

// fileState is what polling compares between scans.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// PollingWatcher stats a fixed set of files on every tick. It is used
// where fsnotify fails, such as some network mounts and container volumes.
type PollingWatcher struct {
	interval time.Duration
	files    []string
	state    map[string]fileState
	emit     func(FileEvent)
}

// NewPollingWatcher creates a poller that reports changes to emit.
func NewPollingWatcher(interval time.Duration, files []string, emit func(FileEvent)) *PollingWatcher {
	p := &PollingWatcher{
		interval: interval,
		files:    files,
		state:    make(map[string]fileState, len(files)),
		emit:     emit,
	}
	for _, f := range files {
		p.state[f] = stat(f)
	}
	return p
}

// Run polls until ctx is done.
func (p *PollingWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Scan()
		}
	}
}

// Scan compares every file with the previous scan and emits changes.
func (p *PollingWatcher) Scan() {
	now := time.Now()
	for _, f := range p.files {
		prev, cur := p.state[f], stat(f)
		p.state[f] = cur

		switch {
		case !prev.exists && cur.exists:
			p.emit(FileEvent{Path: f, Operation: OpCreate, Timestamp: now})
		case prev.exists && !cur.exists:
			p.emit(FileEvent{Path: f, Operation: OpDelete, Timestamp: now})
		case cur.exists && (!prev.modTime.Equal(cur.modTime) || prev.size != cur.size):
			p.emit(FileEvent{Path: f, Operation: OpModify, Timestamp: now})
		}
	}
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
