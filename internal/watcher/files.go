package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a fixed set of files and hands debounced batches
// to a Handler.
type FileWatcher struct {
	files   []string
	watched map[string]bool
	handler Handler
	opts    Options

	polling atomic.Bool
	batches atomic.Uint64
}

// New creates a watcher for files. Paths are made absolute; duplicates
// and empty entries are dropped.
func New(files []string, handler Handler, opts Options) (*FileWatcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: nil handler")
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{watched: make(map[string]bool), handler: handler, opts: opts}
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		if !w.watched[abs] {
			w.watched[abs] = true
			w.files = append(w.files, abs)
		}
	}
	if len(w.files) == 0 {
		return nil, errors.New("watcher: no files to watch")
	}
	return w, nil
}

// Files returns the absolute paths being watched.
func (w *FileWatcher) Files() []string {
	return append([]string(nil), w.files...)
}

// Mode reports "fsnotify" or "polling" once Run has started.
func (w *FileWatcher) Mode() string {
	if w.polling.Load() {
		return "polling"
	}
	return "fsnotify"
}

// Batches returns the number of batches delivered to the handler.
func (w *FileWatcher) Batches() uint64 {
	return w.batches.Load()
}

// Run watches until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) error {
	debouncer := NewDebouncer(w.opts.DebounceWindow, w.opts.Logger)
	defer debouncer.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-debouncer.Output():
				if !ok {
					return
				}
				w.batches.Add(1)
				w.handler(ctx, batch)
			}
		}
	}()

	var err error
	if fsw := w.subscribe(); fsw != nil {
		err = w.runFsnotify(ctx, fsw, debouncer)
	} else {
		w.polling.Store(true)
		w.opts.Logger.Info("watching rule files by polling",
			slog.Any("files", w.files),
			slog.Duration("interval", w.opts.PollInterval))
		err = NewPollingWatcher(w.opts.PollInterval, w.files, debouncer.Add).Run(ctx)
	}

	<-done
	return err
}

// subscribe returns an fsnotify watcher on every parent directory, or
// nil when polling must be used instead.
func (w *FileWatcher) subscribe() *fsnotify.Watcher {
	if w.opts.ForcePolling {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.opts.Logger.Warn("fsnotify unavailable, falling back to polling", slog.String("error", err.Error()))
		return nil
	}

	dirs := make(map[string]bool)
	for _, f := range w.files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			w.opts.Logger.Warn("cannot watch directory, falling back to polling",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			_ = fsw.Close()
			return nil
		}
	}
	w.opts.Logger.Info("watching rule files", slog.Any("files", w.files))
	return fsw
}

func (w *FileWatcher) runFsnotify(ctx context.Context, fsw *fsnotify.Watcher, d *Debouncer) error {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if e, ok := w.translate(ev); ok {
				d.Add(e)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// translate maps an fsnotify event on a watched file to a FileEvent.
func (w *FileWatcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	path := filepath.Clean(ev.Name)
	if !w.watched[path] {
		return FileEvent{}, false
	}

	e := FileEvent{Path: path, Timestamp: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		e.Operation = OpCreate
	case ev.Has(fsnotify.Write):
		e.Operation = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		e.Operation = OpDelete
	default:
		return FileEvent{}, false
	}
	return e, true
}
