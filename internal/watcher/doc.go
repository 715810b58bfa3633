// Package watcher reloads the rule corpus when its source files change.
//
// A FileWatcher watches a fixed set of files, such as rules.json and
// demo_rules.txt. It subscribes to their parent directories with fsnotify
// and falls back to polling when fsnotify is unavailable or a directory
// does not exist yet. Bursts of events from editors and deploy scripts
// are debounced into one batch per window, and batches are handed to the
// handler one at a time.
//
// Usage:
//
//	w, err := watcher.New(loader.Paths(), func(ctx context.Context, events []watcher.FileEvent) {
//	    _, _ = loader.Reload(ctx, store)
//	}, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	return w.Run(ctx)
package watcher
