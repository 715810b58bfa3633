package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	rerrors "github.com/Aman-CERP/ruleseek/internal/errors"
	"github.com/Aman-CERP/ruleseek/internal/fslock"
)

// Loader builds a corpus from the first source that yields rules:
// the rules JSON file, the demo text file, the embedded demo text, and
// finally DefaultRules.
type Loader struct {
	jsonPath     string
	demoPath     string
	embeddedDemo string
	category     string
	persist      bool
	logger       *slog.Logger
	now          func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDemoPath sets the demo text file tried when the JSON file is
// missing, empty or unreadable.
func WithDemoPath(path string) LoaderOption {
	return func(l *Loader) { l.demoPath = path }
}

// WithEmbeddedDemo sets demo text compiled into the binary.
func WithEmbeddedDemo(text string) LoaderOption {
	return func(l *Loader) { l.embeddedDemo = text }
}

// WithCategory overrides the category given to demo rules.
func WithCategory(category string) LoaderOption {
	return func(l *Loader) {
		if category != "" {
			l.category = category
		}
	}
}

// WithPersist makes the loader write rules obtained from a fallback
// source back to the JSON path.
func WithPersist(persist bool) LoaderOption {
	return func(l *Loader) { l.persist = persist }
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader for the given rules JSON path.
func NewLoader(jsonPath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		jsonPath: jsonPath,
		category: DefaultCategory,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the files the loader reads, for watching.
func (l *Loader) Paths() []string {
	var out []string
	if l.jsonPath != "" {
		out = append(out, l.jsonPath)
	}
	if l.demoPath != "" {
		out = append(out, l.demoPath)
	}
	return out
}

// Load returns the rules of the first source that yields any, and that
// source. It only fails when ctx is cancelled: DefaultRules is the floor.
func (l *Loader) Load(ctx context.Context) ([]Rule, Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if l.jsonPath != "" {
		rules, err := LoadJSON(l.jsonPath, l.now())
		switch {
		case err == nil && len(rules) > 0:
			l.logger.Info("rules loaded",
				slog.String("source", string(SourceJSON)),
				slog.String("path", l.jsonPath),
				slog.Int("count", len(rules)))
			return rules, SourceJSON, nil
		case err == nil:
			l.logger.Warn("rules file is empty, falling back to demo rules", slog.String("path", l.jsonPath))
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Warn("rules file not found, falling back to demo rules", slog.String("path", l.jsonPath))
		default:
			attrs := append([]slog.Attr{slog.String("path", l.jsonPath)}, rerrors.LogAttrs(err)...)
			l.logger.LogAttrs(ctx, slog.LevelError, "rules file unreadable, falling back to demo rules", attrs...)
		}
	}

	rules, source := l.loadFallback(ctx)
	if l.persist && l.jsonPath != "" {
		if err := Save(l.jsonPath, rules); err != nil {
			l.logger.Warn("failed to persist fallback rules",
				slog.String("path", l.jsonPath),
				slog.String("error", err.Error()))
		}
	}
	return rules, source, nil
}

func (l *Loader) loadFallback(ctx context.Context) ([]Rule, Source) {
	if l.demoPath != "" {
		data, err := os.ReadFile(l.demoPath)
		if err == nil {
			if rules := l.parse(ctx, string(data), l.demoPath); len(rules) > 0 {
				return rules, SourceDemo
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("demo rules unreadable",
				slog.String("path", l.demoPath),
				slog.String("error", err.Error()))
		}
	}

	if l.embeddedDemo != "" {
		if rules := l.parse(ctx, l.embeddedDemo, "embedded"); len(rules) > 0 {
			return rules, SourceEmbedded
		}
	}

	rules := DefaultRules(l.now())
	l.logger.Warn("no demo rules available, using built-in defaults", slog.Int("count", len(rules)))
	return rules, SourceDefaults
}

func (l *Loader) parse(ctx context.Context, text, origin string) []Rule {
	res := ParseDemo(text, l.category, l.now())
	for _, line := range res.Skipped {
		l.logger.Debug("demo line skipped", slog.String("origin", origin), slog.String("line", preview(line, 100)))
	}
	l.logger.InfoContext(ctx, "demo rules parsed",
		slog.String("origin", origin),
		slog.Int("count", len(res.Rules)),
		slog.Int("skipped", len(res.Skipped)))
	return res.Rules
}

// LoadJSON reads a rules JSON array. Missing ids, titles and creation
// times are filled in.
func LoadJSON(path string, now time.Time) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.New(rerrors.ErrCodeRulesNotFound, "failed to read rules file", err).
			WithDetail("path", path)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, rerrors.New(rerrors.ErrCodeRulesCorrupt, "rules file is not a JSON array of rules", err).
			WithDetail("path", path).
			WithSuggestion("fix the JSON or delete the file to fall back to demo rules")
	}

	for i := range rules {
		rules[i] = rules[i].normalize(now)
	}
	return rules, nil
}

// Save writes rules as indented JSON, atomically and under a file lock.
func Save(path string, rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return rerrors.New(rerrors.ErrCodeRulesWrite, "failed to encode rules", err)
	}
	if err := fslock.WriteFileAtomic(path, data, 0o644); err != nil {
		return rerrors.New(rerrors.ErrCodeRulesWrite, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Reload loads the corpus again and swaps it into store. On a cancelled
// context the store is left untouched.
func (l *Loader) Reload(ctx context.Context, store *Store) (*Snapshot, error) {
	rules, source, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap := store.Replace(rules, source)
	l.logger.Info("rules reloaded",
		slog.String("source", string(source)),
		slog.Int("rules", snap.Len()),
		slog.Uint64("version", snap.Version))
	return snap, nil
}
