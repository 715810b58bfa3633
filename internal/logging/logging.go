package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// LogFileName is the active log file inside the log directory.
	LogFileName = "ruleseek.log"

	DefaultMaxSizeMB = 10
	DefaultMaxFiles  = 5
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Dir holds the active log file and its rotations. Empty disables
	// file logging.
	Dir       string
	MaxSizeMB int
	MaxFiles  int
	// WriteToStderr mirrors every record to Stderr.
	WriteToStderr bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// DefaultConfig logs info and above to dir and stderr.
func DefaultConfig(dir string) Config {
	return Config{
		Level:         "info",
		Dir:           dir,
		MaxSizeMB:     DefaultMaxSizeMB,
		MaxFiles:      DefaultMaxFiles,
		WriteToStderr: true,
	}
}

// Setup builds a JSON logger for cfg. The returned cleanup flushes and
// closes the log file and is safe to call when no file was opened.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var outputs []io.Writer
	cleanup := func() {}

	if cfg.Dir != "" {
		maxSize, maxFiles := cfg.MaxSizeMB, cfg.MaxFiles
		if maxSize <= 0 {
			maxSize = DefaultMaxSizeMB
		}
		if maxFiles <= 0 {
			maxFiles = DefaultMaxFiles
		}
		w, err := NewRotatingWriter(LogPath(cfg.Dir), maxSize, maxFiles)
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}

	if cfg.WriteToStderr {
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		outputs = append(outputs, stderr)
	}

	var out io.Writer
	switch len(outputs) {
	case 0:
		out = io.Discard
	case 1:
		out = outputs[0]
	default:
		out = io.MultiWriter(outputs...)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler), cleanup, nil
}

// SetupStdio configures file-only logging for processes whose stdout
// carries JSON-RPC. It installs the logger as the slog default.
func SetupStdio(dir, level string) (func(), error) {
	cfg := DefaultConfig(dir)
	cfg.Level = level
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	logger.Info("stdio logging initialized", slog.String("log_file", LogPath(dir)))
	return cleanup, nil
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
