// Package ui renders rules in the terminal: the interactive browser, the
// stats report and shared styles.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ciVars mark a CI runner, where full-screen programs never get input.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}

// Terminal describes what an output stream can display.
type Terminal struct {
	TTY     bool
	NoColor bool
	CI      bool
}

// Detect inspects w and the environment.
func Detect(w io.Writer) Terminal {
	t := Terminal{NoColor: noColorEnv()}
	if f, ok := w.(*os.File); ok && f != nil {
		fd := f.Fd()
		t.TTY = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	for _, v := range ciVars {
		if _, ok := os.LookupEnv(v); ok {
			t.CI = true
			break
		}
	}
	return t
}

// Color reports whether ANSI colour should be written.
func (t Terminal) Color() bool {
	return t.TTY && !t.NoColor
}

// Interactive reports whether a full-screen program can run.
func (t Terminal) Interactive() bool {
	return t.TTY && !t.CI
}

// noColorEnv honours NO_COLOR and TERM=dumb.
func noColorEnv() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}
