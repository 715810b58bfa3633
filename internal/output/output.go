// Package output provides consistent CLI output: status lines, rule
// listings and JSON. Colour is used only on a terminal without NO_COLOR.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
	styles   ui.Styles
}

// New creates a Writer, enabling colour when out is a terminal.
func New(out io.Writer) *Writer {
	return NewWithColor(out, ui.Detect(out).Color())
}

// NewWithColor creates a Writer with explicit colour.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	return &Writer{
		out:      out,
		useColor: useColor,
		styles:   ui.GetStyles(!useColor),
	}
}

// Color reports whether the writer emits ANSI colour.
func (w *Writer) Color() bool { return w.useColor }

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints an indented block.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Answer prints a search answer: a summary line and the rules.
func (w *Writer) Answer(a *search.Answer) {
	switch {
	case a.Mode == search.ModeNoTerms:
		w.Warning("Слова запроса слишком короткие (нужно не меньше 3 букв)")
		return
	case len(a.Rules) == 0:
		w.Warning(fmt.Sprintf("По запросу «%s» ничего не найдено", a.Question))
		return
	}

	summary := fmt.Sprintf("Найдено правил: %d за %s", a.TotalFound, a.ProcessingTime.Round(time.Microsecond))
	if a.Matched > a.TotalFound {
		summary += fmt.Sprintf(" (совпадений %d)", a.Matched)
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Label.Render(summary))
	_, _ = fmt.Fprintln(w.out)
	w.Rules(a.Rules)
}

// Rules prints each rule with its point, relevance, text, punishment and
// category.
func (w *Writer) Rules(list []search.ScoredRule) {
	s := w.styles
	for _, r := range list {
		head := s.Point.Render(r.Point + ".")
		if r.Scored {
			head += " " + s.Relevance(r.Relevance).Render(fmt.Sprintf("[%d%%]", r.Relevance))
		}
		_, _ = fmt.Fprintf(w.out, "%s %s\n", head, r.Content)

		var meta []string
		if r.Punishment != "" {
			meta = append(meta, s.Punishment.Render(r.Punishment))
		}
		if r.Category != "" {
			meta = append(meta, s.Category.Render(r.Category))
		}
		if len(meta) > 0 {
			_, _ = fmt.Fprintf(w.out, "   %s\n", strings.Join(meta, " · "))
		}
		_, _ = fmt.Fprintln(w.out)
	}
}

// List prints one bullet per item.
func (w *Writer) List(items []string) {
	for _, it := range items {
		_, _ = fmt.Fprintf(w.out, "  • %s\n", it)
	}
}
