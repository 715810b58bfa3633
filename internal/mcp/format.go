package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/ruleseek/internal/search"
)

// FormatAnswer renders an answer as markdown for text-only clients.
func FormatAnswer(a *search.Answer) string {
	if a == nil || len(a.Rules) == 0 {
		return fmt.Sprintf("No rules found for \"%s\"", questionOf(a))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Rules for \"%s\"\n\n", a.Question)
	fmt.Fprintf(&sb, "Found %d rule", len(a.Rules))
	if len(a.Rules) != 1 {
		sb.WriteString("s")
	}
	if a.Matched > len(a.Rules) {
		fmt.Fprintf(&sb, " (%d matched)", a.Matched)
	}
	sb.WriteString("\n\n")

	for i, r := range a.Rules {
		formatRule(&sb, i+1, r)
	}
	return sb.String()
}

// FormatCategories renders a category list as markdown.
func FormatCategories(categories []string) string {
	if len(categories) == 0 {
		return "No categories."
	}
	var sb strings.Builder
	sb.WriteString("## Categories\n\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	return sb.String()
}

func formatRule(sb *strings.Builder, n int, r search.ScoredRule) {
	fmt.Fprintf(sb, "### %d. Rule %s", n, r.Point)
	if r.Scored {
		fmt.Fprintf(sb, " (%d%%)", r.Relevance)
	}
	sb.WriteString("\n\n")
	if r.Category != "" {
		fmt.Fprintf(sb, "**Category:** %s\n\n", r.Category)
	}
	sb.WriteString(r.Content)
	sb.WriteString("\n\n")
	if r.Punishment != "" {
		fmt.Fprintf(sb, "**Punishment:** %s\n\n", r.Punishment)
	}
}

func questionOf(a *search.Answer) string {
	if a == nil {
		return ""
	}
	return a.Question
}
