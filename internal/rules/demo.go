package rules

import (
	"html"
	"regexp"
	"strings"
	"time"
)

var (
	// "12. Текст правила | Наказание"
	demoLine      = regexp.MustCompile(`^(\d+)\.\s*(.+?)\s*\|\s*(.+)$`)
	demoLineLoose = regexp.MustCompile(`^(\d+)\.\s*(.+)\s*\|\s*(.+)$`)

	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|section|article|table)\s*/?[^>]*>`)
	allTags       = regexp.MustCompile(`<[^>]*>`)
	multiSpaces   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
)

// LooksLikeHTML reports whether a demo file is an HTML export rather than
// plain numbered lines.
func LooksLikeHTML(text string) bool {
	return strings.Contains(text, "<!DOCTYPE") ||
		strings.Contains(text, "<html") ||
		strings.Contains(text, "<body")
}

// ExtractText strips an HTML page down to readable text. Block elements
// become line breaks so numbered rules stay on their own lines.
func ExtractText(page string) string {
	page = scriptTag.ReplaceAllString(page, "")
	page = styleTag.ReplaceAllString(page, "")
	page = noscriptTag.ReplaceAllString(page, "")
	page = htmlComments.ReplaceAllString(page, "")
	page = blockElements.ReplaceAllString(page, "\n")
	page = allTags.ReplaceAllString(page, "")
	page = html.UnescapeString(page)

	var lines []string
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ParseResult is the outcome of parsing a demo document.
type ParseResult struct {
	Rules []Rule
	// Skipped holds the non-blank lines that matched neither line format.
	Skipped []string
}

// ParseDemo parses the demo text format, one rule per line:
//
//	<number>. <content> | <punishment>
//
// HTML input is converted with ExtractText first. Every parsed rule gets
// category and a creation time of now.
func ParseDemo(text, category string, now time.Time) ParseResult {
	if LooksLikeHTML(text) {
		text = ExtractText(text)
	}
	if category == "" {
		category = DefaultCategory
	}

	var res ParseResult
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := demoLine.FindStringSubmatch(line)
		if m == nil {
			m = demoLineLoose.FindStringSubmatch(line)
		}
		if m == nil {
			res.Skipped = append(res.Skipped, line)
			continue
		}

		content := strings.TrimSpace(m[2])
		res.Rules = append(res.Rules, NewRule(m[1], content, strings.TrimSpace(m[3]), category, now))
	}
	return res
}
