package rules

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TitleLength is the number of characters of content kept in a title.
const TitleLength = 50

// DefaultCategory is assigned to rules parsed from the demo text format.
const DefaultCategory = "Общие правила"

// Rule is one entry of the rules document. Rules are never mutated after
// a snapshot is published.
type Rule struct {
	ID         string    `json:"id"`
	Point      string    `json:"point"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Punishment string    `json:"punishment"`
	Category   string    `json:"category"`
	Created    time.Time `json:"created"`
}

// NewRule builds a rule with a fresh id, a title preview and the given
// creation time.
func NewRule(point, content, punishment, category string, created time.Time) Rule {
	return Rule{
		ID:         uuid.New().String(),
		Point:      point,
		Title:      Title(content),
		Content:    content,
		Punishment: punishment,
		Category:   category,
		Created:    created.UTC(),
	}
}

// Title returns the first TitleLength characters of content, with "..."
// appended when content is longer.
func Title(content string) string {
	if utf8.RuneCountInString(content) <= TitleLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleLength]) + "..."
}

// normalize fills in fields that hand-written rules.json files often omit.
func (r Rule) normalize(now time.Time) Rule {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Title == "" {
		r.Title = Title(r.Content)
	}
	if r.Created.IsZero() {
		r.Created = now.UTC()
	}
	return r
}
