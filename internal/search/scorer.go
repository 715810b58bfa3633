package search

import (
	"math"
	"strings"

	"github.com/Aman-CERP/ruleseek/internal/rules"
)

// Score weights.
const (
	PhraseBonus  = 10 // searchable text contains the whole query
	TermHit      = 1  // searchable text contains a term
	ContentHit   = 3  // rule content contains a term
	PrefixHit    = 2  // per word of searchable text starting with a term
	MaxRelevance = 100
)

// KeywordBonus adds Weight when both the query and the searchable text
// contain Keyword. Keywords are lowercase stems matched as substrings.
type KeywordBonus struct {
	Keyword string
	Weight  int
}

// KeywordBonuses is the domain bonus table. Every row is checked for
// every rule.
var KeywordBonuses = []KeywordBonus{
	{"фракционн", 5},
	{"склад", 5},
	{"изъят", 5},
	{"ранг", 5},
	{"повыш", 5},
	{"зона", 8},
	{"green", 10},
	{"red", 10},
	{"grey", 10},
	{"виды", 8},
	{"карта", 8},
	{"территория", 6},
}

// SearchableText is the lowercased text a rule is matched against.
func SearchableText(r rules.Rule) string {
	return strings.ToLower(r.Content + " " + r.Punishment + " " + r.Category)
}

// Breakdown itemises a rule's score.
type Breakdown struct {
	Phrase   int            `json:"phrase"`
	Terms    int            `json:"terms"`
	Content  int            `json:"content"`
	Prefix   int            `json:"prefix"`
	Keywords map[string]int `json:"keywords,omitempty"`
}

// Total is the rule's score.
func (b Breakdown) Total() int {
	total := b.Phrase + b.Terms + b.Content + b.Prefix
	for _, w := range b.Keywords {
		total += w
	}
	return total
}

// query is a question prepared once per search and reused for every rule.
type query struct {
	raw   string
	lower string
	terms []string
	// keywords holds the bonus rows whose keyword occurs in the query.
	keywords []KeywordBonus
}

func newQuery(raw string) query {
	q := query{
		raw:   raw,
		lower: strings.ToLower(raw),
		terms: Tokenize(raw),
	}
	for _, kb := range KeywordBonuses {
		if strings.Contains(q.lower, kb.Keyword) {
			q.keywords = append(q.keywords, kb)
		}
	}
	return q
}

func (q query) explain(r rules.Rule) Breakdown {
	var b Breakdown
	text := SearchableText(r)

	if strings.Contains(text, q.lower) {
		b.Phrase = PhraseBonus
	}

	var (
		content  string
		words    []string
		prepared bool
	)
	for _, term := range q.terms {
		if !strings.Contains(text, term) {
			continue
		}
		b.Terms += TermHit

		if !prepared {
			content = strings.ToLower(r.Content)
			words = strings.Fields(text)
			prepared = true
		}
		if strings.Contains(content, term) {
			b.Content += ContentHit
		}
		for _, w := range words {
			if strings.HasPrefix(w, term) {
				b.Prefix += PrefixHit
			}
		}
	}

	for _, kb := range q.keywords {
		if strings.Contains(text, kb.Keyword) {
			if b.Keywords == nil {
				b.Keywords = make(map[string]int)
			}
			b.Keywords[kb.Keyword] += kb.Weight
		}
	}
	return b
}

// Explain returns the itemised score of rule for a question.
func Explain(r rules.Rule, question string) Breakdown {
	return newQuery(question).explain(r)
}

// Score returns the raw, unbounded score of rule for a question and its
// terms. Terms normally come from Tokenize(question).
func Score(r rules.Rule, question string, terms []string) int {
	q := newQuery(question)
	q.terms = terms
	return q.explain(r).Total()
}

// Relevance maps a raw score to [0, MaxRelevance]: the score per term as
// a percentage, rounded half up. termCount must be positive.
func Relevance(score, termCount int) int {
	v := int(math.Floor(float64(score)/float64(termCount)*100 + 0.5))
	if v > MaxRelevance {
		return MaxRelevance
	}
	if v < 0 {
		return 0
	}
	return v
}
