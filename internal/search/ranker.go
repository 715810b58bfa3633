package search

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Aman-CERP/ruleseek/internal/rules"
)

const (
	// BrowseLimit caps the unscored listing returned for an empty question.
	BrowseLimit = 10
	// ResultLimit caps a ranked result.
	ResultLimit = 5
)

// Mode says which branch of the pipeline produced a result.
type Mode string

const (
	// ModeBrowse: the question was blank, the first rules are returned.
	ModeBrowse Mode = "browse"
	// ModeRanked: rules were scored and ranked.
	ModeRanked Mode = "ranked"
	// ModeNoTerms: the question had text but no term long enough to score.
	ModeNoTerms Mode = "no_terms"
)

// ScoredRule is a rule with its relevance. Browse results are unscored
// and carry no relevance field in JSON.
type ScoredRule struct {
	rules.Rule
	Relevance int
	Score     int
	Scored    bool
}

type plainRule rules.Rule

func (s ScoredRule) MarshalJSON() ([]byte, error) {
	if !s.Scored {
		return json.Marshal(plainRule(s.Rule))
	}
	return json.Marshal(struct {
		plainRule
		Relevance int `json:"relevance"`
	}{plainRule(s.Rule), s.Relevance})
}

func (s *ScoredRule) UnmarshalJSON(data []byte) error {
	var aux struct {
		plainRule
		Relevance *int `json:"relevance"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Rule = rules.Rule(aux.plainRule)
	s.Scored = aux.Relevance != nil
	if s.Scored {
		s.Relevance = *aux.Relevance
	}
	return nil
}

// Result is the full outcome of a search.
type Result struct {
	Mode  Mode
	Terms []string
	Rules []ScoredRule
	// Matched counts rules with a positive score before truncation.
	Matched int
}

// Run searches corpus for question. It is pure: the same corpus and
// question always give the same result in the same order.
func Run(corpus []rules.Rule, question string) Result {
	if strings.TrimSpace(question) == "" {
		n := min(BrowseLimit, len(corpus))
		out := make([]ScoredRule, n)
		for i := range n {
			out[i] = ScoredRule{Rule: corpus[i]}
		}
		return Result{Mode: ModeBrowse, Terms: []string{}, Rules: out, Matched: n}
	}

	q := newQuery(question)
	if len(q.terms) == 0 {
		// Relevance divides by the term count, so a question made only of
		// short fragments matches nothing.
		return Result{Mode: ModeNoTerms, Terms: q.terms, Rules: []ScoredRule{}}
	}

	scored := make([]ScoredRule, 0, len(corpus))
	for _, r := range corpus {
		score := q.explain(r).Total()
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredRule{
			Rule:      r,
			Score:     score,
			Relevance: Relevance(score, len(q.terms)),
			Scored:    true,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	matched := len(scored)
	if len(scored) > ResultLimit {
		scored = scored[:ResultLimit]
	}
	return Result{Mode: ModeRanked, Terms: q.terms, Rules: scored, Matched: matched}
}

// Search returns the ranked rules of corpus for question: at most
// BrowseLimit unscored rules for a blank question, otherwise at most
// ResultLimit rules ordered by relevance, ties kept in corpus order.
func Search(corpus []rules.Rule, question string) []ScoredRule {
	return Run(corpus, question).Rules
}
