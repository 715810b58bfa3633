package mcp

import (
	"github.com/Aman-CERP/ruleseek/internal/search"
)

// SearchRulesInput defines the input schema for the search_rules tool.
type SearchRulesInput struct {
	Query string `json:"query" jsonschema:"the question to search the rules for, in Russian"`
}

// SearchRulesOutput defines the output schema for the search_rules tool.
type SearchRulesOutput struct {
	Question   string       `json:"question" jsonschema:"the question as asked"`
	Mode       string       `json:"mode" jsonschema:"ranked, no_terms or browse"`
	TotalFound int          `json:"total_found" jsonschema:"number of rules returned"`
	Matched    int          `json:"matched" jsonschema:"number of rules that matched before truncation"`
	Rules      []RuleOutput `json:"rules" jsonschema:"rules ordered by relevance"`
}

// RuleOutput is a single rule in a tool response.
type RuleOutput struct {
	Point      string `json:"point" jsonschema:"rule number"`
	Content    string `json:"content" jsonschema:"rule text"`
	Punishment string `json:"punishment" jsonschema:"punishment for breaking the rule"`
	Category   string `json:"category" jsonschema:"rule category"`
	Relevance  int    `json:"relevance,omitempty" jsonschema:"relevance percentage between 0 and 100"`
}

// ListCategoriesInput defines the input schema for list_categories (no parameters).
type ListCategoriesInput struct{}

// ListCategoriesOutput defines the output schema for list_categories.
type ListCategoriesOutput struct {
	Categories []string `json:"categories" jsonschema:"distinct rule categories in corpus order"`
}

// RulesStatusInput defines the input schema for rules_status (no parameters).
type RulesStatusInput struct{}

// RulesStatusOutput defines the output schema for rules_status.
type RulesStatusOutput struct {
	Status        string `json:"status"`
	RulesCount    int    `json:"rules_count"`
	Categories    int    `json:"categories"`
	Source        string `json:"source" jsonschema:"where the corpus was loaded from: json, demo, embedded or defaults"`
	CorpusVersion uint64 `json:"corpus_version" jsonschema:"incremented on every reload"`
	LoadedAt      string `json:"loaded_at"`
	Version       string `json:"version"`
}

// ToRuleOutput converts a scored rule to its tool representation.
func ToRuleOutput(r search.ScoredRule) RuleOutput {
	out := RuleOutput{
		Point:      r.Point,
		Content:    r.Content,
		Punishment: r.Punishment,
		Category:   r.Category,
	}
	if r.Scored {
		out.Relevance = r.Relevance
	}
	return out
}

// ToSearchRulesOutput converts an answer to the search_rules output.
func ToSearchRulesOutput(a *search.Answer) SearchRulesOutput {
	out := SearchRulesOutput{
		Question:   a.Question,
		Mode:       string(a.Mode),
		TotalFound: a.TotalFound,
		Matched:    a.Matched,
		Rules:      make([]RuleOutput, 0, len(a.Rules)),
	}
	for _, r := range a.Rules {
		out.Rules = append(out.Rules, ToRuleOutput(r))
	}
	return out
}
