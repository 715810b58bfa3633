package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Aman-CERP/ruleseek/internal/rules"
)

// CheckRules reports which source the server will load. Missing or broken
// files only warn: the server always falls back to the built-in rules.
func (c *Checker) CheckRules(rulesPath, demoPath, category string) CheckResult {
	result := CheckResult{Name: "rules"}
	now := time.Now()

	list, err := rules.LoadJSON(rulesPath, now)
	switch {
	case err == nil && len(list) > 0:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d rules in %s", len(list), rulesPath)
		result.Details = fmt.Sprintf("%d categories", len(rules.NewStore(list, rules.SourceJSON).Snapshot().Categories()))
		return result
	case err == nil:
		result.Details = fmt.Sprintf("%s has no rules", rulesPath)
	case errors.Is(err, fs.ErrNotExist):
		result.Details = fmt.Sprintf("%s not found", rulesPath)
	default:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot parse %s: %v", rulesPath, err)
		return result
	}

	result.Status = StatusWarn
	if demoPath != "" {
		if data, err := os.ReadFile(demoPath); err == nil {
			parsed := rules.ParseDemo(string(data), category, now)
			if n := len(parsed.Rules); n > 0 {
				result.Message = fmt.Sprintf("using %d demo rules from %s", n, demoPath)
				if len(parsed.Skipped) > 0 {
					result.Details += fmt.Sprintf("; %d demo lines skipped", len(parsed.Skipped))
				}
				return result
			}
		}
	}
	result.Message = "using the built-in demo rules"
	return result
}
