// Package preflight diagnoses a ruleseek installation before the server
// starts, for `ruleseek doctor`.
//
// The package checks:
//   - The rules source (rules.json, then the demo file)
//   - Write permissions and free space in the data directory
//   - File descriptor limits
//   - That the listen address is free
//   - History database integrity
//   - The Discord webhook URL
//
// Use the Checker type to run all checks:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, target)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
