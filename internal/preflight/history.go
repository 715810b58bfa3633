package preflight

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/ruleseek/internal/store"
)

// CheckHistory runs the SQLite integrity check on the history database.
// A corrupt file is not fatal: the server moves it aside and starts over.
func (c *Checker) CheckHistory(path string) CheckResult {
	result := CheckResult{Name: "history_db"}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = StatusPass
		result.Message = "not created yet"
		result.Details = path
		return result
	}
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}

	if err := store.ValidateIntegrity(path); err != nil {
		result.Status = StatusWarn
		result.Message = "database will be recreated: " + err.Error()
		result.Details = path
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%s)", formatBytes(uint64(info.Size())))
	result.Details = path
	return result
}
