package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogPath returns the active log file in dir.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// FindLogFile resolves the file `ruleseek logs` should read: explicit
// when given, otherwise the active log in dir.
func FindLogFile(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	path := LogPath(dir)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no log file found at %s\nstart the server once with `ruleseek serve` to create it", path)
	}
	return path, nil
}
