// Package main provides the entry point for the ruleseek CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ruleseek/cmd/ruleseek/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
