// Package configs embeds the configuration template and the demo rules.
//
// Templates are embedded at build time so they are available in every
// distribution (source builds, release binaries).
//
// Used by:
//   - cmd/ruleseek/cmd/config.go: `ruleseek config init` writes ConfigTemplate
//   - cmd/ruleseek/cmd/root.go: DemoRules is the last fallback before the
//     three built-in rules
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/ruleseek/config.yaml)
//  3. Project config (.ruleseek.yaml)
//  4. Environment variables (RULESEEK_*)
package configs

import _ "embed"

// ConfigTemplate is the commented example configuration.
//
//go:embed ruleseek.example.yaml
var ConfigTemplate string

// DemoRules is demo rules text in the "N. text | punishment" format.
//
//go:embed demo_rules.txt
var DemoRules string
