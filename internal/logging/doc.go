// Package logging writes structured JSON logs to a size-rotated file under
// the ruleseek data directory and reads them back for `ruleseek logs`.
//
// Commands that own stdout for a protocol (the stdio MCP server) use
// SetupStdio, which never writes to stdout or stderr.
package logging
