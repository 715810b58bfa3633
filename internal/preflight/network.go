package preflight

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// CheckListenAddr checks that addr can be bound.
func (c *Checker) CheckListenAddr(addr string) CheckResult {
	result := CheckResult{
		Name:     "listen_addr",
		Required: true,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s unavailable: %v", addr, err)
		result.Details = "Stop the other process or set RULESEEK_PORT"
		return result
	}
	_ = ln.Close()

	result.Status = StatusPass
	result.Message = addr
	return result
}

// CheckWebhook validates the Discord webhook URL without calling it.
func (c *Checker) CheckWebhook(raw string) CheckResult {
	result := CheckResult{Name: "discord_webhook"}

	u, err := url.Parse(raw)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("invalid URL: %v", err)
	case u.Scheme != "https" && u.Scheme != "http":
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unsupported scheme %q", u.Scheme)
	case u.Host == "":
		result.Status = StatusFail
		result.Message = "URL has no host"
	case !strings.Contains(u.Path, "/api/webhooks/"):
		result.Status = StatusWarn
		result.Message = "URL does not look like a Discord webhook"
		result.Details = u.Host + u.Path
	default:
		result.Status = StatusPass
		result.Message = u.Host
	}
	return result
}
