// Package version identifies the running ruleseek build.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in banners and the MCP handshake.
const Name = "ruleseek"

// Version is the service version. Release builds override it with
// -X github.com/Aman-CERP/ruleseek/pkg/version.Version=$(VERSION).
var Version = "2.0.0"

// Set at link time.
var (
	Commit = "unknown"
	Date   = "unknown"
)

// Info describes a build.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the running build.
func Get() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	s := i.Name + " " + i.Version
	if i.Commit != "unknown" {
		s += fmt.Sprintf(" (%s, %s)", shortCommit(i.Commit), i.Date)
	}
	return s + fmt.Sprintf(" %s %s", i.GoVersion, i.Platform)
}

// UserAgent is sent with outgoing HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
