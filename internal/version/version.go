// In file: internal/version/version.go

// Package version reports what build is running. The release values are
// injected at link time:
//
//	go build -ldflags "-X github.com/dileep-u-k/pmo-assistant/internal/version.Version=v1.2.0"
//
// Components carries the versions of the parts whose behaviour users see
// directly. Bump one when its tool prompts, output schemas or agent
// instructions change, so stored results can be traced to the logic that
// produced them.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Components holds the version strings of the logical parts of the assistant.
var Components = struct {
	// Tools covers tool prompts and output schemas.
	Tools string `json:"tools"`
	// Agent covers the agent instructions and tool loop.
	Agent string `json:"agent"`
}{
	Tools: "v1.0",
	Agent: "v1.0",
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version    string `json:"version"`
	BuildDate  string `json:"build_date"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Components string `json:"components"`
}

// Get returns the build information of this binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:    Version,
		BuildDate:  BuildDate,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Components: ComponentString(),
	}
}

// ComponentString renders Components compactly, e.g. "tv1.0_av1.0".
func ComponentString() string {
	return fmt.Sprintf("tv%s_av%s", Components.Tools, Components.Agent)
}
