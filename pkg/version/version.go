package version

import "fmt"

// Version, GitCommit and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rf4ce/remoti/pkg/version.Version=v1.0.0 \
//	  -X github.com/rf4ce/remoti/pkg/version.GitCommit=abc1234 \
//	  -X github.com/rf4ce/remoti/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the human-readable version string printed by the version
// subcommand.
func Info() string {
	return fmt.Sprintf("remoti %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
