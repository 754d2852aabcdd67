// witdl - downloads the attachments of work items returned by a saved query
package main

import (
	"os"

	"github.com/rescale/witdl/internal/cli"
	"github.com/rescale/witdl/internal/version"
)

// Version information
var (
	Version   = "v1.0.0"
	BuildTime = "unknown"
)

func main() {
	// Set version in version package (canonical source for all packages)
	// and CLI package (for the help text)
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
