// Package version holds build information, set at link time:
//
//	go build -ldflags "-X github.com/farcloser/replaygain/version.version=v1.0.0 \
//	  -X github.com/farcloser/replaygain/version.commit=$(git rev-parse --short HEAD)"
package version

import (
	"os"
	"path/filepath"
)

var (
	name    = ""
	version = "dev"
	commit  = "unknown"
)

// Name returns the binary name, defaulting to the name it was invoked as.
func Name() string {
	if name != "" {
		return name
	}

	return filepath.Base(os.Args[0])
}

// Version returns the release version.
func Version() string {
	return version
}

// Commit returns the source revision.
func Commit() string {
	return commit
}
