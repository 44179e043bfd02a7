// Package version carries build metadata set through -ldflags, e.g.
//
//	go build -ldflags "-X logscope/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func String() string {
	base := Version
	if Commit != "" {
		base += fmt.Sprintf(" (%s)", Commit)
	}
	if Date != "" {
		base += fmt.Sprintf(" %s", Date)
	}
	return base
}

// Full adds the Go toolchain and platform, for --version output.
func Full(name string) string {
	return fmt.Sprintf("%s %s %s %s/%s", name, String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
