// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import (
	"fmt"
	"runtime/debug"
)

// Build metadata stamped by the release pipeline, for example
//
//	-X 'github.com/papercomputeco/vera/pkg/utils.Version=v0.3.0'
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Sha       string
	Buildtime string
}

// CurrentBuild returns the stamped build metadata. Values left unstamped,
// as with "go install", are filled from the module version and VCS settings
// embedded by the Go toolchain.
func CurrentBuild() BuildInfo {
	return resolveBuild(BuildInfo{Version: Version, Sha: Sha, Buildtime: Buildtime}, debug.ReadBuildInfo)
}

func resolveBuild(b BuildInfo, read func() (*debug.BuildInfo, bool)) BuildInfo {
	info, ok := read()
	if !ok || info == nil {
		return b
	}

	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Sha == "HEAD" {
				b.Sha = s.Value
			}
		case "vcs.time":
			if b.Buildtime == "dev" {
				b.Buildtime = s.Value
			}
		}
	}
	return b
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("Version: %s\nSha: %s\nBuilt at: %s\n", b.Version, b.Sha, b.Buildtime)
}
