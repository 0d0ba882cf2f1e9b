// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/olegiv/ocms-storefront/internal/version.version=v1.2.3 ...".
var (
	version   = "dev"
	gitCommit = ""
	buildTime = ""
)

// Info contains build-time version information.
type Info struct {
	Version   string `json:"version"`    // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"git_commit"` // Short git commit hash (e.g., "abc1234")
	BuildTime string `json:"build_time"` // Build timestamp in RFC3339 format
}

// Get returns the linked-in version. Without ldflags the VCS stamp of the
// Go build is used when available.
func Get() Info {
	info := Info{Version: version, GitCommit: gitCommit, BuildTime: buildTime}
	if info.GitCommit != "" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	return info
}

func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				info.GitCommit = s.Value[:7]
			} else {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		}
	}
}

// String formats the info for the -version flag.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s += fmt.Sprintf(" (%s)", i.GitCommit)
	}
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}
