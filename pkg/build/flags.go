// SPDX-License-Identifier: MIT
//
// Package build exposes version metadata stamped into the binary with
// linker flags, for example:
//
//	go build -ldflags "-X pitchmidi/pkg/build.buildVersion=0.3.0 -X pitchmidi/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Unstamped development builds report "dev" values instead of failing.
package build

import (
	"fmt"
	"time"
)

// DefaultName is used when no name is stamped at build time.
const DefaultName = "pitchmidi"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the flags for the --version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        DefaultName,
		Description: "Transcribe pitch tracks into MIDI notes",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the stamped values into the build flags. A stamped
// build time must be RFC3339; anything else is rejected so a bad release
// script fails loudly.
func Initialize() error {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		if _, err := time.Parse(time.RFC3339, buildTime); err != nil {
			return fmt.Errorf("BuildTime %q is not RFC3339: %w", buildTime, err)
		}
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
