// Package misc provides build metadata accessors used across the program.
package misc

import "runtime/debug"

const appName = "mailstage"

// Overwritten by the linker on release builds.
var version = "dev"

// GetAppName returns program name to be used in logs, reports and temporary
// file names.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns VCS revision recorded in the build info, if any.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
