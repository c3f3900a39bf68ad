package capi

import (
	"fmt"
	"strings"
)

// Version represents the DuckDB version information
type Version struct {
	Major      int
	Minor      int
	Patch      int
	VersionStr string
}

// String returns the version as a string
func (v Version) String() string {
	if v.VersionStr != "" {
		return v.VersionStr
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast checks if the version is at least the given major, minor, patch
func (v Version) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

// ParseVersion parses strings such as "v1.2.0" or "v0.8.0-1014-gf41c0e9a4e" as
// reported by duckdb_library_version. Unparseable parts stay zero.
func ParseVersion(s string) Version {
	v := Version{VersionStr: s}
	core := strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(core, "-+ "); i >= 0 {
		core = core[:i]
	}
	_, _ = fmt.Sscanf(core, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	return v
}
