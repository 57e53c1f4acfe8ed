// Package version holds build information of the post-scheduler binary.
package version

// Version is the release version of post-scheduler.
var Version = "0.1.0"

// GitCommit is set at build time via ldflags.
var GitCommit = "unknown"

// BuildDate is set at build time via ldflags.
var BuildDate = "unknown"

// Info is the build information served on /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
	}
}
