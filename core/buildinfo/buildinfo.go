package buildinfo

// Set at build time via -ldflags, for example:
//
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Date=2026-10-14T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)
