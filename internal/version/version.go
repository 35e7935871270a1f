package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// UserAgent identifies speedwatch to the public map-data services, which
// require a descriptive agent string.
func UserAgent() string {
	return fmt.Sprintf("speedwatch/%s (+https://github.com/banshee-data/speedwatch)", Version)
}

// Info returns the build metadata served by /api/version.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_sha":    GitSHA,
		"build_time": BuildTime,
	}
}
