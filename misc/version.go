// Package misc keeps build information.
package misc

// Set at build time with -ldflags "-X ncss/misc.version=... -X ncss/misc.gitHash=...".
var (
	appName = "ncss"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
