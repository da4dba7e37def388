package config

import "os"

// EnableColorOutput checks if colorized output is possible. NO_COLOR and
// TERM=dumb turn colors off regardless of the stream.
func EnableColorOutput(stream *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return virtualTerminal(stream)
}
