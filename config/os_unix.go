//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// virtualTerminal reports whether stream is a terminal understanding ANSI
// sequences.
func virtualTerminal(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
