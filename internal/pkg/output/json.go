// Package output writes command results for terminals and pipes.
package output

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 - file descriptors fit in int
}

// WriteJSON encodes v to w followed by a newline.
// When pretty is true, output is indented with 2 spaces.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// PrintJSON writes v to stdout, pretty-printed when stdout is a terminal
// and compact when piped or redirected.
func PrintJSON(v any) error {
	return WriteJSON(os.Stdout, v, IsTerminal(os.Stdout))
}
