package proc

import "regexp"

// Matches CSI sequences (colors, cursor movement), OSC sequences (window
// titles, hyperlinks), charset designations, and lone two-byte escapes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)|\x1b[()][AB012]|\x1b[@-_]`)

// stripANSI removes terminal escape sequences from decoded text. Raw output
// keeps them.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
