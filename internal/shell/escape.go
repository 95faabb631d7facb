package shell

import (
	"runtime"
	"strings"
)

// EscapeArgument quotes a single argument for safe reinsertion into a shell
// command line on the current platform.
func EscapeArgument(value string) string {
	if runtime.GOOS == "windows" {
		return EscapeWindows(value)
	}
	return EscapePosix(value)
}

// EscapePosix wraps the value in single quotes; embedded single quotes are
// encoded as '\'' so the quoted run is closed, the quote escaped, and the
// run reopened.
func EscapePosix(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// EscapeWindows wraps the value in double quotes and escapes cmd.exe
// metacharacters with a caret.
func EscapeWindows(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range value {
		switch c {
		case '&', '|', '<', '>', '^', '%':
			b.WriteByte('^')
			b.WriteRune(c)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
