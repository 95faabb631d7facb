// Package shell provides static safety analysis for shell command strings:
// quote-aware tokenization, injection screening, and argument escaping.
// Everything here is pure; nothing touches the OS.
package shell

import "strings"

// Tokenize splits a command string into argument tokens, respecting
// single/double quoting and backslash escaping. It returns an unclosed-quote
// rejection rather than guessing when quoting is malformed.
func Tokenize(command string) ([]string, *Rejection) {
	var tokens []string
	var current strings.Builder
	inToken := false

	runes := []rune(command)
	i := 0
	for i < len(runes) {
		c := runes[i]

		switch {
		case c == '\'':
			// Single quotes: everything literal until the closing quote.
			inToken = true
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '\'' {
					closed = true
					i++
					break
				}
				current.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, rejectf(RejectUnclosedQuote, "Command contains an unclosed quote.")
			}

		case c == '"':
			// Double quotes: backslash still escapes \ " $ `.
			inToken = true
			i++
			closed := false
			for i < len(runes) {
				d := runes[i]
				if d == '"' {
					closed = true
					i++
					break
				}
				if d == '\\' && i+1 < len(runes) {
					next := runes[i+1]
					if next == '\\' || next == '"' || next == '$' || next == '`' {
						current.WriteRune(next)
						i += 2
						continue
					}
				}
				current.WriteRune(d)
				i++
			}
			if !closed {
				return nil, rejectf(RejectUnclosedQuote, "Command contains an unclosed quote.")
			}

		case c == '\\':
			inToken = true
			if i+1 < len(runes) {
				current.WriteRune(runes[i+1])
				i += 2
			} else {
				// Trailing backslash is kept literally.
				current.WriteRune(c)
				i++
			}

		case c == ' ' || c == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
			i++

		default:
			inToken = true
			current.WriteRune(c)
			i++
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}
