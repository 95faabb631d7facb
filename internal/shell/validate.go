package shell

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RejectCategory classifies why a command was rejected.
type RejectCategory string

const (
	RejectEmpty          RejectCategory = "empty"
	RejectUnclosedQuote  RejectCategory = "unclosed_quote"
	RejectChaining       RejectCategory = "chaining"
	RejectLogicalOp      RejectCategory = "logical_operator"
	RejectSubstitution   RejectCategory = "substitution"
	RejectRedirection    RejectCategory = "redirection"
	RejectParamExpansion RejectCategory = "parameter_expansion"
	RejectNewline        RejectCategory = "newline"
	RejectBannedCommand  RejectCategory = "banned_command"
	RejectSensitivePath  RejectCategory = "sensitive_path"
	RejectNotAllowlisted RejectCategory = "not_allowlisted"
)

// Rejection explains why a command failed validation. The message is written
// to be shown to the user as-is.
type Rejection struct {
	Category RejectCategory
	Message  string
}

func (r *Rejection) Error() string {
	return r.Message
}

func rejectf(cat RejectCategory, format string, args ...interface{}) *Rejection {
	return &Rejection{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// Base commands that can execute arbitrary code regardless of arguments.
var bannedBases = map[string]bool{
	"eval":   true,
	"exec":   true,
	"source": true,
	".":      true,
}

// Path fragments that commands may never reference in their arguments.
// Matched case-insensitively against tokenized arguments.
var sensitivePaths = []string{
	"/etc/passwd",
	"/etc/shadow",
	"/etc/sudoers",
	"/proc/",
	"/sys/",
	"/boot/",
	"~/.ssh",
	"/.ssh/",
	"~/.aws",
	"/.aws/",
	"~/.gnupg",
	"/.gnupg/",
}

// DefaultAllowedBinaries is the executable allowlist for strict mode:
// package managers, VCS, build tools and a minimal POSIX utility set.
var DefaultAllowedBinaries = []string{
	"npm", "npx", "pnpm", "yarn", "pip", "pip3", "cargo", "gem", "brew", "apt", "apt-get",
	"git", "hg", "svn",
	"go", "make", "cmake", "gradle", "mvn", "rustc", "tsc", "node", "python", "python3",
	"ls", "cat", "head", "tail", "grep", "find", "which", "pwd", "echo", "wc", "sort",
	"uniq", "diff", "mkdir", "cp", "mv", "touch", "env", "uname", "date",
}

// Validate classifies a candidate shell command as safe to hand to the
// process executor, or returns a rejection naming the offending category.
// Content inside quoted segments is inert, except command substitution,
// which the shell still expands inside double quotes.
func Validate(command string) *Rejection {
	if strings.TrimSpace(command) == "" {
		return rejectf(RejectEmpty, "Command is empty.")
	}

	if rej := scanMetacharacters(command); rej != nil {
		return rej
	}

	tokens, rej := Tokenize(command)
	if rej != nil {
		return rej
	}
	if len(tokens) == 0 {
		return rejectf(RejectEmpty, "Command is empty.")
	}

	base := strings.ToLower(filepath.Base(tokens[0]))
	if bannedBases[base] || bannedBases[tokens[0]] {
		return rejectf(RejectBannedCommand, "Command '%s' is not allowed because it can execute arbitrary code.", tokens[0])
	}

	// Sensitive paths are checked against arguments only, not the
	// executable name, so e.g. /proc-dump-tool itself is not a match.
	for _, arg := range tokens[1:] {
		lower := strings.ToLower(arg)
		for _, p := range sensitivePaths {
			if strings.Contains(lower, p) {
				return rejectf(RejectSensitivePath, "Access to sensitive path '%s' is not allowed.", arg)
			}
		}
	}

	return nil
}

// ValidateAllowlisted applies Validate plus a strict executable allowlist on
// the base name of the first token. A nil allowlist uses
// DefaultAllowedBinaries.
func ValidateAllowlisted(command string, allowed []string) *Rejection {
	if rej := Validate(command); rej != nil {
		return rej
	}

	if allowed == nil {
		allowed = DefaultAllowedBinaries
	}

	tokens, rej := Tokenize(command)
	if rej != nil {
		return rej
	}

	base := strings.ToLower(filepath.Base(tokens[0]))
	for _, name := range allowed {
		if base == strings.ToLower(name) {
			return nil
		}
	}
	return rejectf(RejectNotAllowlisted, "Executable '%s' is not on the allowed list.", base)
}

// scanMetacharacters walks the raw command and rejects shell syntax capable
// of smuggling a second command past validation. Quote state is tracked so
// quoted text stays inert.
func scanMetacharacters(command string) *Rejection {
	runes := []rune(command)

	const (
		stateNone = iota
		stateSingle
		stateDouble
	)
	state := stateNone

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case stateSingle:
			if c == '\'' {
				state = stateNone
			}
			continue

		case stateDouble:
			switch c {
			case '\\':
				i++ // escaped character inside double quotes
			case '"':
				state = stateNone
			case '`':
				return rejectf(RejectSubstitution, "Command substitution is not allowed.")
			case '$':
				// $(...) expands even inside double quotes.
				if i+1 < len(runes) && runes[i+1] == '(' {
					return rejectf(RejectSubstitution, "Command substitution is not allowed.")
				}
			}
			continue
		}

		switch c {
		case '\\':
			i++ // escaped character is inert
		case '\'':
			state = stateSingle
		case '"':
			state = stateDouble
		case '\n', '\r':
			return rejectf(RejectNewline, "Multi-line commands are not allowed.")
		case ';':
			return rejectf(RejectChaining, "Command chaining characters are not allowed.")
		case '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				return rejectf(RejectLogicalOp, "Logical operators are not allowed.")
			}
			return rejectf(RejectChaining, "Command chaining characters are not allowed.")
		case '|':
			if i+1 < len(runes) && runes[i+1] == '|' {
				return rejectf(RejectLogicalOp, "Logical operators are not allowed.")
			}
			return rejectf(RejectChaining, "Command chaining characters are not allowed.")
		case '`':
			return rejectf(RejectSubstitution, "Command substitution is not allowed.")
		case '<', '>':
			return rejectf(RejectRedirection, "Redirection is not allowed.")
		case '$':
			if i+1 < len(runes) {
				switch runes[i+1] {
				case '(':
					return rejectf(RejectSubstitution, "Command substitution is not allowed.")
				case '{':
					if rej := checkBraceExpansion(runes[i:]); rej != nil {
						return rej
					}
				}
			}
		}
	}

	return nil
}

// checkBraceExpansion inspects a ${...} expression for assignment and
// fallback operators. Plain ${VAR} is allowed.
func checkBraceExpansion(runes []rune) *Rejection {
	// runes starts at '$'; find the closing brace.
	end := -1
	for i := 2; i < len(runes); i++ {
		if runes[i] == '}' {
			end = i
			break
		}
	}
	if end < 0 {
		return nil // unterminated; tokenization noise, not an operator
	}

	body := string(runes[2:end])
	for _, op := range []string{":=", ":-", ":+", ":?", "=", "-"} {
		if strings.Contains(body, op) {
			return rejectf(RejectParamExpansion, "Parameter expansion operators are not allowed.")
		}
	}
	return nil
}
