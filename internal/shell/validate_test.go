package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_SafeCommands(t *testing.T) {
	for _, cmd := range []string{
		"echo hello",
		"ls -la /tmp",
		"git status",
		"grep -r pattern .",
		"echo 'safe; text'",
		`echo "safe && text"`,
		"echo ${HOME}",
		"printf %s hello",
		"go test ./...",
	} {
		t.Run(cmd, func(t *testing.T) {
			assert.Nil(t, Validate(cmd))
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		cmd      string
		category RejectCategory
	}{
		{"", RejectEmpty},
		{"   ", RejectEmpty},
		{"echo hello; rm -rf /", RejectChaining},
		{"sleep 10 &", RejectChaining},
		{"cat foo | grep bar", RejectChaining},
		{"true && rm -rf /", RejectLogicalOp},
		{"false || rm -rf /", RejectLogicalOp},
		{"echo $(whoami)", RejectSubstitution},
		{"echo `whoami`", RejectSubstitution},
		{`echo "$(whoami)"`, RejectSubstitution},
		{"echo \"`whoami`\"", RejectSubstitution},
		{"cat < /tmp/in", RejectRedirection},
		{"echo hi > /tmp/out", RejectRedirection},
		{"echo ${IFS:=x}", RejectParamExpansion},
		{"echo ${PATH:-/bin}", RejectParamExpansion},
		{"echo hi\nrm -rf /", RejectNewline},
		{"eval echo hi", RejectBannedCommand},
		{"exec /bin/sh", RejectBannedCommand},
		{"source ~/.bashrc", RejectBannedCommand},
		{". ./script.sh", RejectBannedCommand},
		{"cat /etc/passwd", RejectSensitivePath},
		{"cat /ETC/PASSWD", RejectSensitivePath},
		{"ls ~/.ssh", RejectSensitivePath},
		{"head /proc/self/environ", RejectSensitivePath},
		{"echo 'unterminated", RejectUnclosedQuote},
		{`echo "unterminated`, RejectUnclosedQuote},
	}

	for _, tc := range cases {
		t.Run(tc.cmd, func(t *testing.T) {
			rej := Validate(tc.cmd)
			require.NotNil(t, rej, "expected rejection for %q", tc.cmd)
			assert.Equal(t, tc.category, rej.Category)
			assert.NotEmpty(t, rej.Message)
		})
	}
}

func TestValidate_QuotedMetacharactersAreInert(t *testing.T) {
	assert.Nil(t, Validate(`echo 'a; b | c && d > e'`))
	assert.Nil(t, Validate(`echo "a; b"`))
}

func TestValidate_ExecutableNameIsNotAPathMatch(t *testing.T) {
	// The sensitive-path screen applies to arguments only.
	assert.Nil(t, Validate("/opt/procmon --version"))
}

func TestValidateAllowlisted(t *testing.T) {
	t.Run("default allowlist", func(t *testing.T) {
		assert.Nil(t, ValidateAllowlisted("git log --oneline", nil))
		assert.Nil(t, ValidateAllowlisted("/usr/bin/git status", nil))

		rej := ValidateAllowlisted("curl http://example.com", nil)
		require.NotNil(t, rej)
		assert.Equal(t, RejectNotAllowlisted, rej.Category)
		assert.Contains(t, rej.Message, "curl")
	})

	t.Run("custom allowlist", func(t *testing.T) {
		assert.Nil(t, ValidateAllowlisted("mytool run", []string{"mytool"}))
		rej := ValidateAllowlisted("git status", []string{"mytool"})
		require.NotNil(t, rej)
		assert.Equal(t, RejectNotAllowlisted, rej.Category)
	})

	t.Run("unsafe command rejected before allowlist check", func(t *testing.T) {
		rej := ValidateAllowlisted("git status; rm -rf /", []string{"git"})
		require.NotNil(t, rej)
		assert.Equal(t, RejectChaining, rej.Category)
	})
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"echo hello", []string{"echo", "hello"}},
		{"echo 'hello world'", []string{"echo", "hello world"}},
		{`echo "hello world"`, []string{"echo", "hello world"}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{"echo ''", []string{"echo", ""}},
		{`echo "a 'b' c"`, []string{"echo", "a 'b' c"}},
		{`echo 'a "b" c'`, []string{"echo", `a "b" c`}},
		{`echo "es\"caped"`, []string{"echo", `es"caped`}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`mixed'quo'"ting"`, []string{"mixedquoting"}},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, rej := Tokenize(tc.in)
			require.Nil(t, rej)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTokenize_UnclosedQuote(t *testing.T) {
	for _, in := range []string{"echo 'oops", `echo "oops`, `echo 'a'\''`} {
		tokens, rej := Tokenize(in)
		require.NotNil(t, rej, "input %q", in)
		assert.Equal(t, RejectUnclosedQuote, rej.Category)
		assert.Nil(t, tokens, "no partial token list on malformed quoting")
	}
}

func TestEscapePosix_RoundTrip(t *testing.T) {
	for _, x := range []string{
		"simple",
		"",
		"two words",
		"it's",
		"'' ''",
		`back\slash`,
		`a"b`,
		"semi;colons && pipes | here",
		"$(sub) `tick` ${PATH:-x}",
		"trailing space ",
		"tab\tseparated",
		"unicode: héllo wörld",
	} {
		t.Run(x, func(t *testing.T) {
			tokens, rej := Tokenize(EscapePosix(x))
			require.Nil(t, rej)
			require.Equal(t, []string{x}, tokens)
		})
	}
}

func TestEscapeWindows(t *testing.T) {
	assert.Equal(t, `"plain"`, EscapeWindows("plain"))
	assert.Equal(t, `"a ^& b"`, EscapeWindows("a & b"))
	assert.Equal(t, `"100^%"`, EscapeWindows("100%"))
	assert.Equal(t, `"say \"hi\""`, EscapeWindows(`say "hi"`))
	assert.Equal(t, `"a^|b^<c^>d^^e"`, EscapeWindows("a|b<c>d^e"))
}
