//go:build !windows

package proc

import (
	"os"
	"strings"
)

// localeEncodingName extracts the charset from locale environment
// variables, e.g. "en_US.UTF-8" yields "UTF-8". LC_ALL wins over LC_CTYPE
// wins over LANG, matching glibc resolution order.
func localeEncodingName() string {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if dot := strings.IndexByte(v, '.'); dot >= 0 {
			charset := v[dot+1:]
			if at := strings.IndexByte(charset, '@'); at >= 0 {
				charset = charset[:at]
			}
			return charset
		}
		return ""
	}
	return ""
}
