//go:build windows

package proc

import (
	"fmt"
	"syscall"
)

// Known console code pages mapped to IANA encoding names. Anything not
// listed resolves as "cp<N>", which the IANA index handles for most
// single-byte pages.
var codePageNames = map[uint32]string{
	437:   "IBM437",
	850:   "IBM850",
	852:   "IBM852",
	866:   "IBM866",
	932:   "Shift_JIS",
	936:   "GBK",
	949:   "EUC-KR",
	950:   "Big5",
	1250:  "windows-1250",
	1251:  "windows-1251",
	1252:  "windows-1252",
	1253:  "windows-1253",
	1254:  "windows-1254",
	65001: "UTF-8",
}

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleOutputCP = kernel32.NewProc("GetConsoleOutputCP")
)

// localeEncodingName resolves the active console output code page.
func localeEncodingName() string {
	cp, _, _ := procGetConsoleOutputCP.Call()
	if cp == 0 {
		return ""
	}
	if name, ok := codePageNames[uint32(cp)]; ok {
		return name
	}
	return fmt.Sprintf("cp%d", cp)
}
