package proc

import (
	"strings"

	"drover/internal/logging"

	"golang.org/x/text/encoding/ianaindex"
)

// detectEncoding resolves the subprocess output encoding once per run:
// locale environment on POSIX, active code page on Windows. Anything that
// fails to resolve through the IANA index falls back to UTF-8.
func detectEncoding() string {
	name := localeEncodingName()
	if name == "" {
		return "utf-8"
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		logging.ProcDebug("unknown encoding %q, defaulting to utf-8", name)
		return "utf-8"
	}
	return strings.ToLower(name)
}

// decode converts raw subprocess bytes to a string using the detected
// encoding. UTF-8 (and anything unresolvable) passes through unchanged.
func decode(raw []byte, encodingName string) string {
	if encodingName == "" || encodingName == "utf-8" || encodingName == "utf8" {
		return string(raw)
	}

	enc, err := ianaindex.IANA.Encoding(encodingName)
	if err != nil || enc == nil {
		return string(raw)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		logging.ProcDebug("decode via %s failed, using raw bytes: %v", encodingName, err)
		return string(raw)
	}
	return string(decoded)
}
