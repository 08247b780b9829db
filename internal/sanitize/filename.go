// Package sanitize provides the attachment filename utility consumed by
// the mail store before persisting attachment records.
package sanitize

import (
	"strings"
	"unicode"
)

// fallbackName is used when sanitization leaves nothing usable.
const fallbackName = "attachment"

// maxFilenameLen bounds filenames to a length every common filesystem
// accepts.
const maxFilenameLen = 255

// reservedChars are stripped because they are path separators or
// reserved on at least one supported platform.
const reservedChars = `<>:"/\|?*`

// Filename returns a version of name that is safe to use as a plain
// file name: no path components, no traversal, no control or reserved
// characters. An empty or fully stripped name becomes "attachment".
func Filename(name string) string {
	// Keep only the last path element, whichever separator was used.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(reservedChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	name = b.String()

	// Leading dots hide files and enable "..". Trailing dots and spaces
	// are rejected on Windows.
	name = strings.Trim(name, ". ")

	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	if name == "" {
		return fallbackName
	}
	return name
}
