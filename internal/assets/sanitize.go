// Package assets implements the Source & Asset Store of spec §4.4:
// episode source-image selection, on-disk path sanitization, idempotent
// downloads, JPEG recompression, and font-file caching.
package assets

import "strings"

// illegalCharacters maps filesystem-illegal characters to safe
// replacements, ported directly from original_source modules/CleanPath.py
// so Windows- and POSIX-illegal names sanitize identically regardless of
// host OS.
var illegalCharacters = map[rune]string{
	'?':  "!",
	'<':  "",
	'>':  "",
	':':  " -",
	'"':  "",
	'|':  "",
	'*':  "-",
	'/':  "+",
	'\\': "+",
}

// SanitizeName replaces every filesystem-illegal character in name with
// its mapped replacement (spec §4.4). Applied to a single path component,
// never a full path — callers must sanitize each part separately so a
// legitimate path separator isn't itself mangled.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if repl, ok := illegalCharacters[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeParts sanitizes every path component independently and joins
// them back with sep, mirroring CleanPath.sanitize()'s per-part
// reconstruction (the root/drive component is left untouched by the
// caller by simply not passing it into parts).
func SanitizeParts(parts []string, sep string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = SanitizeName(p)
	}
	return strings.Join(out, sep)
}
