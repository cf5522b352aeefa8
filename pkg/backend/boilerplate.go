package backend

import (
	"strings"
	"unicode"
)

// ContainsEntry reports whether code already contains needle, comparing with
// all whitespace removed and ignoring lines that start with one of the
// comment prefixes.
func ContainsEntry(code, needle string, commentPrefixes ...string) bool {
	n := removeSpace(needle)
	if n == "" {
		return true
	}
	var sb strings.Builder
	for _, line := range strings.Split(code, "\n") {
		if isComment(line, commentPrefixes) {
			continue
		}
		sb.WriteString(removeSpace(line))
	}
	return strings.Contains(sb.String(), n)
}

func isComment(line string, prefixes []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func removeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Indent prefixes every non-empty line of code.
func Indent(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
