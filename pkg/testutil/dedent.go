package testutil

import "strings"

// Dedent strips the indentation shared by all non-blank lines of text. A
// leading newline is dropped and whitespace-only lines become empty, so an
// indented raw string can spell out a buffer.
func Dedent(text string) string {
	lines := strings.Split(strings.TrimPrefix(text, "\n"), "\n")
	margin, found := "", false
	for i, line := range lines {
		body := strings.TrimLeft(line, " \t")
		if body == "" {
			lines[i] = ""
			continue
		}
		indent := line[:len(line)-len(body)]
		if !found {
			margin, found = indent, true
		} else {
			margin = commonPrefix(margin, indent)
		}
	}
	if margin != "" {
		for i, line := range lines {
			lines[i] = strings.TrimPrefix(line, margin)
		}
	}
	return strings.Join(lines, "\n")
}

// DedentLines is like Dedent, but returns the lines of the result. A trailing
// newline does not produce an empty last line.
func DedentLines(text string) []string {
	return strings.Split(strings.TrimSuffix(Dedent(text), "\n"), "\n")
}

func commonPrefix(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}
