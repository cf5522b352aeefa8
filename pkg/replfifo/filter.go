package replfifo

import (
	"regexp"
	"strings"
)

// Filter removes interpreter noise from the log files before responses are
// extracted.
type Filter struct {
	// Primary prompts, stripped repeatedly from the start of each line.
	StdoutPrompts []string
	StderrPrompts []string
	// Continuation prompts. The interpreter prints them after a primary
	// prompt while it reads a multi-line statement, so they are only stripped
	// after a primary prompt; output of the user's own starting with one is
	// kept.
	Continuations []string
	// Lines that are dropped when equal to one of these after trimming.
	NoValue []string
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string { return ansiEscape.ReplaceAllString(s, "") }

// Stdout applies the filter chain to the stdout log.
func (f Filter) Stdout(s string) string { return f.apply(s, f.StdoutPrompts) }

// Stderr applies the filter chain to the stderr log.
func (f Filter) Stderr(s string) string { return f.apply(s, f.StderrPrompts) }

func (f Filter) apply(s string, prompts []string) string {
	s = strings.ReplaceAll(StripANSI(s), "\r\n", "\n")
	lines := strings.SplitAfter(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = f.stripPrompts(line, prompts)
		if f.isNoValue(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "")
}

func (f Filter) stripPrompts(line string, prompts []string) string {
	line, ok := trimRun(line, prompts)
	if !ok {
		return line
	}
	line, _ = trimRun(line, f.Continuations)
	return line
}

// Strips any run of the prefixes from line and reports whether there was one.
func trimRun(line string, prefixes []string) (string, bool) {
	trimmed := false
	for {
		stripped := false
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(line, p) {
				line = line[len(p):]
				stripped, trimmed = true, true
			}
		}
		if !stripped {
			return line, trimmed
		}
	}
}

func (f Filter) isNoValue(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, nv := range f.NoValue {
		if trimmed == nv {
			return true
		}
	}
	return false
}
