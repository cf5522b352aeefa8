package backend

import (
	"strings"

	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

// FirstLine returns the first non-blank line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r")
		}
	}
	return ""
}

// LastLine returns the last non-blank line of s.
func LastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return strings.TrimRight(lines[i], "\r")
		}
	}
	return ""
}

// LineWith returns a shortener picking the first line of a message that
// contains one of subs, or its last non-blank line if none does.
func LineWith(subs ...string) func(string) string {
	return func(s string) string {
		for _, line := range strings.Split(s, "\n") {
			for _, sub := range subs {
				if strings.Contains(line, sub) {
					return strings.TrimSpace(line)
				}
			}
		}
		return LastLine(s)
	}
}

// Shorten returns msg unchanged in Long mode and short(msg) in Short mode.
// A nil short picks the last non-blank line.
func Shorten(msg string, mode data.TruncateMode, short func(string) string) string {
	if mode == data.Long {
		return strings.TrimRight(msg, "\n")
	}
	if short == nil {
		short = LastLine
	}
	return short(msg)
}

// RuntimeFailure builds the RuntimeError for a failed execution, using stderr
// or stdout when stderr is empty.
func (b *Base) RuntimeFailure(out Output, short func(string) string) error {
	msg := out.Stderr
	if strings.TrimSpace(msg) == "" {
		msg = out.Stdout
	}
	return sniperr.RuntimeError(Shorten(msg, b.ErrorTruncate(), short))
}

// CompileFailure builds the CompilationError for a failed build.
func (b *Base) CompileFailure(out Output, short func(string) string) error {
	msg := out.Stderr
	if strings.TrimSpace(msg) == "" {
		msg = out.Stdout
	}
	return sniperr.CompilationError(Shorten(msg, b.ErrorTruncate(), short))
}

// Executed converts the Output of an execution to the stage result: stdout on
// success, RuntimeFailure otherwise.
func (b *Base) Executed(out Output, err error, short func(string) string) (string, error) {
	if err != nil {
		return "", sniperr.InterpreterError(err.Error())
	}
	if !out.Success() {
		return "", b.RuntimeFailure(out, short)
	}
	return out.Stdout, nil
}
