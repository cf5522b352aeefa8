// Package data defines the Data-Holder, the per-request bundle of selection,
// configuration and shared handles passed from the event loop to the
// dispatcher.
package data

import (
	"context"
	"strings"

	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/store"
)

// Range is an inclusive 1-based line span.
type Range = sniperr.Range

// Editor is the capability to read buffer lines and issue editor commands.
type Editor interface {
	// Lines returns the buffer lines in the inclusive 1-based range. An end
	// of -1 means the last line of the buffer.
	Lines(ctx context.Context, start, end int) ([]string, error)
	// Command runs an editor command.
	Command(ctx context.Context, cmd string) error
}

// Display is a set of output channels. Interpretation is left to the editor.
type Display []string

// Holder is the per-request bundle. The dispatcher treats it as read-only;
// only the embedded-language router rewrites Filetype and CurrentBloc, on its
// own clone.
type Holder struct {
	Filetype    string
	CurrentLine string
	CurrentBloc string
	Range       Range

	Filepath       string
	ProjectRoot    string
	WorkDir        string
	SniprunRootDir string

	SelectedInterpreters []string
	REPLEnabled          []string
	REPLDisabled         []string
	InterpreterOptions   Options
	// Lines above which the "auto" error truncation reports long errors.
	ErrorTruncateThreshold int

	CLIArgs []string

	Display           Display
	DisplayNoOutput   Display
	ReturnMessageType string

	// Identifies the editor process REPL sessions are keyed to.
	EditorPID int

	Editor Editor
	// Nil when the request must not use REPL state.
	Store *store.Store

	// Set by the dispatcher before running a backend. Container backends use
	// it to run the code they extracted.
	Redispatch func(ctx context.Context, d *Holder) (string, error)
	// Set when the Holder has been rewritten by a container backend.
	InContainer bool
}

// DefaultErrorTruncateThreshold is used when ErrorTruncateThreshold is zero.
const DefaultErrorTruncateThreshold = 4

// Clone returns a copy of d that can be mutated without affecting d. Shared
// handles are kept.
func (d *Holder) Clone() *Holder {
	c := *d
	c.SelectedInterpreters = cloneStrings(d.SelectedInterpreters)
	c.REPLEnabled = cloneStrings(d.REPLEnabled)
	c.REPLDisabled = cloneStrings(d.REPLDisabled)
	c.CLIArgs = cloneStrings(d.CLIArgs)
	c.Display = cloneStrings(d.Display)
	c.DisplayNoOutput = cloneStrings(d.DisplayNoOutput)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Validate checks the invariants of the Holder.
func (d *Holder) Validate() error {
	if d.Range.Start < 1 || d.Range.End < d.Range.Start {
		return sniperr.InternalError("invalid range " + d.Range.String())
	}
	return nil
}

// IsSelected reports whether the named backend is an explicit user choice.
func (d *Holder) IsSelected(name string) bool { return contains(d.SelectedInterpreters, name) }

// IsREPLEnabled reports whether REPL mode was requested for the backend.
func (d *Holder) IsREPLEnabled(name string) bool { return contains(d.REPLEnabled, name) }

// IsREPLDisabled reports whether REPL mode was disabled for the backend.
func (d *Holder) IsREPLDisabled(name string) bool { return contains(d.REPLDisabled, name) }

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// BufferLines reads lines from the editor, failing with FetchCodeError when
// the Holder has no editor capability.
func (d *Holder) BufferLines(ctx context.Context, start, end int) ([]string, error) {
	if d.Editor == nil {
		return nil, sniperr.FetchCodeError()
	}
	lines, err := d.Editor.Lines(ctx, start, end)
	if err != nil {
		logger.Printf("cannot read lines %d-%d: %v", start, end, err)
		return nil, sniperr.FetchCodeError()
	}
	return lines, nil
}

// IsBlank reports whether s only contains whitespace.
func IsBlank(s string) bool { return strings.TrimSpace(s) == "" }
