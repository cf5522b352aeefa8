package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

// Base holds the per-request state shared by most backends and implements
// the default FetchCode stage. Concrete backends embed it.
type Base struct {
	Data  *data.Holder
	Level Level
	Name  string
	// The code being run; populated by FetchCode and rewritten by
	// AddBoilerplate.
	Code string
	// Per-backend scratch directory, <work_dir>/<slug>.
	Dir string
}

// NewBase returns a Base for the named backend.
func NewBase(d *data.Holder, level Level, name string) Base {
	return Base{
		Data:  d,
		Level: level,
		Name:  name,
		Dir:   filepath.Join(d.WorkDir, Slug(name)),
	}
}

// Slug returns the directory name used for a backend's artifacts.
func Slug(name string) string { return strings.ToLower(name) }

// FetchCode populates Code from the block selection if it is non-blank and the
// level allows blocks, else from the current line if the level allows lines.
func (b *Base) FetchCode(ctx context.Context) error {
	b.Code = ""
	switch {
	case !data.IsBlank(b.Data.CurrentBloc) && b.Level >= Bloc:
		b.Code = b.Data.CurrentBloc
	case !data.IsBlank(b.Data.CurrentLine) && b.Level >= Line:
		b.Code = b.Data.CurrentLine
	}
	return nil
}

// Str looks up a string option of the backend.
func (b *Base) Str(key, def string) string {
	return b.Data.InterpreterOptions.Str(b.Name, key, def)
}

// Array looks up a list option of the backend.
func (b *Base) Array(key string, def []string) []string {
	return b.Data.InterpreterOptions.Array(b.Name, key, def)
}

// Bool looks up a boolean option of the backend.
func (b *Base) Bool(key string, def bool) bool {
	return b.Data.InterpreterOptions.Bool(b.Name, key, def)
}

// Program returns the configured program for the given option key ("compiler"
// or "interpreter"), split into the program and prepended arguments.
func (b *Base) Program(key, def string) (string, []string) {
	return data.SplitCommand(b.Str(key, def))
}

// ErrorTruncate returns the error truncation mode for the backend.
func (b *Base) ErrorTruncate() data.TruncateMode {
	return b.Data.ErrorTruncate(b.Name)
}

// ScratchPath returns the path of a file in the backend's scratch directory.
func (b *Base) ScratchPath(name string) string { return filepath.Join(b.Dir, name) }

// WriteScratch writes content to a file in the scratch directory, creating the
// directory if needed, and returns the path.
func (b *Base) WriteScratch(name, content string) (string, error) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return "", sniperr.InternalError("cannot create work directory: " + err.Error())
	}
	path := b.ScratchPath(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", sniperr.InternalError("cannot write " + path + ": " + err.Error())
	}
	return path, nil
}

// RunOpts returns the command options shared by all executions of the backend:
// the scratch directory as working directory and the pty option.
func (b *Base) RunOpts() Opts {
	return Opts{Dir: b.Dir, PTY: b.Bool("pty", false)}
}

// AcceptCLIArgs is embedded by backends that forward cli_args to the executed
// code.
type AcceptCLIArgs struct{}

func (AcceptCLIArgs) CheckCLIArgs() error { return nil }
