// Package backend defines the contract every execution backend implements,
// the static descriptor used by the registry, and the staged pipeline that
// drives a backend through fetch, boilerplate, build and execute.
package backend

import (
	"context"

	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/sniperr"
)

var logger = logutil.GetLogger("[backend] ")

// Backend is a backend instantiated for one request. The stages are called in
// order; any of them may fail.
type Backend interface {
	// FetchCode populates the code from the selection, according to the
	// support level.
	FetchCode(ctx context.Context) error
	// AddBoilerplate wraps the code into a form Build can consume. It must be
	// idempotent with respect to code that already contains the entry point.
	AddBoilerplate() error
	// Build writes the code to the scratch path and compiles it if needed.
	Build(ctx context.Context) error
	// Execute runs the built artifact and returns its output.
	Execute(ctx context.Context) (string, error)
}

// The REPL twins of the stages. A backend implements those it overrides; the
// non-REPL stage runs otherwise.

type REPLFetcher interface {
	FetchCodeREPL(ctx context.Context) error
}

type REPLBoilerplater interface {
	AddBoilerplateREPL() error
}

type REPLBuilder interface {
	BuildREPL(ctx context.Context) error
}

type REPLExecutor interface {
	ExecuteREPL(ctx context.Context) (string, error)
}

// Fallbacker is implemented by backends that can recover from a single-shot
// failure. Fallback returns the replacement output and true, or false to
// leave the error intact.
type Fallbacker interface {
	Fallback(ctx context.Context, err error) (string, bool)
}

// CLIArgsChecker is implemented by backends that accept command-line
// arguments for the executed code.
type CLIArgsChecker interface {
	CheckCLIArgs() error
}

// Descriptor is the static description of a backend.
type Descriptor struct {
	Name      string
	Filetypes []string
	MaxLevel  Level
	// Whether the backend is picked over others for its filetypes.
	DefaultForFiletype bool
	HasREPL            bool
	REPLByDefault      bool
	// Whether the backend extracts code from a container document and
	// dispatches it again.
	Container bool
	// The program the backend runs by default, reported by info.
	Program string
	// New instantiates the backend for one request.
	New func(d *data.Holder, level Level) Backend
}

// Matches reports whether the descriptor handles the filetype, either
// natively or through the use_on_filetypes or supported_filetypes options.
func (desc *Descriptor) Matches(d *data.Holder) bool {
	if d.Filetype == "" {
		return false
	}
	for _, ft := range desc.Filetypes {
		if ft == d.Filetype {
			return true
		}
	}
	for _, key := range []string{"use_on_filetypes", "supported_filetypes"} {
		for _, ft := range d.InterpreterOptions.Array(desc.Name, key, nil) {
			if ft == d.Filetype {
				return true
			}
		}
	}
	return false
}

// UsesREPL reports whether the backend runs in REPL mode for the request.
func (desc *Descriptor) UsesREPL(d *data.Holder) bool {
	if !desc.HasREPL {
		return false
	}
	return (desc.REPLByDefault || d.IsREPLEnabled(desc.Name)) && !d.IsREPLDisabled(desc.Name)
}

// CheckCLIArgs runs the backend's CLIArgsChecker, or rejects non-empty
// arguments if the backend does not implement it.
func CheckCLIArgs(b Backend, d *data.Holder) error {
	if c, ok := b.(CLIArgsChecker); ok {
		return c.CheckCLIArgs()
	}
	if len(d.CLIArgs) > 0 {
		return sniperr.InterpreterLimitationError("this interpreter does not accept command-line arguments")
	}
	return nil
}

// Run drives b through the single-shot pipeline.
func Run(ctx context.Context, b Backend) (string, error) {
	if err := b.FetchCode(ctx); err != nil {
		return "", err
	}
	if err := b.AddBoilerplate(); err != nil {
		return "", err
	}
	if err := b.Build(ctx); err != nil {
		return "", err
	}
	return b.Execute(ctx)
}

// RunREPL drives b through the REPL pipeline, using the REPL twin of each
// stage when b implements it.
func RunREPL(ctx context.Context, b Backend) (string, error) {
	var err error
	if f, ok := b.(REPLFetcher); ok {
		err = f.FetchCodeREPL(ctx)
	} else {
		err = b.FetchCode(ctx)
	}
	if err != nil {
		return "", err
	}
	if f, ok := b.(REPLBoilerplater); ok {
		err = f.AddBoilerplateREPL()
	} else {
		err = b.AddBoilerplate()
	}
	if err != nil {
		return "", err
	}
	if f, ok := b.(REPLBuilder); ok {
		err = f.BuildREPL(ctx)
	} else {
		err = b.Build(ctx)
	}
	if err != nil {
		return "", err
	}
	if f, ok := b.(REPLExecutor); ok {
		return f.ExecuteREPL(ctx)
	}
	return b.Execute(ctx)
}
