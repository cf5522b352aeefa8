package interpreters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/env"
	"src.sniprun.dev/pkg/fsutil"
	"src.sniprun.dev/pkg/replfifo"
	"src.sniprun.dev/pkg/sniperr"
)

const (
	python3Name     = "Python3_original"
	python3FifoName = "Python3_fifo"
)

// Python3 runs Python snippets with the imports of the buffer they use. In
// REPL mode, the code goes to a persistent interpreter and imports are only
// sent once per kernel.
type Python3 struct {
	*script
	imports []string
}

var python3Descriptor = &backend.Descriptor{
	Name:               python3Name,
	Filetypes:          []string{"python", "python3"},
	MaxLevel:           backend.Import,
	DefaultForFiletype: true,
	HasREPL:            true,
	Program:            "python3",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		return newPython3(d, level, python3Name)
	},
}

var python3FifoDescriptor = &backend.Descriptor{
	Name:          python3FifoName,
	Filetypes:     []string{"python", "python3"},
	MaxLevel:      backend.Import,
	HasREPL:       true,
	REPLByDefault: true,
	Program:       "python3",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		return newPython3(d, level, python3FifoName)
	},
}

func newPython3(d *data.Holder, level backend.Level, name string) *Python3 {
	p := &Python3{script: newScript(d, level, name, "py", "")}
	p.interpreter = p.defaultInterpreter()
	return p
}

// The python3 of the first configured virtual environment that has one, else
// the one of $VIRTUAL_ENV, else python3 from $PATH.
func (p *Python3) defaultInterpreter() string {
	venvs := p.Array("venv", nil)
	if v := os.Getenv(env.VIRTUAL_ENV); v != "" {
		venvs = append(venvs, v)
	}
	for _, venv := range venvs {
		venv = fsutil.ExpandTilde(venv)
		if !filepath.IsAbs(venv) && p.Data.ProjectRoot != "" {
			venv = filepath.Join(p.Data.ProjectRoot, venv)
		}
		if exe := filepath.Join(venv, "bin", "python3"); fsutil.Available(exe) {
			return exe
		}
	}
	return "python3"
}

func (p *Python3) FetchCode(ctx context.Context) error {
	if err := p.Base.FetchCode(ctx); err != nil {
		return err
	}
	imports, err := p.FetchImports(ctx, backend.PythonImports, "")
	p.imports = imports
	return err
}

func (p *Python3) AddBoilerplate() error {
	if len(p.imports) > 0 && !data.IsBlank(p.Code) {
		p.Code = strings.Join(p.imports, "\n") + "\n" + p.Code
	}
	return nil
}

// Fallback runs the code again without the discovered imports, which may be
// the cause of the failure.
func (p *Python3) Fallback(ctx context.Context, err error) (string, bool) {
	if len(p.imports) == 0 || sniperr.KindOf(err) != sniperr.Runtime {
		return "", false
	}
	logger.Printf("%s: retrying without imports after %v", p.Name, err)
	retry := newPython3(p.Data, backend.Bloc, p.Name)
	out, err := backend.Run(ctx, retry)
	return out, err == nil
}

func (p *Python3) kernel() replfifo.Kernel {
	prog, args := p.Program("interpreter", p.interpreter)
	return replfifo.Kernel{
		Name:    p.Name,
		Program: prog,
		Args:    append(args, "-i", "-q", "-u"),
		Filter:  replfifo.Filter{StderrPrompts: []string{">>> "}, Continuations: []string{"... "}},
	}
}

func (p *Python3) session() *replfifo.Session { return replfifo.NewSession(p.Data, p.kernel()) }

// FetchCodeREPL discovers the imports the kernel has not run yet.
func (p *Python3) FetchCodeREPL(ctx context.Context) error {
	if err := p.Base.FetchCode(ctx); err != nil {
		return err
	}
	imports, err := p.FetchImports(ctx, backend.PythonImports, p.session().Known())
	p.imports = imports
	return err
}

func (p *Python3) BuildREPL(ctx context.Context) error { return nil }

func (p *Python3) ExecuteREPL(ctx context.Context) (string, error) {
	if data.IsBlank(p.Code) {
		return "", sniperr.UnsufficientSupportLevelError()
	}
	sess := p.session()
	out, err := sess.Run(ctx, func(id int) string { return wrapPythonREPL(p.Code, id) })
	if sent(err) {
		if rerr := sess.Record(p.imports); rerr != nil {
			logger.Printf("%s: cannot record imports: %v", p.Name, rerr)
		}
	}
	return out, shortenREPL(&p.Base, err)
}

// The code is compiled as a whole, so that blocks need no trailing blank line
// and a syntax error does not leave the interpreter inside a block.
func wrapPythonREPL(code string, id int) string {
	return fmt.Sprintf(`import sys as _sniprun_sys; print(%[1]q); print(%[1]q, file=_sniprun_sys.stderr)
try:
    exec(compile(%[2]s, "<sniprun>", "exec"), globals())
except BaseException:
    import traceback as _sniprun_tb; _sniprun_tb.print_exc()

print(%[3]q); print(%[3]q, file=_sniprun_sys.stderr)
`, replfifo.StartMarker(id), strconv.Quote(code), replfifo.EndMarker(id))
}
