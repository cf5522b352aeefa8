package interpreters

import (
	"context"
	"fmt"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/replfifo"
	"src.sniprun.dev/pkg/sniperr"
)

const bashName = "Bash_original"

// Bash runs shell snippets inside a function, so that "return" and "local"
// work, and forwards CLI arguments to it.
type Bash struct {
	*script
}

var bashDescriptor = &backend.Descriptor{
	Name:               bashName,
	Filetypes:          []string{"bash", "shell", "sh"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	HasREPL:            true,
	Program:            "bash",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, bashName, "sh", "bash")
		s.wrap = wrapBash
		return &Bash{script: s}
	},
}

func wrapBash(code string) string {
	if backend.ContainsEntry(code, "sniprun_main()", "#") {
		return code
	}
	return "sniprun_main(){\n" + code + "\n}; sniprun_main \"$@\"\n"
}

// CheckCLIArgs accepts arguments in single-shot mode only. REPL requests are
// evaluated in the kernel's shell, which has no positional parameters of its
// own.
func (b *Bash) CheckCLIArgs() error {
	if len(b.Data.CLIArgs) > 0 && bashDescriptor.UsesREPL(b.Data) {
		return sniperr.InterpreterLimitationError("cli_args are not supported in REPL mode")
	}
	return nil
}

func (b *Bash) kernel() replfifo.Kernel {
	prog, args := b.Program("interpreter", "bash")
	return replfifo.Kernel{Name: b.Name, Program: prog, Args: args}
}

// AddBoilerplateREPL keeps the code unwrapped, so that its variables and
// functions stay defined in the kernel.
func (b *Bash) AddBoilerplateREPL() error { return nil }

// BuildREPL has nothing to build; the code goes to the kernel as is.
func (b *Bash) BuildREPL(ctx context.Context) error { return nil }

func (b *Bash) ExecuteREPL(ctx context.Context) (string, error) {
	return runKernel(ctx, &b.Base, b.kernel(), wrapBashREPL)
}

func wrapBashREPL(code string, id int) string {
	return fmt.Sprintf(`echo %[1]s; echo %[1]s >&2
eval "$(cat <<'SNIPRUN_EOF'
%[2]s
SNIPRUN_EOF
)"
echo %[3]s; echo %[3]s >&2
`, replfifo.StartMarker(id), code, replfifo.EndMarker(id))
}
