package interpreters

import (
	"context"
	"fmt"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/replfifo"
)

const ocamlName = "OCaml_fifo"

// OCaml runs OCaml phrases, in a persistent toplevel by default.
type OCaml struct{ *script }

var ocamlDescriptor = &backend.Descriptor{
	Name:               ocamlName,
	Filetypes:          []string{"ocaml"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	HasREPL:            true,
	REPLByDefault:      true,
	Program:            "ocaml",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, ocamlName, "ml", "ocaml")
		s.short = backend.LineWith("Error", "Exception")
		return &OCaml{s}
	},
}

func (o *OCaml) BuildREPL(ctx context.Context) error { return nil }

func (o *OCaml) ExecuteREPL(ctx context.Context) (string, error) {
	prog, args := o.Program("interpreter", "ocaml")
	k := replfifo.Kernel{
		Name:    o.Name,
		Program: prog,
		Args:    append(args, "-noprompt", "-nopromptcont"),
		Filter:  replfifo.Filter{NoValue: []string{"- : unit = ()"}},
		// The toplevel reports errors on stdout.
		ErrorMarkers: []string{"Error:", "Exception:"},
	}
	return runKernel(ctx, &o.Base, k, wrapOCamlREPL)
}

func wrapOCamlREPL(code string, id int) string {
	code = strings.TrimRight(code, " \t\n")
	if !strings.HasSuffix(code, ";;") {
		code += ";;"
	}
	return fmt.Sprintf("print_endline %[1]q;; prerr_endline %[1]q;;\n%[2]s\nprint_endline %[3]q;; prerr_endline %[3]q;;\n",
		replfifo.StartMarker(id), code, replfifo.EndMarker(id))
}
