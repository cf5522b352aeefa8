package interpreters

import (
	"context"
	"fmt"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/env"
	"src.sniprun.dev/pkg/replfifo"
)

const (
	jsName     = "JS_original"
	jsFifoName = "JS_fifo"
	tsName     = "TypeScript_original"
)

var jsDescriptor = &backend.Descriptor{
	Name:               jsName,
	Filetypes:          []string{"javascript", "js"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "node",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, jsName, "js", "node")
		s.short = backend.LineWith("Error")
		return s
	},
}

// JSFifo sends JavaScript snippets to a persistent node REPL.
type JSFifo struct{ *script }

var jsFifoDescriptor = &backend.Descriptor{
	Name:          jsFifoName,
	Filetypes:     []string{"javascript", "js"},
	MaxLevel:      backend.Bloc,
	HasREPL:       true,
	REPLByDefault: true,
	Program:       "node",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, jsFifoName, "js", "node")
		s.short = backend.LineWith("Error")
		return &JSFifo{s}
	},
}

// The REPL prompt. It is distinct from anything a snippet would print, so
// that output starting with "> " survives the prompt filter.
const jsPrompt = "sniprun_prompt> "

var jsREPLStart = fmt.Sprintf("require('repl').start({prompt: %q, ignoreUndefined: true})", jsPrompt)

func (j *JSFifo) BuildREPL(ctx context.Context) error { return nil }

func (j *JSFifo) ExecuteREPL(ctx context.Context) (string, error) {
	prog, args := j.Program("interpreter", "node")
	k := replfifo.Kernel{
		Name:    j.Name,
		Program: prog,
		Args:    append(args, "-e", jsREPLStart),
		Env:     []string{env.NODE_NO_READLINE + "=1"},
		Filter: replfifo.Filter{
			StdoutPrompts: []string{jsPrompt},
			Continuations: []string{"... "},
		},
		// The node REPL reports exceptions on stdout.
		ErrorMarkers: []string{"Uncaught"},
	}
	return runKernel(ctx, &j.Base, k, wrapJSREPL)
}

func wrapJSREPL(code string, id int) string {
	return fmt.Sprintf("console.log(%[1]q); console.error(%[1]q);\n%[2]s\nconsole.log(%[3]q); console.error(%[3]q);\n",
		replfifo.StartMarker(id), code, replfifo.EndMarker(id))
}

var tsDescriptor = &backend.Descriptor{
	Name:               tsName,
	Filetypes:          []string{"typescript", "ts"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "ts-node",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, tsName, "ts", "ts-node")
		s.short = backend.LineWith("Error")
		return s
	},
}
