package interpreters

import (
	"context"
	"path/filepath"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

const genericName = "Generic"

// Generic runs any language configured entirely through options: the
// supported_filetypes, the file extension, an interpreter or a compiler with
// the name of the executable it produces, and text placed before and after
// the code.
type Generic struct {
	*script
	backend.AcceptCLIArgs
}

var genericDescriptor = &backend.Descriptor{
	Name:      genericName,
	Filetypes: []string{"generic"},
	MaxLevel:  backend.Bloc,
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		g := &Generic{}
		ext := strings.TrimPrefix(d.InterpreterOptions.Str(genericName, "extension", "txt"), ".")
		g.script = newScript(d, level, genericName, ext, "")
		return g
	},
}

func (g *Generic) AddBoilerplate() error {
	if data.IsBlank(g.Code) {
		return nil
	}
	var parts []string
	// Boilerplate the code already holds is not added again.
	if pre := g.Str("boilerplate_pre", ""); pre != "" && !backend.ContainsEntry(g.Code, pre) {
		parts = append(parts, pre)
	}
	parts = append(parts, g.Code)
	if post := g.Str("boilerplate_post", ""); post != "" && !backend.ContainsEntry(g.Code, post) {
		parts = append(parts, post)
	}
	g.Code = strings.Join(parts, "\n")
	return nil
}

func (g *Generic) Build(ctx context.Context) error {
	if err := g.script.Build(ctx); err != nil {
		return err
	}
	compiler, args := g.Program("compiler", "")
	if compiler == "" {
		return nil
	}
	out, err := backend.RunCommand(ctx, compiler, append(args, g.path), backend.Opts{Dir: g.Dir})
	if err != nil {
		return sniperr.InterpreterError(err.Error())
	}
	if !out.Success() {
		return g.CompileFailure(out, nil)
	}
	return nil
}

func (g *Generic) Execute(ctx context.Context) (string, error) {
	if compiler, _ := g.Program("compiler", ""); compiler != "" {
		exe := g.Str("exe_name", "main")
		if !filepath.IsAbs(exe) {
			exe = g.ScratchPath(exe)
		}
		out, err := backend.RunCommand(ctx, exe, g.Data.CLIArgs, g.RunOpts())
		return g.Executed(out, err, nil)
	}
	if interpreter, _ := g.Program("interpreter", ""); interpreter == "" {
		return "", sniperr.InterpreterLimitationError("Generic needs an interpreter or a compiler option")
	}
	return g.script.Execute(ctx)
}
