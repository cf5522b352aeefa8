package interpreters

import (
	"context"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

// compiled is a backend that writes the code to a source file, compiles it
// and runs the resulting binary.
type compiled struct {
	backend.Base
	src string
	// Default for the compiler option; may carry arguments.
	compiler string
	// Arguments following the configured compiler command.
	compileArgs func(src, bin string) []string
	wrap        func(code string) string
	// Shorten compilation and runtime errors.
	compileShort, short func(string) string
	// Runs the built artifact; the default runs bin with the CLI arguments.
	run func(ctx context.Context) (backend.Output, error)
	bin string
}

func newCompiled(d *data.Holder, level backend.Level, name, src, compiler string) *compiled {
	c := &compiled{Base: backend.NewBase(d, level, name), src: src, compiler: compiler}
	c.compileArgs = func(src, bin string) []string { return []string{src, "-o", bin} }
	return c
}

func (c *compiled) AddBoilerplate() error {
	if c.wrap != nil && !data.IsBlank(c.Code) {
		c.Code = c.wrap(c.Code)
	}
	return nil
}

func (c *compiled) Build(ctx context.Context) error {
	if data.IsBlank(c.Code) {
		return sniperr.UnsufficientSupportLevelError()
	}
	src, err := c.WriteScratch(c.src, c.Code)
	if err != nil {
		return err
	}
	c.bin = c.ScratchPath("main")
	prog, args := c.Program("compiler", c.compiler)
	args = append(args, c.compileArgs(src, c.bin)...)
	out, err := backend.RunCommand(ctx, prog, args, backend.Opts{Dir: c.Dir})
	if err != nil {
		return sniperr.InterpreterError(err.Error())
	}
	if !out.Success() {
		return c.CompileFailure(out, c.compileShort)
	}
	return nil
}

func (c *compiled) Execute(ctx context.Context) (string, error) {
	var out backend.Output
	var err error
	if c.run != nil {
		out, err = c.run(ctx)
	} else {
		out, err = backend.RunCommand(ctx, c.bin, c.Data.CLIArgs, c.RunOpts())
	}
	return c.Executed(out, err, c.short)
}
