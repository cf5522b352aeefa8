package interpreters

import (
	"context"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

// script is a backend that writes the code to main.<ext> in its scratch
// directory and runs an interpreter on it.
type script struct {
	backend.Base
	ext string
	// Default for the interpreter option; may carry arguments.
	interpreter string
	// Arguments placed between the interpreter and the script path.
	args []string
	// Adds the boilerplate to non-blank code.
	wrap func(code string) string
	// Shortens runtime errors; nil picks the last line.
	short func(string) string
	path  string
}

func newScript(d *data.Holder, level backend.Level, name, ext, interpreter string) *script {
	return &script{Base: backend.NewBase(d, level, name), ext: ext, interpreter: interpreter}
}

func (s *script) AddBoilerplate() error {
	if s.wrap != nil && !data.IsBlank(s.Code) {
		s.Code = s.wrap(s.Code)
	}
	return nil
}

func (s *script) Build(ctx context.Context) error {
	if data.IsBlank(s.Code) {
		return sniperr.UnsufficientSupportLevelError()
	}
	path, err := s.WriteScratch("main."+s.ext, s.Code)
	s.path = path
	return err
}

func (s *script) command() (string, []string) {
	prog, args := s.Program("interpreter", s.interpreter)
	args = append(args, s.args...)
	args = append(args, s.path)
	return prog, append(args, s.Data.CLIArgs...)
}

func (s *script) Execute(ctx context.Context) (string, error) {
	prog, args := s.command()
	out, err := backend.RunCommand(ctx, prog, args, s.RunOpts())
	return s.Executed(out, err, s.short)
}
