package runcli

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/env"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/must"
	"src.sniprun.dev/pkg/prog/progtest"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/testutil"
	"src.sniprun.dev/pkg/tt"
)

type funcBackend struct {
	d *data.Holder
	f func(d *data.Holder) (string, error)
}

func (*funcBackend) FetchCode(context.Context) error           { return nil }
func (*funcBackend) AddBoilerplate() error                     { return nil }
func (*funcBackend) Build(context.Context) error               { return nil }
func (b *funcBackend) Execute(context.Context) (string, error) { return b.f(b.d) }

func fn(name, filetype string, f func(d *data.Holder) (string, error)) *backend.Descriptor {
	return &backend.Descriptor{
		Name: name, Filetypes: []string{filetype}, MaxLevel: backend.Bloc,
		New: func(d *data.Holder, _ backend.Level) backend.Backend { return &funcBackend{d, f} },
	}
}

var testRegistry = []*backend.Descriptor{
	fn("echo", "txt", func(d *data.Holder) (string, error) { return d.CurrentBloc + "\n", nil }),
	fn("fail", "bad", func(*data.Holder) (string, error) { return "", sniperr.RuntimeError("boom") }),
	fn("split", "multi", func(d *data.Holder) (string, error) {
		if d.Range.End > d.Range.Start {
			var r sniperr.ReRunRanges
			for i := d.Range.End; i >= d.Range.Start; i-- {
				r = append(r, data.Range{Start: i, End: i})
			}
			return "", r
		}
		return d.CurrentBloc + "\n", nil
	}),
}

func setup(t *testing.T) string {
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, env.XDG_CONFIG_HOME, dir)
	t.Cleanup(func() { logutil.SetOutput(io.Discard) })
	return dir
}

func TestProgram(t *testing.T) {
	dir := setup(t)
	must.WriteFile("code.txt", "a\nb\n")
	must.WriteFile("code.bad", "x\n")
	must.WriteFile("list.multi", "1\n2\n3\n")
	workDir := filepath.Join(dir, "work")

	progtest.Test(t, &Program{registry: testRegistry},
		progtest.ThatSniprun("-run", "code.txt", "-workdir", workDir).WritesStdout("a\nb\n"),
		progtest.ThatSniprun("-run", "code.txt", "-workdir", workDir, "-range", "2").WritesStdout("b\n"),
		progtest.ThatSniprun("-run", "code.txt", "-workdir", workDir, "-json").
			WritesStdout(`{"range":[1,2],"kind":"Ok","message":"a\nb\n"}` + "\n"),
		progtest.ThatSniprun("-run", "-", "-filetype", "txt", "-workdir", workDir).
			WithStdin("from stdin\n").WritesStdout("from stdin\n"),
		progtest.ThatSniprun("-run", "list.multi", "-workdir", workDir).WritesStdout("3\n2\n1\n"),

		progtest.ThatSniprun("-run", "code.bad", "-workdir", workDir).
			ExitsWith(1).WritesStderr("lines 1-1: RuntimeError: boom\n"),
		progtest.ThatSniprun("-run", "code.txt", "-workdir", workDir, "-filetype", "cobol").
			ExitsWith(1).WritesStderrContaining("unsupported filetype cobol"),
		progtest.ThatSniprun("-run", "code.txt", "-workdir", workDir, "-range", "2:9").
			ExitsWith(2).WritesStderrContaining("out of the 2 lines"),
		progtest.ThatSniprun("-run", "code.txt", "extra").
			ExitsWith(2).WritesStderrContaining("arguments are not allowed with -run"),
		progtest.ThatSniprun("-run", "missing.txt", "-workdir", workDir).
			ExitsWith(2).WritesStderrContaining("missing.txt"),

		progtest.ThatSniprun().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestProgram_Interpreters(t *testing.T) {
	testutil.RequireBinary(t, "bash", "python3")
	dir := setup(t)
	workDir := filepath.Join(dir, "work")
	must.WriteFile("s.sh", "A=2 && echo $A\n")
	must.WriteFile("notes.md", "# notes\n```bash\necho 1\n```\n\n```python\nprint(2)\n```\n")

	progtest.Test(t, &Program{},
		progtest.ThatSniprun("-run", "s.sh", "-workdir", workDir).WritesStdout("2\n"),
		progtest.ThatSniprun("-run", "notes.md", "-workdir", workDir).WritesStdout("1\n2\n"),
		progtest.ThatSniprun("-run", "notes.md", "-workdir", workDir, "-range", "7").WritesStdout("2\n"),
	)
}

func TestParseRange(t *testing.T) {
	tt.Test(t, tt.Fn(parseRange).Named("parseRange"),
		tt.Args("", 3).Rets(data.Range{Start: 1, End: 3}, nil),
		tt.Args("2", 3).Rets(data.Range{Start: 2, End: 2}, nil),
		tt.Args("2:3", 3).Rets(data.Range{Start: 2, End: 3}, nil),
		tt.Args("", 0).Rets(data.Range{}, tt.ErrorWithMessage("nothing to run")),
		tt.Args("a:2", 3).Rets(data.Range{}, tt.ErrorWithMessage(`bad range "a:2"`)),
		tt.Args("3:2", 3).Rets(data.Range{}, tt.ErrorWithMessage("out of the 3 lines")),
		tt.Args("0", 3).Rets(data.Range{}, tt.ErrorWithMessage("out of the 3 lines")),
	)
}

func TestGuessFiletype(t *testing.T) {
	tt.Test(t, tt.Fn(guessFiletype).Named("guessFiletype"),
		tt.Args("a.py").Rets("python"),
		tt.Args("dir/b.RS").Rets("rust"),
		tt.Args("notes.md").Rets("markdown"),
		tt.Args("todo.org").Rets("org"),
		tt.Args("script.sh").Rets("sh"),
		tt.Args("Makefile").Rets(""),
	)
}
