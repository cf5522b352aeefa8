package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/interpreters"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/testutil"
	. "src.sniprun.dev/pkg/tt"
)

type fakeBackend struct {
	d        *data.Holder
	out      string
	err      error
	recovers bool
}

func (*fakeBackend) FetchCode(context.Context) error { return nil }
func (*fakeBackend) AddBoilerplate() error           { return nil }
func (*fakeBackend) Build(context.Context) error     { return nil }

func (b *fakeBackend) Execute(context.Context) (string, error) { return b.out, b.err }

func (b *fakeBackend) ExecuteREPL(context.Context) (string, error) {
	return "repl " + b.out, b.err
}

func (b *fakeBackend) Fallback(_ context.Context, err error) (string, bool) {
	return "recovered from " + err.Error(), b.recovers
}

func fake(name string, level backend.Level, def bool, filetypes ...string) *backend.Descriptor {
	return &backend.Descriptor{
		Name: name, Filetypes: filetypes, MaxLevel: level, DefaultForFiletype: def,
		New: func(d *data.Holder, level backend.Level) backend.Backend {
			return &fakeBackend{d: d, out: name + " " + level.String()}
		},
	}
}

var registry = []*backend.Descriptor{
	fake("a", backend.Bloc, false, "x"),
	fake("b", backend.Import, false, "x"),
	fake("c", backend.Import, false, "x"),
	fake("d", backend.Line, true, "y"),
	fake("e", backend.Import, false, "y"),
	fake("f", backend.Project, true, "y"),
	{Name: "doc", Filetypes: []string{"md"}, MaxLevel: backend.Bloc, DefaultForFiletype: true, Container: true},
}

func selectName(d *data.Holder) (string, backend.Level, error) {
	desc, level, err := New(registry).Select(d)
	if desc == nil {
		return "", level, err
	}
	return desc.Name, level, err
}

func TestSelect(t *testing.T) {
	Test(t, Fn(selectName).Named("selectName"),
		It("picks the highest level, first in registry order on ties").
			Args(&data.Holder{Filetype: "x"}).Rets("b", backend.Import, nil),
		It("picks the first default over higher levels").
			Args(&data.Holder{Filetype: "y"}).Rets("d", backend.Line, nil),
		It("picks a selected backend at level Selected").
			Args(&data.Holder{Filetype: "y", SelectedInterpreters: []string{"e"}}).
			Rets("e", backend.Selected, nil),
		It("ignores selected backends that do not match").
			Args(&data.Holder{Filetype: "y", SelectedInterpreters: []string{"a"}}).
			Rets("d", backend.Line, nil),
		It("matches through use_on_filetypes").
			Args(&data.Holder{Filetype: "z", InterpreterOptions: data.Options{
				"a": {"use_on_filetypes": []any{"z"}}}}).
			Rets("a", backend.Bloc, nil),
		It("skips containers inside a container").
			Args(&data.Holder{Filetype: "md", InContainer: true}).
			Rets("", backend.Unsupported, ErrorWithMessage("unsupported filetype md")),
		It("rejects an empty filetype").
			Args(&data.Holder{}).
			Rets("", backend.Unsupported, ErrorWithMessage("no filetype set")),
	)
}

// Explicit selection wins for every backend of the real registry.
func TestSelect_SelectedWins(t *testing.T) {
	ds := New(interpreters.Registry)
	for _, desc := range interpreters.Registry {
		for _, ft := range desc.Filetypes {
			d := &data.Holder{Filetype: ft, SelectedInterpreters: []string{desc.Name}}
			got, level, err := ds.Select(d)
			if err != nil || got != desc || level != backend.Selected {
				t.Errorf("Select(%s selected for %s) -> %p, %v, %v", desc.Name, ft, got, level, err)
			}
		}
	}
}

func runWith(t *testing.T, b *fakeBackend, hasREPL bool, mutate func(*data.Holder)) (string, error) {
	t.Helper()
	desc := &backend.Descriptor{
		Name: "fake", Filetypes: []string{"x"}, MaxLevel: backend.Bloc, HasREPL: hasREPL,
		New: func(d *data.Holder, level backend.Level) backend.Backend {
			b.d = d
			return b
		},
	}
	d := &data.Holder{Filetype: "x", Range: data.Range{Start: 1, End: 1}}
	if mutate != nil {
		mutate(d)
	}
	return New([]*backend.Descriptor{desc}).Run(context.Background(), d)
}

func TestRun(t *testing.T) {
	out, err := runWith(t, &fakeBackend{out: "1\n"}, false, nil)
	if out != "1\n" || err != nil {
		t.Errorf("Run -> %q, %v", out, err)
	}
}

func TestRun_SetsRedispatch(t *testing.T) {
	b := &fakeBackend{}
	runWith(t, b, false, nil)
	if b.d.Redispatch == nil {
		t.Errorf("Redispatch not set")
	}
}

func TestRun_InvalidRange(t *testing.T) {
	_, err := runWith(t, &fakeBackend{}, false, func(d *data.Holder) {
		d.Range = data.Range{Start: 3, End: 2}
	})
	if sniperr.KindOf(err) != sniperr.Internal {
		t.Errorf("Run -> %v, want internal error", err)
	}
}

func TestRun_Fallback(t *testing.T) {
	failure := sniperr.RuntimeError("boom")

	out, err := runWith(t, &fakeBackend{err: failure, recovers: true}, false, nil)
	if out != "recovered from RuntimeError: boom" || err != nil {
		t.Errorf("Run with recovering fallback -> %q, %v", out, err)
	}

	_, err = runWith(t, &fakeBackend{err: failure}, false, nil)
	if !errors.Is(err, failure) {
		t.Errorf("Run with declining fallback -> %v, want %v", err, failure)
	}

	_, err = runWith(t, &fakeBackend{err: sniperr.ReRunRanges{{Start: 1, End: 1}}, recovers: true}, false, nil)
	if _, ok := sniperr.AsReRun(err); !ok {
		t.Errorf("Run with rerun directive -> %v", err)
	}
}

func TestRun_REPLMode(t *testing.T) {
	enable := func(d *data.Holder) { d.REPLEnabled = []string{"fake"} }
	out, err := runWith(t, &fakeBackend{out: "1"}, true, enable)
	if out != "repl 1" || err != nil {
		t.Errorf("Run in REPL mode -> %q, %v", out, err)
	}

	_, err = runWith(t, &fakeBackend{err: sniperr.RuntimeError("boom"), recovers: true}, true, enable)
	if sniperr.KindOf(err) != sniperr.Runtime {
		t.Errorf("Run in REPL mode consulted the fallback: %v", err)
	}

	out, _ = runWith(t, &fakeBackend{out: "1"}, true, func(d *data.Holder) {
		enable(d)
		d.REPLDisabled = []string{"fake"}
	})
	if out != "1" {
		t.Errorf("Run with REPL disabled -> %q", out)
	}
}

func TestRun_RejectsCLIArgs(t *testing.T) {
	_, err := runWith(t, &fakeBackend{}, false, func(d *data.Holder) {
		d.CLIArgs = []string{"x"}
	})
	if sniperr.KindOf(err) != sniperr.InterpreterLimitation {
		t.Errorf("Run with CLI args -> %v", err)
	}
}

func TestRun_WrapsUntypedErrors(t *testing.T) {
	_, err := runWith(t, &fakeBackend{err: errors.New("disk full")}, false, nil)
	if !errors.Is(err, sniperr.InternalError("disk full")) {
		t.Errorf("Run -> %v", err)
	}
}

func TestRun_MarkdownBlocks(t *testing.T) {
	testutil.RequireBinary(t, "bash", "python3")
	doc := []string{"# notes", "```bash", "echo 1", "```", "", "```python", "print(2)", "```"}
	ds := New(interpreters.Registry)
	d := &data.Holder{
		Filetype:    "markdown",
		CurrentBloc: strings.Join(doc, "\n"),
		Range:       data.Range{Start: 1, End: len(doc)},
		WorkDir:     testutil.TempDir(t),
		Editor:      fakeEditor(doc),
	}
	_, err := ds.Run(context.Background(), d)
	rerun, ok := sniperr.AsReRun(err)
	want := sniperr.ReRunRanges{{Start: 3, End: 3}, {Start: 7, End: 7}}
	if !ok || len(rerun) != 2 || rerun[0] != want[0] || rerun[1] != want[1] {
		t.Fatalf("Run of the document -> %v, want %v", err, want)
	}
	for i, wantOut := range []string{"1\n", "2\n"} {
		d.Range = rerun[i]
		d.CurrentBloc = doc[rerun[i].Start-1]
		d.CurrentLine = d.CurrentBloc
		out, err := ds.Run(context.Background(), d)
		if out != wantOut || err != nil {
			t.Errorf("Run of block %d -> %q, %v, want %q", i, out, err, wantOut)
		}
	}
}

type fakeEditor []string

func (e fakeEditor) Lines(_ context.Context, start, end int) ([]string, error) {
	if end == -1 || end > len(e) {
		end = len(e)
	}
	if start < 1 || start > end+1 {
		return nil, errors.New("bad range")
	}
	return e[start-1 : end], nil
}

func (fakeEditor) Command(context.Context, string) error { return nil }
