package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/tt"
)

var (
	Args = tt.Args
	It   = tt.It
)

// recorder is a Backend recording the stages it goes through.
type recorder struct {
	stages []string
	failAt string
}

func (r *recorder) stage(name string) error {
	r.stages = append(r.stages, name)
	if name == r.failAt {
		return sniperr.CustomError(name + " failed")
	}
	return nil
}

func (r *recorder) FetchCode(context.Context) error { return r.stage("fetch") }
func (r *recorder) AddBoilerplate() error            { return r.stage("boilerplate") }
func (r *recorder) Build(context.Context) error      { return r.stage("build") }
func (r *recorder) Execute(context.Context) (string, error) {
	return strings.Join(r.stages, ","), r.stage("execute")
}

// replRecorder overrides two of the four REPL stages.
type replRecorder struct{ recorder }

func (r *replRecorder) AddBoilerplateREPL() error { return r.stage("boilerplate_repl") }
func (r *replRecorder) ExecuteREPL(context.Context) (string, error) {
	return strings.Join(r.stages, ","), r.stage("execute_repl")
}

func TestRun(t *testing.T) {
	r := &recorder{}
	out, err := Run(context.Background(), r)
	if err != nil || out != "fetch,boilerplate,build" {
		t.Errorf("Run -> (%q, %v)", out, err)
	}

	r = &recorder{failAt: "boilerplate"}
	_, err = Run(context.Background(), r)
	if sniperr.KindOf(err) != sniperr.Custom {
		t.Errorf("Run -> %v, want CustomError", err)
	}
	if diff := cmp.Diff([]string{"fetch", "boilerplate"}, r.stages); diff != "" {
		t.Errorf("stages after failure (-want +got):\n%s", diff)
	}
}

func TestRunREPL_FallsBackToNonREPLStages(t *testing.T) {
	r := &replRecorder{}
	out, err := RunREPL(context.Background(), r)
	if err != nil || out != "fetch,boilerplate_repl,build" {
		t.Errorf("RunREPL -> (%q, %v)", out, err)
	}

	plain := &recorder{}
	out, err = RunREPL(context.Background(), plain)
	if err != nil || out != "fetch,boilerplate,build" {
		t.Errorf("RunREPL on plain backend -> (%q, %v)", out, err)
	}
}

type acceptsArgs struct {
	recorder
	AcceptCLIArgs
}

func TestCheckCLIArgs(t *testing.T) {
	d := &data.Holder{CLIArgs: []string{"a"}}
	err := CheckCLIArgs(&recorder{}, d)
	if sniperr.KindOf(err) != sniperr.InterpreterLimitation {
		t.Errorf("CheckCLIArgs on default backend -> %v, want InterpreterLimitationError", err)
	}
	if err := CheckCLIArgs(&acceptsArgs{}, d); err != nil {
		t.Errorf("CheckCLIArgs on accepting backend -> %v", err)
	}
	if err := CheckCLIArgs(&recorder{}, &data.Holder{}); err != nil {
		t.Errorf("CheckCLIArgs without args -> %v", err)
	}
}

func TestDescriptor_Matches(t *testing.T) {
	desc := &Descriptor{Name: "Lua_original", Filetypes: []string{"lua"}}
	opts := data.Options{"Lua_original": {"use_on_filetypes": []any{"luau"}, "supported_filetypes": "pico8"}}
	matches := func(ft string) bool {
		return desc.Matches(&data.Holder{Filetype: ft, InterpreterOptions: opts})
	}
	tt.Test(t, tt.Fn(matches).Named("Matches"),
		Args("lua").Rets(true),
		It("honors use_on_filetypes").Args("luau").Rets(true),
		It("honors supported_filetypes").Args("pico8").Rets(true),
		Args("python").Rets(false),
		It("never matches an empty filetype").Args("").Rets(false),
	)
}

func TestDescriptor_UsesREPL(t *testing.T) {
	byDefault := &Descriptor{Name: "A", HasREPL: true, REPLByDefault: true}
	optIn := &Descriptor{Name: "B", HasREPL: true}
	noREPL := &Descriptor{Name: "C", REPLByDefault: true}

	cases := []struct {
		desc *Descriptor
		d    *data.Holder
		want bool
	}{
		{byDefault, &data.Holder{}, true},
		{byDefault, &data.Holder{REPLDisabled: []string{"A"}}, false},
		{optIn, &data.Holder{}, false},
		{optIn, &data.Holder{REPLEnabled: []string{"B"}}, true},
		{optIn, &data.Holder{REPLEnabled: []string{"B"}, REPLDisabled: []string{"B"}}, false},
		{noREPL, &data.Holder{REPLEnabled: []string{"C"}}, false},
	}
	for _, c := range cases {
		if got := c.desc.UsesREPL(c.d); got != c.want {
			t.Errorf("%s.UsesREPL(%+v) -> %v, want %v", c.desc.Name, c.d, got, c.want)
		}
	}
}

func TestBase_FetchCode(t *testing.T) {
	fetch := func(bloc, line string, level Level) string {
		b := NewBase(&data.Holder{CurrentBloc: bloc, CurrentLine: line}, level, "X")
		b.FetchCode(context.Background())
		return b.Code
	}
	tt.Test(t, tt.Fn(fetch).Named("FetchCode"),
		It("prefers the block at Bloc level").Args("a\nb", "a", Bloc).Rets("a\nb"),
		It("uses the line at Line level").Args("a\nb", "a", Line).Rets("a"),
		It("uses the line when the block is blank").Args("  \n", "c", Import).Rets("c"),
		It("leaves code empty when unsupported").Args("a", "a", Unsupported).Rets(""),
	)
}

func TestLevel_String(t *testing.T) {
	tt.Test(t, tt.Fn(Level.String).Named("String"),
		Args(Import).Rets("Import"),
		Args(Selected).Rets("Selected"),
		Args(Level(42)).Rets("Level(42)"),
	)
	if Selected.IsDeclarable() || Unsupported.IsDeclarable() || !Bloc.IsDeclarable() {
		t.Errorf("IsDeclarable is wrong")
	}
	if !(Unsupported < Line && Line < Bloc && Bloc < Import && Import < File &&
		File < Project && Project < Selected) {
		t.Errorf("levels are not ordered")
	}
}

func TestShorten(t *testing.T) {
	msg := "Traceback:\n  line 1\nNameError: x\n"
	tt.Test(t, tt.Fn(Shorten).Named("Shorten"),
		Args(msg, data.Short, nil).Rets("NameError: x"),
		Args(msg, data.Short, FirstLine).Rets("Traceback:"),
		Args(msg, data.Long, nil).Rets("Traceback:\n  line 1\nNameError: x"),
		Args(msg, data.Short, LineWith("line")).Rets("line 1"),
		Args(msg, data.Short, LineWith("panicked")).Rets("NameError: x"),
	)
}

func TestBase_Executed(t *testing.T) {
	b := NewBase(&data.Holder{CurrentBloc: "x"}, Bloc, "X")
	out, err := b.Executed(Output{Stdout: "ok\n"}, nil, nil)
	if out != "ok\n" || err != nil {
		t.Errorf("Executed on success -> (%q, %v)", out, err)
	}
	_, err = b.Executed(Output{Stderr: "a\nb\n", ExitCode: 1}, nil, nil)
	if !errors.Is(err, sniperr.RuntimeError("b")) {
		t.Errorf("Executed on failure -> %v, want RuntimeError: b", err)
	}
	_, err = b.Executed(Output{ExitCode: -1}, errors.New("not found"), nil)
	if sniperr.KindOf(err) != sniperr.Interpreter {
		t.Errorf("Executed when program is missing -> %v", err)
	}
}
