package prog_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "src.sniprun.dev/pkg/prog"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/prog/progtest"
	"src.sniprun.dev/pkg/testutil"
)

var (
	Test        = progtest.Test
	ThatSniprun = progtest.ThatSniprun
)

func TestCommonFlagHandling(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.Set(t, &LogFlagSet, false)
	t.Cleanup(func() { logutil.SetOutput(io.Discard) })

	Test(t, &testProgram{},
		ThatSniprun("-bad-flag").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -bad-flag\nUsage:"),
		// -h is treated as a bad flag
		ThatSniprun("-h").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -h\nUsage:"),

		ThatSniprun("-help").
			WritesStdoutContaining("Usage: sniprun [flags]"),

		ThatSniprun("-log", filepath.Join(dir, "log")).DoesNothing(),
	)
	if !LogFlagSet {
		t.Errorf("LogFlagSet = false after -log")
	}
}

func TestExitAndBadUsage(t *testing.T) {
	Test(t, &testProgram{returnErr: Exit(3)},
		ThatSniprun().ExitsWith(3),
	)
	Test(t, &testProgram{returnErr: Exit(0)},
		ThatSniprun().DoesNothing(),
	)
	Test(t, &testProgram{returnErr: BadUsage("wrong")},
		ThatSniprun().ExitsWith(2).WritesStderrContaining("wrong\nUsage:"),
	)
	Test(t, &testProgram{returnErr: fmt.Errorf("wrapped: %w", Exit(4))},
		ThatSniprun().ExitsWith(4).WritesStderr("wrapped: \n"),
	)
}

func TestNoSuitableSubprogram(t *testing.T) {
	Test(t, &testProgram{returnErr: ErrNextProgram},
		ThatSniprun().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite(t *testing.T) {
	Test(t,
		Composite(&testProgram{returnErr: ErrNextProgram}, &testProgram{writeStdout: "program 2"}),
		ThatSniprun().WritesStdout("program 2"),
	)
}

func TestSharedFlags(t *testing.T) {
	Test(t,
		Composite(
			&testProgram{returnErr: ErrNextProgram, sharedFlags: true},
			&testProgram{sharedFlags: true}),
		ThatSniprun("-config", "c.yaml", "-workdir", "w", "-json").
			WritesStdout("-config c.yaml -workdir w -json true\n"),
	)
}

func TestCustomFlag(t *testing.T) {
	Test(t, &testProgram{customFlag: true},
		ThatSniprun("-flag", "foo").WritesStdout("-flag foo\n"),
	)
}

func TestArgs(t *testing.T) {
	p := &testProgram{}
	Test(t, p, ThatSniprun("a", "b").DoesNothing())
	if strings.Join(p.args, " ") != "a b" {
		t.Errorf("args = %q", p.args)
	}
}

type testProgram struct {
	writeStdout string
	customFlag  bool
	sharedFlags bool
	returnErr   error

	flag  string
	paths *Paths
	json  *bool
	args  []string
}

func (p *testProgram) RegisterFlags(f *FlagSet) {
	if p.customFlag {
		f.StringVar(&p.flag, "flag", "default", "a flag")
	}
	if p.sharedFlags {
		p.paths = f.Paths()
		p.json = f.JSON()
	}
}

func (p *testProgram) Run(fds [3]*os.File, args []string) error {
	if p.returnErr != nil {
		return p.returnErr
	}
	p.args = args
	fds[1].WriteString(p.writeStdout)
	if p.customFlag {
		fmt.Fprintf(fds[1], "-flag %s\n", p.flag)
	}
	if p.sharedFlags {
		fmt.Fprintf(fds[1], "-config %s -workdir %s -json %v\n",
			p.paths.Config, p.paths.WorkDir, *p.json)
	}
	return nil
}
