package sniperr

import (
	"errors"
	"fmt"
	"testing"

	"src.sniprun.dev/pkg/tt"
)

var It = tt.It

func TestError_Error(t *testing.T) {
	tt.Test(t, tt.Fn(func(e *Error) string { return e.Error() }).Named("Error"),
		It("prefixes message with kind").
			Args(RuntimeError("boom")).Rets("RuntimeError: boom"),
		It("uses fixed message for FetchCode").
			Args(FetchCodeError()).Rets("Failed to fetch code"),
		It("uses fixed message for UnsufficientSupportLevel").
			Args(UnsufficientSupportLevelError()).
			Rets("Interpreter does not support the requested level"),
		It("shows kind alone without message").
			Args(CustomError("")).Rets("CustomError"),
		Args(InterpreterError("")).Rets("Error from interpreter"),
	)
}

func TestKind_String(t *testing.T) {
	tt.Test(t, tt.Fn(Kind.String).Named("String"),
		Args(Compilation).Rets("CompilationError"),
		Args(Kind(100)).Rets("Kind(100)"),
	)
}

var Args = tt.Args

func TestReRunRanges(t *testing.T) {
	var err error = fmt.Errorf("wrapped: %w", ReRunRanges{{1, 2}, {4, 6}})
	r, ok := AsReRun(err)
	if !ok {
		t.Fatalf("AsReRun -> false, want true")
	}
	if len(r) != 2 || r[1] != (Range{4, 6}) {
		t.Errorf("AsReRun -> %v", r)
	}
	if got := r.Error(); got != "rerun ranges [1-2, 4-6]" {
		t.Errorf("Error() -> %q", got)
	}
	if _, ok := AsReRun(RuntimeError("x")); ok {
		t.Errorf("AsReRun(RuntimeError) -> true, want false")
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("ctx: %w", RuntimeError("x"))
	if !errors.Is(err, &Error{Kind: Runtime}) {
		t.Errorf("errors.Is with matching kind -> false")
	}
	if errors.Is(err, &Error{Kind: Compilation}) {
		t.Errorf("errors.Is with other kind -> true")
	}
}

func TestWrap(t *testing.T) {
	tt.Test(t, tt.Fn(Wrap).Named("Wrap"),
		Args(nil).Rets(nil),
		Args(RuntimeError("x")).Rets(RuntimeError("x")),
		Args(errors.New("disk full")).Rets(InternalError("disk full")),
	)
	if _, ok := Wrap(ReRunRanges{{1, 1}}).(ReRunRanges); !ok {
		t.Errorf("Wrap(ReRunRanges) did not keep the directive")
	}
}

func TestKeepsPreviousOutput(t *testing.T) {
	if !KeepsPreviousOutput(InterpreterLimitationError("reached the repl timeout")) {
		t.Errorf("limitation errors should keep previous output")
	}
	if KeepsPreviousOutput(RuntimeError("x")) {
		t.Errorf("runtime errors should not keep previous output")
	}
}
