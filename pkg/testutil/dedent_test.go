package testutil

import (
	"testing"

	. "src.sniprun.dev/pkg/tt"
)

func TestDedent(t *testing.T) {
	Test(t, Fn(Dedent).Named("Dedent"),
		Args(" \n  foo\n bar").Rets("\n foo\nbar"),
		Args(`
			a
			 b
			c`).Rets("a\n b\nc"),
		Args(`
			a
			 b
			c
			`).Rets("a\n b\nc\n"),
		// Mixed indentation keeps what is shared.
		Args(`
				a
			b`).Rets("\ta\nb"),
		Args("a\n\tb").Rets("a\n\tb"),
	)
}

func TestDedentLines(t *testing.T) {
	Test(t, Fn(DedentLines).Named("DedentLines"),
		Args(`
			#+begin_src sh
			echo
			#+end_src
			`).Rets([]string{"#+begin_src sh", "echo", "#+end_src"}),
		Args("x").Rets([]string{"x"}),
	)
}
