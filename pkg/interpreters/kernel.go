package interpreters

import (
	"context"
	"errors"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/replfifo"
	"src.sniprun.dev/pkg/sniperr"
)

// Sends the code of b to a kernel. The wrap function surrounds the code with
// the sentinels of a request.
func runKernel(ctx context.Context, b *backend.Base, k replfifo.Kernel, wrap func(code string, id int) string) (string, error) {
	if data.IsBlank(b.Code) {
		return "", sniperr.UnsufficientSupportLevelError()
	}
	sess := replfifo.NewSession(b.Data, k)
	out, err := sess.Run(ctx, func(id int) string { return wrap(b.Code, id) })
	return out, shortenREPL(b, err)
}

// Truncates the message of a runtime error reported by a kernel.
func shortenREPL(b *backend.Base, err error) error {
	var e *sniperr.Error
	if errors.As(err, &e) && e.Kind == sniperr.Runtime {
		return sniperr.RuntimeError(backend.Shorten(e.Msg, b.ErrorTruncate(), nil))
	}
	return err
}

// Reports whether a REPL request reached the kernel.
func sent(err error) bool {
	if err == nil {
		return true
	}
	if _, ok := sniperr.AsReRun(err); ok {
		return false
	}
	return sniperr.KindOf(err) == sniperr.Runtime
}
