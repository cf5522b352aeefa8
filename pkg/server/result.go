package server

import (
	"context"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

// Displays the server presents itself. Results go to the editor in any case.
const (
	// Echo the result on the editor's command line.
	ClassicDisplay = "Classic"
	// Send the result as a window/showMessage notification.
	NotifyDisplay = "NvimNotify"
)

// Result is the payload of the sniprun/result notification.
type Result struct {
	Range lsp.Range       `json:"range"`
	Type  lsp.MessageType `json:"type"`
	// "Ok", or the kind of the error.
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Display []string `json:"display"`
	// Set for errors that must not clear results shown earlier.
	KeepPrevious      bool   `json:"keep_previous,omitempty"`
	ReturnMessageType string `json:"return_message_type,omitempty"`
}

// Builds the result of a request. It returns false when there is nothing to
// show: the output is empty and no display asked to show empty output.
func newResult(d *data.Holder, out string, err error) (Result, bool) {
	r := Result{
		Range:             lspRange(d.Range),
		Type:              lsp.Info,
		Kind:              "Ok",
		Message:           out,
		Display:           d.Display,
		ReturnMessageType: d.ReturnMessageType,
	}
	switch {
	case err != nil:
		r.Type = lsp.MTError
		r.Kind = sniperr.KindOf(err).String()
		r.Message = err.Error()
		if sniperr.KeepsPreviousOutput(err) {
			r.Type = lsp.MTWarning
			r.KeepPrevious = true
		}
	case out == "":
		r.Display = intersect(d.Display, d.DisplayNoOutput)
		if len(r.Display) == 0 {
			return r, false
		}
	}
	return r, true
}

func intersect(a, b []string) []string {
	var both []string
	for _, x := range a {
		for _, y := range b {
			if x == y {
				both = append(both, x)
				break
			}
		}
	}
	return both
}

// Converts an inclusive 1-based line range to a 0-based LSP range.
func lspRange(r data.Range) lsp.Range {
	if r.Start < 1 {
		return lsp.Range{}
	}
	return lsp.Range{
		Start: lsp.Position{Line: r.Start - 1},
		End:   lsp.Position{Line: r.End - 1},
	}
}

func present(ctx context.Context, conn *jsonrpc2.Conn, d *data.Holder, out string, err error) {
	r, ok := newResult(d, out, err)
	if !ok {
		return
	}
	if err := conn.Notify(ctx, "sniprun/result", r); err != nil {
		logger.Printf("cannot send result: %v", err)
		return
	}
	for _, display := range r.Display {
		switch display {
		case ClassicDisplay:
			err := rpcEditor{conn}.Command(ctx, "echomsg "+Quote(strings.TrimRight(r.Message, "\n")))
			if err != nil {
				logger.Printf("cannot echo result: %v", err)
			}
		case NotifyDisplay:
			err := conn.Notify(ctx, "window/showMessage",
				lsp.ShowMessageParams{Type: r.Type, Message: r.Message})
			if err != nil {
				logger.Printf("cannot send message: %v", err)
			}
		}
	}
}

// Quote returns s as a double-quoted string for the editor's command line.
// Backslashes and double quotes are escaped, and newlines are written as \n.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
