// Package router runs code blocks embedded in documents: fenced code in
// markdown and source blocks in org files. It finds the block the selection
// belongs to, resolves its language and hands the block body back to the
// dispatcher under that language.
package router

import (
	"context"
	"strings"

	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/sniperr"
)

var logger = logutil.GetLogger("[router] ")

// ErrUnbalanced is the message of the error returned when block delimiters
// cannot be paired.
const ErrUnbalanced = "incomplete or nested code blocs"

// Syntax describes the block delimiters of a document format.
type Syntax struct {
	// Opener reports whether line opens a block, and the language tag attached
	// to it.
	Opener func(line string) (tag string, ok bool)
	// Closer reports whether line closes a block.
	Closer func(line string) bool
	// Name returns the block name set by a directive line preceding an opener.
	// Nil if the format has no named blocks.
	Name func(line string) (name string, ok bool)
}

// Router locates blocks of one document format.
type Router struct {
	Syntax
	// Used for blocks without a language tag.
	DefaultFiletype string
	// Rewrite a final "return x" line into a print statement.
	PrintLastLine bool
}

// Block is a located code block.
type Block struct {
	Tag      string
	Filetype string
	Body     string
	// The lines of Body in the document.
	Range data.Range
}

func (r *Router) isMarker(line string) bool {
	_, open := r.Opener(line)
	return open || r.Closer(line)
}

// Locate finds the block the selection of d refers to. When the selection
// covers several blocks, it returns a ReRunRanges error carrying the interior
// of every block lying wholly in the selection, restricted to the blocks
// named in the CLI arguments if the format has named blocks and arguments are
// given.
func (r *Router) Locate(ctx context.Context, d *data.Holder) (*Block, error) {
	sel, err := d.BufferLines(ctx, d.Range.Start, d.Range.End)
	if err != nil {
		return nil, err
	}
	if len(sel) == 0 {
		return nil, sniperr.FetchCodeError()
	}
	markers := 0
	for _, line := range sel {
		if r.isMarker(line) {
			markers++
		}
	}
	if d.Range.End > d.Range.Start && markers >= 2 {
		return nil, r.rerunBlocks(ctx, d)
	}
	return r.locateOne(ctx, d, sel)
}

// Pairs delimiters from the top of the document, so that a selection starting
// or ending inside a block does not mistake a closer for an opener.
func (r *Router) rerunBlocks(ctx context.Context, d *data.Holder) error {
	lines, err := d.BufferLines(ctx, 1, -1)
	if err != nil {
		return err
	}
	// 0-based bounds of the selection.
	lo, hi := d.Range.Start-1, d.Range.End-1
	var ranges sniperr.ReRunRanges
	open := -1
	for i, line := range lines {
		if open == -1 && i > hi {
			break
		}
		if open == -1 {
			if _, ok := r.Opener(line); ok {
				open = i
			} else if r.Closer(line) && i >= lo && i <= hi {
				return sniperr.CustomError(ErrUnbalanced)
			}
			continue
		}
		if !r.Closer(line) {
			if _, ok := r.Opener(line); ok && i >= lo && i <= hi {
				return sniperr.CustomError(ErrUnbalanced)
			}
			continue
		}
		if open >= lo && i <= hi && open+1 <= i-1 && r.wanted(d, lines, open) {
			ranges = append(ranges, data.Range{Start: open + 2, End: i})
		}
		open = -1
	}
	if open != -1 && open <= hi {
		return sniperr.CustomError(ErrUnbalanced)
	}
	if len(ranges) == 0 {
		if r.Name != nil && len(d.CLIArgs) > 0 {
			return sniperr.CustomError("no code bloc named " + strings.Join(d.CLIArgs, ", "))
		}
		return sniperr.CustomError("the selection does not cover a whole code bloc")
	}
	logger.Printf("selection %s holds blocks %v", d.Range, ranges)
	return ranges
}

// Reports whether the block opened at lines[open] passes the name filter.
func (r *Router) wanted(d *data.Holder, lines []string, open int) bool {
	if r.Name == nil || len(d.CLIArgs) == 0 {
		return true
	}
	if open == 0 {
		return false
	}
	name, ok := r.Name(lines[open-1])
	if !ok {
		return false
	}
	for _, arg := range d.CLIArgs {
		if arg == name {
			return true
		}
	}
	return false
}

func (r *Router) locateOne(ctx context.Context, d *data.Holder, sel []string) (*Block, error) {
	above, err := d.BufferLines(ctx, 1, d.Range.Start)
	if err != nil {
		return nil, err
	}
	if len(above) == 0 {
		return nil, sniperr.FetchCodeError()
	}
	// Pair delimiters from the top: a bare fence may open or close a block.
	open, tag := -1, ""
	for i, line := range above[:len(above)-1] {
		if open == -1 {
			if t, ok := r.Opener(line); ok {
				open, tag = i, t
			}
		} else if r.Closer(line) {
			open = -1
		}
	}
	if open == -1 {
		if t, ok := r.Opener(above[len(above)-1]); ok {
			return r.readForward(ctx, d, t)
		}
		return nil, sniperr.CustomError("the selection is not inside a code bloc")
	}
	for i, line := range sel {
		if r.Closer(line) {
			sel = sel[:i]
			break
		}
	}
	return r.block(tag, sel, d.Range.Start), nil
}

func (r *Router) readForward(ctx context.Context, d *data.Holder, tag string) (*Block, error) {
	lines, err := d.BufferLines(ctx, d.Range.Start+1, -1)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		if r.Closer(line) {
			return r.block(tag, lines[:i], d.Range.Start+1), nil
		}
		if _, ok := r.Opener(line); ok {
			break
		}
	}
	return nil, sniperr.CustomError(ErrUnbalanced)
}

func (r *Router) block(tag string, body []string, start int) *Block {
	ft := Translate(tag, r.DefaultFiletype)
	code := strings.Join(body, "\n")
	if r.PrintLastLine {
		code = PrintLastLine(ft, code)
	}
	return &Block{
		Tag:      tag,
		Filetype: ft,
		Body:     code,
		Range:    data.Range{Start: start, End: start + len(body) - 1},
	}
}

// Run hands a located block to the dispatcher. The Holder is cloned and
// rewritten to the inner language; containers are not entered again.
func Run(ctx context.Context, d *data.Holder, b *Block, keepCLIArgs bool) (string, error) {
	if d.Redispatch == nil {
		return "", sniperr.InternalError("no dispatcher to run the code bloc")
	}
	if data.IsBlank(b.Body) {
		return "", nil
	}
	inner := d.Clone()
	inner.Filetype = b.Filetype
	inner.CurrentBloc = b.Body
	inner.CurrentLine = b.Body
	inner.Range = b.Range
	inner.InContainer = true
	if !keepCLIArgs {
		inner.CLIArgs = nil
	}
	logger.Printf("running %s block at %s as %s", b.Tag, b.Range, b.Filetype)
	return d.Redispatch(ctx, inner)
}
