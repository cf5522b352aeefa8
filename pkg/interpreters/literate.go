package interpreters

import (
	"context"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/router"
)

const (
	gfmName     = "GFM_original"
	orgmodeName = "Orgmode_original"
)

// Literate runs the code blocks of a document in the language of each block.
type Literate struct {
	backend.Base
	backend.AcceptCLIArgs
	router *router.Router
	// Whether CLI arguments reach the code of the blocks. Formats with named
	// blocks use them as names.
	keepCLIArgs bool
	block       *router.Block
}

var gfmDescriptor = &backend.Descriptor{
	Name:               gfmName,
	Filetypes:          []string{"markdown", "markdown.pandoc", "rmd", "quarto"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Container:          true,
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		l := &Literate{Base: backend.NewBase(d, level, gfmName), keepCLIArgs: true}
		l.router = &router.Router{
			Syntax:          router.Markdown,
			DefaultFiletype: l.Str("default_filetype", "sh"),
		}
		return l
	},
}

var orgmodeDescriptor = &backend.Descriptor{
	Name:               orgmodeName,
	Filetypes:          []string{"org"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Container:          true,
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		l := &Literate{Base: backend.NewBase(d, level, orgmodeName)}
		l.router = &router.Router{
			Syntax:          router.Org,
			DefaultFiletype: l.Str("default_filetype", "sh"),
			PrintLastLine:   l.Bool("print_last_line", true),
		}
		return l
	},
}

// FetchCode locates the block of the selection, or returns a ReRunRanges
// error when the selection covers several blocks.
func (l *Literate) FetchCode(ctx context.Context) error {
	block, err := l.router.Locate(ctx, l.Data)
	if err != nil {
		return err
	}
	l.block = block
	l.Code = block.Body
	return nil
}

func (l *Literate) AddBoilerplate() error          { return nil }
func (l *Literate) Build(ctx context.Context) error { return nil }

func (l *Literate) Execute(ctx context.Context) (string, error) {
	return router.Run(ctx, l.Data, l.block, l.keepCLIArgs)
}
