// Package dispatch picks the backend for a request and drives it through its
// pipeline.
package dispatch

import (
	"context"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/sniperr"
)

var logger = logutil.GetLogger("[dispatch] ")

// Dispatcher selects backends from a registry.
type Dispatcher struct {
	// Walked in order; ties between backends of the same level go to the
	// earlier one.
	Registry []*backend.Descriptor
}

// New returns a Dispatcher over the given registry.
func New(registry []*backend.Descriptor) *Dispatcher {
	return &Dispatcher{Registry: registry}
}

// Select returns the backend that handles d and the level it runs at.
//
// A backend named in d.SelectedInterpreters wins at level Selected. Failing
// that, the first backend that is the default for the filetype wins at its
// max level. Otherwise the backend with the highest max level wins. Container
// backends are skipped for a request that was already extracted from a
// container.
func (ds *Dispatcher) Select(d *data.Holder) (*backend.Descriptor, backend.Level, error) {
	if d.Filetype == "" {
		return nil, backend.Unsupported, sniperr.CustomError("no filetype set")
	}
	var best *backend.Descriptor
	level := backend.Unsupported
	for _, desc := range ds.Registry {
		if !desc.Matches(d) || (desc.Container && d.InContainer) {
			continue
		}
		if d.IsSelected(desc.Name) {
			return desc, backend.Selected, nil
		}
		if best != nil && best.DefaultForFiletype {
			// Only an explicit selection can unseat a default.
			continue
		}
		if best == nil || desc.DefaultForFiletype || desc.MaxLevel > level {
			best, level = desc, desc.MaxLevel
		}
	}
	if best == nil {
		return nil, backend.Unsupported, sniperr.CustomError("unsupported filetype " + d.Filetype)
	}
	return best, level, nil
}

// Run selects a backend for d and runs it, in REPL mode if the backend uses
// it for d. In single-shot mode, a failure is handed to the backend's
// Fallback once.
//
// The returned error is a *sniperr.Error or a sniperr.ReRunRanges.
func (ds *Dispatcher) Run(ctx context.Context, d *data.Holder) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	desc, level, err := ds.Select(d)
	if err != nil {
		return "", err
	}
	d = d.Clone()
	d.Redispatch = ds.Run
	repl := desc.UsesREPL(d)
	logger.Printf("selected %s at level %s (repl: %v) for %q", desc.Name, level, repl, d.Filetype)

	b := desc.New(d, level)
	if err := backend.CheckCLIArgs(b, d); err != nil {
		return "", sniperr.Wrap(err)
	}
	if repl {
		out, err := backend.RunREPL(ctx, b)
		return out, sniperr.Wrap(err)
	}
	out, err := backend.Run(ctx, b)
	if err != nil {
		if _, ok := sniperr.AsReRun(err); ok {
			return "", err
		}
		if f, ok := b.(backend.Fallbacker); ok {
			if out, ok := f.Fallback(ctx, err); ok {
				logger.Printf("%s recovered from %v", desc.Name, err)
				return out, nil
			}
		}
	}
	return out, sniperr.Wrap(err)
}
