// Package interpreters contains the concrete backends and the static
// registry the dispatcher walks.
package interpreters

import (
	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[interpreters] ")

// Registry lists all backends. The order is stable; the dispatcher breaks
// ties between backends of the same level by it.
var Registry = []*backend.Descriptor{
	bashDescriptor,
	python3Descriptor,
	python3FifoDescriptor,
	rustDescriptor,
	cDescriptor,
	cppDescriptor,
	goDescriptor,
	javaDescriptor,
	jsDescriptor,
	jsFifoDescriptor,
	tsDescriptor,
	luaDescriptor,
	rubyDescriptor,
	perlDescriptor,
	haskellDescriptor,
	juliaDescriptor,
	ocamlDescriptor,
	genericDescriptor,
	gfmDescriptor,
	orgmodeDescriptor,
}

// Lookup returns the descriptor of the named backend, or nil.
func Lookup(name string) *backend.Descriptor {
	for _, desc := range Registry {
		if desc.Name == name {
			return desc
		}
	}
	return nil
}
