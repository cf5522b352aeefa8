package interpreters

import (
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
)

const (
	luaName     = "Lua_original"
	rubyName    = "Ruby_original"
	perlName    = "Perl_original"
	haskellName = "Haskell_original"
	juliaName   = "Julia_original"
)

// Returns the descriptor of a backend running an interpreter on the code as
// is.
func plainScript(name string, filetypes []string, ext, interpreter string) *backend.Descriptor {
	return &backend.Descriptor{
		Name:               name,
		Filetypes:          filetypes,
		MaxLevel:           backend.Bloc,
		DefaultForFiletype: true,
		Program:            interpreter,
		New: func(d *data.Holder, level backend.Level) backend.Backend {
			return newScript(d, level, name, ext, interpreter)
		},
	}
}

var (
	luaDescriptor  = plainScript(luaName, []string{"lua"}, "lua", "lua")
	rubyDescriptor = plainScript(rubyName, []string{"ruby"}, "rb", "ruby")
	perlDescriptor = plainScript(perlName, []string{"perl"}, "pl", "perl")
)

var haskellDescriptor = &backend.Descriptor{
	Name:               haskellName,
	Filetypes:          []string{"haskell"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "runghc",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, haskellName, "hs", "runghc")
		s.wrap = wrapHaskell
		s.short = backend.LineWith("error")
		return s
	},
}

func wrapHaskell(code string) string {
	if backend.ContainsEntry(code, "main =", "--") {
		return code
	}
	var imports, body []string
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(line, "import ") {
			imports = append(imports, line)
		} else {
			body = append(body, line)
		}
	}
	head := ""
	if len(imports) > 0 {
		head = strings.Join(imports, "\n") + "\n\n"
	}
	return head + "main = do\n" + backend.Indent(strings.Join(body, "\n"), "  ") + "\n"
}

var juliaDescriptor = &backend.Descriptor{
	Name:               juliaName,
	Filetypes:          []string{"julia"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "julia",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		s := newScript(d, level, juliaName, "jl", "julia")
		// A project of "." is the project root of the buffer.
		if project := s.Str("project", ""); project != "" {
			if project == "." && d.ProjectRoot != "" {
				project = d.ProjectRoot
			}
			s.args = []string{"--project=" + project}
		}
		s.short = backend.LineWith("ERROR")
		return s
	},
}
