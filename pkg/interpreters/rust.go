package interpreters

import (
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
)

const rustName = "Rust_original"

var rustDescriptor = &backend.Descriptor{
	Name:               rustName,
	Filetypes:          []string{"rust"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "rustc",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		c := newCompiled(d, level, rustName, "main.rs", "rustc")
		c.compileArgs = func(src, bin string) []string {
			return []string{"-O", "--edition", "2021", src, "-o", bin}
		}
		c.wrap = wrapRust
		c.compileShort = backend.LineWith("error")
		c.short = rustPanic
		return c
	},
}

func wrapRust(code string) string {
	if backend.ContainsEntry(code, "fn main()", "//") {
		return code
	}
	return "fn main() {\n" + backend.Indent(code, "    ") + "\n}\n"
}

// Picks the panic message. Recent compilers print it on the line after
// "panicked at <location>:".
func rustPanic(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "panicked at") {
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(line), ":") && i+1 < len(lines) {
			return strings.TrimSpace(lines[i+1])
		}
		return strings.TrimSpace(line)
	}
	return backend.LastLine(msg)
}
