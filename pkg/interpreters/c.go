package interpreters

import (
	"context"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
)

const (
	cName   = "C_original"
	cppName = "Cpp_original"
)

// C compiles C or C++ snippets with the includes of the buffer.
type C struct {
	*compiled
	syntax   backend.ImportSyntax
	preamble []string
	imports  []string
	entry    string
}

var cDescriptor = &backend.Descriptor{
	Name:               cName,
	Filetypes:          []string{"c"},
	MaxLevel:           backend.Import,
	DefaultForFiletype: true,
	Program:            "gcc",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		return newC(d, level)
	},
}

var cppDescriptor = &backend.Descriptor{
	Name:               cppName,
	Filetypes:          []string{"cpp", "c++"},
	MaxLevel:           backend.Import,
	DefaultForFiletype: true,
	Program:            "g++",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		return newCpp(d, level)
	},
}

func newC(d *data.Holder, level backend.Level) *C {
	c := &C{
		compiled: newCompiled(d, level, cName, "main.c", "gcc"),
		syntax:   backend.CImports,
		preamble: []string{"#include <stdio.h>"},
		entry:    "int main(",
	}
	c.compileShort = backend.LineWith("error")
	c.wrap = c.wrapC
	return c
}

func newCpp(d *data.Holder, level backend.Level) *C {
	c := &C{
		compiled: newCompiled(d, level, cppName, "main.cpp", "g++"),
		syntax:   backend.CppImports,
		preamble: []string{"#include <iostream>"},
		entry:    "int main(",
	}
	c.compileShort = backend.LineWith("error")
	c.wrap = c.wrapC
	return c
}

func (c *C) FetchCode(ctx context.Context) error {
	if err := c.Base.FetchCode(ctx); err != nil {
		return err
	}
	imports, err := c.FetchImports(ctx, c.syntax, "")
	c.imports = imports
	return err
}

func (c *C) wrapC(code string) string {
	if backend.ContainsEntry(code, c.entry, "//") {
		return code
	}
	// Includes of the snippet itself go to the top of the file.
	var includes, body []string
	for _, line := range strings.Split(code, "\n") {
		if c.syntax.IsImport(line) {
			includes = append(includes, strings.TrimSpace(line))
		} else {
			body = append(body, line)
		}
	}
	var head []string
	all := append(append([]string(nil), c.preamble...), c.imports...)
	for _, line := range append(all, includes...) {
		if !contains(head, line) {
			head = append(head, line)
		}
	}
	return strings.Join(head, "\n") + "\n\nint main() {\n" +
		backend.Indent(strings.Join(body, "\n"), "    ") + "\n    return 0;\n}\n"
}

// Fallback compiles the code again without the discovered includes.
func (c *C) Fallback(ctx context.Context, err error) (string, bool) {
	if len(c.imports) == 0 || sniperr.KindOf(err) != sniperr.Compilation {
		return "", false
	}
	logger.Printf("%s: retrying without includes after %v", c.Name, err)
	var retry *C
	if c.Name == cppName {
		retry = newCpp(c.Data, backend.Bloc)
	} else {
		retry = newC(c.Data, backend.Bloc)
	}
	out, err := backend.Run(ctx, retry)
	return out, err == nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
