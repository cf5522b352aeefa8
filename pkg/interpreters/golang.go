package interpreters

import (
	"regexp"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
)

const goName = "Go_original"

var goDescriptor = &backend.Descriptor{
	Name:               goName,
	Filetypes:          []string{"go", "golang"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "go",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		c := newCompiled(d, level, goName, "main.go", "go")
		c.compileArgs = func(src, bin string) []string { return []string{"build", "-o", bin, src} }
		c.wrap = wrapGo
		c.compileShort = goCompileError
		c.short = backend.LineWith("panic:")
		return c
	},
}

// Standard packages imported when a snippet without a package clause uses
// them.
var goAutoImports = []string{
	"bufio", "bytes", "errors", "fmt", "io", "math", "os", "sort", "strconv",
	"strings", "time", "unicode",
}

var goImportRegexps = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(goAutoImports))
	for _, pkg := range goAutoImports {
		m[pkg] = regexp.MustCompile(`(^|[^\w.])` + pkg + `\.`)
	}
	return m
}()

func wrapGo(code string) string {
	if backend.ContainsEntry(code, "package main", "//") {
		return code
	}
	var imports, body []string
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "import ") {
			imports = append(imports, strings.TrimSpace(line))
		} else {
			body = append(body, line)
		}
	}
	code = strings.Join(body, "\n")
	for _, pkg := range goAutoImports {
		imp := "import \"" + pkg + "\""
		if goImportRegexps[pkg].MatchString(code) && !contains(imports, imp) {
			imports = append(imports, imp)
		}
	}
	if !backend.ContainsEntry(code, "func main()", "//") {
		code = "func main() {\n" + backend.Indent(code, "\t") + "\n}\n"
	}
	head := "package main\n\n"
	if len(imports) > 0 {
		head += strings.Join(imports, "\n") + "\n\n"
	}
	return head + code
}

// Skips the "# command-line-arguments" header of go build.
func goCompileError(msg string) string {
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return backend.LastLine(msg)
}
