package interpreters

import (
	"context"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
)

const javaName = "Java_original"

var javaDescriptor = &backend.Descriptor{
	Name:               javaName,
	Filetypes:          []string{"java"},
	MaxLevel:           backend.Bloc,
	DefaultForFiletype: true,
	Program:            "javac",
	New: func(d *data.Holder, level backend.Level) backend.Backend {
		c := newCompiled(d, level, javaName, "Main.java", "javac")
		c.compileArgs = func(src, bin string) []string { return []string{"-d", c.Dir, src} }
		c.wrap = wrapJava
		c.compileShort = backend.LineWith("error")
		c.short = backend.LineWith("Exception")
		c.run = func(ctx context.Context) (backend.Output, error) {
			prog, args := c.Program("interpreter", "java")
			args = append(args, "-cp", c.Dir, "Main")
			return backend.RunCommand(ctx, prog, append(args, c.Data.CLIArgs...), c.RunOpts())
		}
		return c
	},
}

func wrapJava(code string) string {
	if backend.ContainsEntry(code, "class Main", "//") {
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
	var sb strings.Builder
	for _, imp := range imports {
		sb.WriteString(imp + "\n")
	}
	if len(imports) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("public class Main {\n    public static void main(String[] args) {\n")
	sb.WriteString(backend.Indent(strings.Join(body, "\n"), "        "))
	sb.WriteString("\n    }\n}\n")
	return sb.String()
}
