package router

import "strings"

// Markdown fenced code blocks, as used by markdown, pandoc, R markdown and
// quarto documents.
var Markdown = Syntax{
	Opener: func(line string) (string, bool) {
		line = strings.TrimSpace(line)
		fence := fenceLen(line)
		if fence == 0 {
			return "", false
		}
		return markdownTag(line[fence:]), true
	},
	Closer: func(line string) bool {
		line = strings.TrimSpace(line)
		return fenceLen(line) > 0 && fenceLen(line) == len(line)
	},
}

// Length of a ``` or ~~~ fence at the start of line, or 0.
func fenceLen(line string) int {
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return 0
	}
	n := 0
	for n < len(line) && line[n] == line[0] {
		n++
	}
	if n < 3 {
		return 0
	}
	return n
}

// Extracts the language of "python", "{python}", "{.python .numberLines}" or
// "{r echo=FALSE}".
func markdownTag(info string) string {
	info = strings.TrimSpace(info)
	info = strings.TrimPrefix(info, "{")
	fields := strings.FieldsFunc(info, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '}'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[0], ".")
}

// Org source blocks, with #+name: directives.
var Org = Syntax{
	Opener: func(line string) (string, bool) {
		rest, ok := cutPrefixFold(strings.TrimSpace(line), "#+begin_src")
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			return "", false
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return "", true
		}
		return fields[0], true
	},
	Closer: func(line string) bool {
		rest, ok := cutPrefixFold(strings.TrimSpace(line), "#+end_src")
		return ok && strings.TrimSpace(rest) == ""
	},
	Name: func(line string) (string, bool) {
		rest, ok := cutPrefixFold(strings.TrimSpace(line), "#+name:")
		if !ok {
			return "", false
		}
		return strings.TrimSpace(rest), true
	},
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

var filetypes = map[string]string{
	"python": "python", "python3": "python", "py": "python", "ipython": "python",
	"bash": "sh", "sh": "sh", "zsh": "sh", "shell": "sh", "ksh": "sh", "dash": "sh",
	"c++": "cpp", "cpp": "cpp", "cxx": "cpp", "cc": "cpp",
	"c":    "c",
	"ruby": "ruby", "jruby": "ruby", "rb": "ruby",
	"ts": "typescript", "typescript": "typescript",
	"js": "javascript", "javascript": "javascript", "node": "javascript",
	"rust": "rust", "rs": "rust",
	"go": "go", "golang": "go",
	"haskell": "haskell", "hs": "haskell",
	"julia": "julia", "jl": "julia",
	"ocaml": "ocaml", "ml": "ocaml",
	"lua":  "lua",
	"perl": "perl", "pl": "perl",
	"java": "java",
}

// Translate returns the filetype for a block language tag. Unknown tags are
// returned lowercased; an empty tag yields def.
func Translate(tag, def string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return def
	}
	if ft, ok := filetypes[tag]; ok {
		return ft
	}
	return tag
}

// PrintLastLine rewrites a final "return x" line of code into a statement
// printing x, for the filetypes that have one. Other code is returned
// unchanged.
func PrintLastLine(filetype, code string) string {
	lines := strings.Split(code, "\n")
	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last < 0 {
		return code
	}
	line := lines[last]
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]
	expr, ok := strings.CutPrefix(trimmed, "return ")
	if !ok {
		return code
	}
	expr = strings.TrimSpace(expr)
	switch filetype {
	case "python":
		lines[last] = indent + "print(" + expr + ")"
	case "rust":
		lines[last] = indent + `println!("{}", ` + strings.TrimSuffix(expr, ";") + ");"
	case "sh":
		lines[last] = indent + "echo " + expr
	default:
		return code
	}
	return strings.Join(lines, "\n")
}
