package backend

import (
	"context"
	"strings"
)

// ImportSyntax describes the import statements of a language.
type ImportSyntax struct {
	// Prefixes a trimmed line must start with to be an import.
	Keywords []string
	// Prefixes of comment lines.
	CommentPrefixes []string
	// Names returns the names an import line introduces. The name "*" stands
	// for every name.
	Names func(line string) []string
}

// IsImport reports whether a line is an import statement.
func (syn ImportSyntax) IsImport(line string) bool {
	trimmed := strings.TrimSpace(line)
	if isComment(trimmed, syn.CommentPrefixes) {
		return false
	}
	for _, kw := range syn.Keywords {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}

// Used reports whether one of the names the import introduces appears in
// code.
func (syn ImportSyntax) Used(line, code string) bool {
	for _, name := range syn.Names(strings.TrimSpace(line)) {
		if name == "*" || (name != "" && strings.Contains(code, name)) {
			return true
		}
	}
	return false
}

// DiscoverImports returns the import lines of the buffer that introduce a name
// used in code and that are not already recorded in known (one import per
// line). The result keeps buffer order and has no duplicates.
func DiscoverImports(buffer []string, code string, syn ImportSyntax, known string) []string {
	seen := make(map[string]bool)
	for _, line := range strings.Split(known, "\n") {
		seen[strings.TrimSpace(line)] = true
	}
	var imports []string
	for _, line := range buffer {
		trimmed := strings.TrimSpace(line)
		if seen[trimmed] || !syn.IsImport(trimmed) || !syn.Used(trimmed, code) {
			continue
		}
		seen[trimmed] = true
		imports = append(imports, trimmed)
	}
	return imports
}

// FetchImports reads the whole buffer and discovers imports for the code of
// b. It does nothing below the Import level. Lines of the buffer that are part
// of the selection are not considered, since they are already in the code.
func (b *Base) FetchImports(ctx context.Context, syn ImportSyntax, known string) ([]string, error) {
	if b.Level < Import || b.Code == "" {
		return nil, nil
	}
	lines, err := b.Data.BufferLines(ctx, 1, -1)
	if err != nil {
		return nil, err
	}
	var outside []string
	for i, line := range lines {
		if n := i + 1; n >= b.Data.Range.Start && n <= b.Data.Range.End {
			continue
		}
		outside = append(outside, line)
	}
	return DiscoverImports(outside, b.Code, syn, known), nil
}

// PythonImports is the import syntax of Python.
var PythonImports = ImportSyntax{
	Keywords:        []string{"import ", "from "},
	CommentPrefixes: []string{"#"},
	Names:           pythonImportNames,
}

func pythonImportNames(line string) []string {
	if strings.HasPrefix(line, "from ") {
		i := strings.Index(line, " import ")
		if i == -1 {
			return nil
		}
		return importedNames(line[i+len(" import "):])
	}
	return importedNames(strings.TrimPrefix(line, "import "))
}

// Parses "a.b as c, d" into ["c", "b"].
func importedNames(list string) []string {
	list = strings.Trim(strings.TrimSpace(list), "()")
	var names []string
	for _, item := range strings.Split(list, ",") {
		fields := strings.Fields(item)
		switch {
		case len(fields) == 0:
		case len(fields) >= 3 && fields[1] == "as":
			names = append(names, fields[2])
		default:
			path := fields[0]
			names = append(names, path[strings.LastIndex(path, ".")+1:])
		}
	}
	return names
}

// CImports is the import syntax of C: includes introduce every name.
var CImports = ImportSyntax{
	Keywords:        []string{"#include"},
	CommentPrefixes: []string{"//", "/*"},
	Names:           func(string) []string { return []string{"*"} },
}

// CppImports is the import syntax of C++: includes and using declarations.
var CppImports = ImportSyntax{
	Keywords:        []string{"#include", "using "},
	CommentPrefixes: []string{"//", "/*"},
	Names:           cppImportNames,
}

func cppImportNames(line string) []string {
	if !strings.HasPrefix(line, "using ") {
		return []string{"*"}
	}
	rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "using ")), ";")
	if strings.HasPrefix(rest, "namespace ") {
		return []string{"*"}
	}
	if i := strings.Index(rest, "="); i != -1 {
		return []string{strings.TrimSpace(rest[:i])}
	}
	return []string{rest[strings.LastIndex(rest, ":")+1:]}
}
