// Package runcli implements the -run subprogram, which runs code from a file
// through the dispatcher without an editor.
package runcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/config"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/dispatch"
	"src.sniprun.dev/pkg/interpreters"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/prog"
	"src.sniprun.dev/pkg/replfifo"
	"src.sniprun.dev/pkg/router"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/store"
)

var logger = logutil.GetLogger("[runcli] ")

// Program is the -run subprogram.
type Program struct {
	file        string
	lineRange   string
	filetype    string
	interpreter string
	repl        bool

	paths *prog.Paths
	json  *bool
	// Defaults to the interpreters registry.
	registry []*backend.Descriptor
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVar(&p.file, "run", "", "run code from the file, or stdin if -, and quit")
	fs.StringVar(&p.lineRange, "range", "", "lines to run with -run, as START:END or LINE; defaults to the whole file")
	fs.StringVar(&p.filetype, "filetype", "", "filetype for -run; guessed from the file extension by default")
	fs.StringVar(&p.interpreter, "interpreter", "", "backend to use with -run, overriding the selection")
	fs.BoolVar(&p.repl, "repl", false, "use REPL mode with -run for backends that support it")
	p.paths = fs.Paths()
	p.json = fs.JSON()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if p.file == "" {
		return prog.ErrNextProgram
	}
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed with -run")
	}
	lines, err := readLines(p.file, fds[0])
	if err != nil {
		return err
	}
	r, err := parseRange(p.lineRange, len(lines))
	if err != nil {
		return prog.BadUsage(err.Error())
	}
	filetype := p.filetype
	if filetype == "" {
		filetype = guessFiletype(p.file)
	}

	cfg, err := config.LoadFlag(p.paths.Config)
	if err != nil {
		return err
	}
	workDir, err := cfg.ResolveWorkDir(p.paths.WorkDir)
	if err != nil {
		return err
	}
	if !prog.LogFlagSet {
		logutil.SetOutputFile(filepath.Join(workDir, "sniprun.log"))
	}
	defer replfifo.Close()

	registry := p.registry
	if registry == nil {
		registry = interpreters.Registry
	}
	d := &data.Holder{
		Filetype:  filetype,
		Filepath:  p.file,
		WorkDir:   workDir,
		EditorPID: os.Getpid(),
		Editor:    fileEditor(lines),
		Store:     store.NewMemory(os.Getpid()),
	}
	if cwd, err := os.Getwd(); err == nil {
		d.ProjectRoot = cwd
	}
	cfg.Apply(d)
	if p.interpreter != "" {
		d.SelectedInterpreters = []string{p.interpreter}
	}
	if p.repl {
		for _, desc := range registry {
			if desc.HasREPL {
				d.REPLEnabled = append(d.REPLEnabled, desc.Name)
			}
		}
	}

	failed := false
	Run(context.Background(), dispatch.New(registry), d, r, func(r data.Range, out string, err error) {
		if err != nil {
			failed = true
		}
		p.print(fds, r, out, err)
	})
	if failed {
		return prog.Exit(1)
	}
	return nil
}

// Run dispatches the lines of r, and then the ranges of every rerun directive,
// in order. The callback is called with the outcome of each dispatch that is
// not a rerun directive.
func Run(ctx context.Context, ds *dispatch.Dispatcher, d *data.Holder, r data.Range, f func(data.Range, string, error)) {
	queue := []data.Range{r}
	for len(queue) > 0 {
		r, queue = queue[0], queue[1:]
		req := d.Clone()
		req.Range = r
		out, err := runRange(ctx, ds, req)
		if rerun, ok := sniperr.AsReRun(err); ok {
			logger.Printf("rerunning %v", rerun)
			queue = append(queue, rerun...)
			continue
		}
		f(r, out, err)
	}
}

func runRange(ctx context.Context, ds *dispatch.Dispatcher, d *data.Holder) (string, error) {
	lines, err := d.BufferLines(ctx, d.Range.Start, d.Range.End)
	if err != nil {
		return "", err
	}
	if len(lines) > 0 {
		d.CurrentLine = lines[0]
	}
	d.CurrentBloc = strings.Join(lines, "\n")
	return ds.Run(ctx, d)
}

type jsonResult struct {
	Range   [2]int `json:"range"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (p *Program) print(fds [3]*os.File, r data.Range, out string, err error) {
	if *p.json {
		res := jsonResult{Range: [2]int{r.Start, r.End}, Kind: "Ok", Message: out}
		if err != nil {
			res.Kind, res.Message = sniperr.KindOf(err).String(), err.Error()
		}
		b, _ := json.Marshal(res)
		fmt.Fprintf(fds[1], "%s\n", b)
		return
	}
	if err != nil {
		fmt.Fprintf(fds[2], "lines %v: %v\n", r, err)
		return
	}
	fds[1].WriteString(out)
}

func readLines(name string, stdin *os.File) ([]string, error) {
	var content []byte
	var err error
	if name == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	s := strings.TrimSuffix(string(content), "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

// Parses START:END or LINE. An empty string means all n lines.
func parseRange(s string, n int) (data.Range, error) {
	if s == "" {
		if n == 0 {
			return data.Range{}, errors.New("nothing to run")
		}
		return data.Range{Start: 1, End: n}, nil
	}
	startText, endText, found := strings.Cut(s, ":")
	if !found {
		endText = startText
	}
	start, err := strconv.Atoi(startText)
	if err != nil {
		return data.Range{}, fmt.Errorf("bad range %q", s)
	}
	end, err := strconv.Atoi(endText)
	if err != nil {
		return data.Range{}, fmt.Errorf("bad range %q", s)
	}
	if start < 1 || end < start || end > n {
		return data.Range{}, fmt.Errorf("range %q out of the %d lines", s, n)
	}
	return data.Range{Start: start, End: end}, nil
}

var documentExtensions = map[string]string{
	"md": "markdown", "markdown": "markdown", "rmd": "rmd", "qmd": "quarto", "org": "org",
}

func guessFiletype(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ft, ok := documentExtensions[ext]; ok {
		return ft
	}
	return router.Translate(ext, "")
}

// The editor capability over the lines of a file. Commands are ignored.
type fileEditor []string

func (e fileEditor) Lines(_ context.Context, start, end int) ([]string, error) {
	if end == -1 {
		end = len(e)
	}
	if start < 1 || end > len(e) || start > end+1 {
		return nil, fmt.Errorf("lines %d-%d out of %d", start, end, len(e))
	}
	return e[start-1 : end], nil
}

func (fileEditor) Command(context.Context, string) error { return nil }
