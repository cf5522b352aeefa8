// Package replfifo keeps interpreter processes ("kernels") alive across
// requests, so that bindings and imports persist between snippets.
//
// A kernel reads its stdin from a named pipe and appends its stdout and stderr
// to two log files, all in a per-editor session directory:
//
//	<work_dir>/<backend-slug>/<editor-pid>/fifo_repl/{pipe_in,out_file,err_file}
//
// Each request is wrapped so that the kernel prints a start and an end
// sentinel carrying a fresh correlation id on both streams; the response is
// the text between the sentinels. The first request of a backend launches the
// kernel and returns a ReRunRanges directive, so that the event loop runs the
// selection again once the kernel is up.
package replfifo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/store"
)

var logger = logutil.GetLogger("[replfifo] ")

// Names of the files in a session directory.
const (
	PipeIn    = "pipe_in"
	OutFile   = "out_file"
	ErrFile   = "err_file"
	InputFile = "input"
)

// Timing parameters. They are variables so that tests can shorten them.
var (
	// Delay before a bootstrap returns its rerun directive.
	BootstrapBackoff = 100 * time.Millisecond
	// First delay between two polls of the log files; doubled after every
	// poll up to MaxPollDelay.
	InitialPollDelay = 50 * time.Millisecond
	MaxPollDelay     = time.Second
	// Used when the backend has no repl_timeout option.
	DefaultTimeout = 30 * time.Second
)

// StartMarker returns the sentinel printed before the output of request id.
func StartMarker(id int) string { return "sniprun_started_id=" + strconv.Itoa(id) }

// EndMarker returns the sentinel printed after the output of request id.
func EndMarker(id int) string { return "sniprun_finished_id=" + strconv.Itoa(id) }

// Kernel describes how to run and talk to an interpreter.
type Kernel struct {
	// Name of the backend owning the kernel.
	Name    string
	Program string
	Args    []string
	// Extra environment variables, in "key=value" form.
	Env []string

	Filter Filter
	// Strings in the stdout slice that indicate an error, for interpreters
	// that do not report errors on stderr.
	ErrorMarkers []string
}

// Session is a kernel bound to one request.
type Session struct {
	Kernel
	Data *data.Holder
	// The fifo_repl directory.
	Dir     string
	Timeout time.Duration
}

// NewSession returns the Session of a kernel for the request.
func NewSession(d *data.Holder, k Kernel) *Session {
	editorPID := d.EditorPID
	if d.Store != nil {
		editorPID = d.Store.EditorPID()
	}
	timeout := DefaultTimeout
	if secs := d.InterpreterOptions.Int(k.Name, "repl_timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return &Session{
		Kernel:  k,
		Data:    d,
		Dir:     SessionDir(d.WorkDir, k.Name, editorPID),
		Timeout: timeout,
	}
}

// SessionDir returns the fifo_repl directory of a backend for an editor.
func SessionDir(workDir, name string, editorPID int) string {
	return filepath.Join(workDir, backend.Slug(name), strconv.Itoa(editorPID), "fifo_repl")
}

// Ready reports whether the kernel has been launched and is still running.
func (s *Session) Ready() bool {
	if s.Data.Store == nil {
		return false
	}
	return !s.Data.Store.View(s.Name).Empty(s.Name) && kernels.alive(s.Dir)
}

// Known returns the content recorded in the store for the backend, typically
// the imports the kernel has already run.
func (s *Session) Known() string {
	if s.Data.Store == nil {
		return ""
	}
	sess := s.Data.Store.View(s.Name)
	if sess.Empty(s.Name) {
		return ""
	}
	return sess.Content
}

// Record appends lines to the content recorded for the backend.
func (s *Session) Record(lines []string) error {
	if s.Data.Store == nil || len(lines) == 0 {
		return nil
	}
	return s.Data.Store.Update(s.Name, func(sess *store.Session) error {
		sess.Owner = s.Name
		sess.Content = strings.TrimRight(sess.Content, "\n") + "\n" + strings.Join(lines, "\n")
		return nil
	})
}

// Run sends a request to the kernel, bootstrapping it first if needed. The
// wrap function receives the correlation id and returns the text to send.
func (s *Session) Run(ctx context.Context, wrap func(id int) string) (string, error) {
	if s.Data.Store == nil {
		return "", sniperr.InterpreterLimitationError("REPL mode needs a session store")
	}
	if !s.Ready() {
		if status, ok := kernels.takeExit(s.Dir); ok {
			return "", s.exitError(status)
		}
		return "", s.Bootstrap(ctx)
	}
	return s.Send(ctx, wrap)
}

// Number of err_file lines quoted when a kernel has died.
const exitTailLines = 5

// Reports a kernel that exited on its own. The next request bootstraps
// again.
func (s *Session) exitError(status string) error {
	msg := "the REPL exited (" + status + ")"
	if b, err := os.ReadFile(filepath.Join(s.Dir, ErrFile)); err == nil {
		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		if len(lines) > exitTailLines {
			lines = lines[len(lines)-exitTailLines:]
		}
		if tail := strings.Join(lines, "\n"); tail != "" {
			msg += ": " + tail
		}
	}
	logger.Printf("%s: %s", s.Name, msg)
	return sniperr.InterpreterError(msg)
}

// Bootstrap launches the kernel unless it is already running, records it in
// the store and returns a ReRunRanges directive for the current selection.
// The correlation counter restarts at 0 when a kernel is launched, since
// launching truncates the logs.
func (s *Session) Bootstrap(ctx context.Context) error {
	launched := false
	if !kernels.alive(s.Dir) {
		if err := kernels.launch(s.Dir, s.Kernel); err != nil {
			logger.Printf("cannot launch %s kernel: %v", s.Name, err)
			return sniperr.InterpreterError("cannot launch the REPL: " + err.Error())
		}
		logger.Printf("launched %s kernel in %s", s.Name, s.Dir)
		launched = true
	}
	err := s.Data.Store.Update(s.Name, func(sess *store.Session) error {
		sess.Owner = s.Name
		sess.Content = store.KernelLaunched
		// A running kernel keeps its logs, so its ids must keep growing.
		if launched || !sess.HasPID {
			sess.PID = 0
			sess.HasPID = true
		}
		return nil
	})
	if err != nil {
		return sniperr.InternalError(err.Error())
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(BootstrapBackoff):
	}
	return sniperr.ReRunRanges{s.Data.Range}
}

var sessionLocks sync.Map

func (s *Session) lock() func() {
	v, _ := sessionLocks.LoadOrStore(s.Dir, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Send allocates a correlation id, writes the wrapped request to the kernel
// and waits for its response. Requests to the same kernel are serialized.
func (s *Session) Send(ctx context.Context, wrap func(id int) string) (string, error) {
	unlock := s.lock()
	defer unlock()

	id, err := s.Data.Store.NextID(s.Name)
	if err != nil {
		return "", sniperr.InternalError(err.Error())
	}
	input := wrap(id)
	if !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	inputPath := filepath.Join(s.Dir, InputFile)
	if err := os.WriteFile(inputPath, []byte(input), 0600); err != nil {
		return "", sniperr.InternalError(err.Error())
	}
	if err := kernels.splice(s.Dir, inputPath); err != nil {
		return "", sniperr.InterpreterError("cannot write to the REPL: " + err.Error())
	}
	logger.Printf("sent request %d to %s", id, s.Name)
	return s.await(ctx, id)
}

func (s *Session) await(ctx context.Context, id int) (string, error) {
	deadline := time.Now().Add(s.Timeout)
	delay := InitialPollDelay
	for {
		res, done, err := s.collect(id)
		if done {
			return res, err
		}
		if time.Now().After(deadline) {
			return "", sniperr.InterpreterLimitationError("reached the repl timeout")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > MaxPollDelay {
			delay = MaxPollDelay
		}
	}
}

// Reads the log files and returns the response for id if it is complete.
func (s *Session) collect(id int) (string, bool, error) {
	out, err := os.ReadFile(filepath.Join(s.Dir, OutFile))
	if err != nil {
		return "", false, nil
	}
	errLog, err := os.ReadFile(filepath.Join(s.Dir, ErrFile))
	if err != nil {
		return "", false, nil
	}
	stdout, outDone := Extract(s.Filter.Stdout(string(out)), id)
	stderr, errDone := Extract(s.Filter.Stderr(string(errLog)), id)
	if !outDone || !errDone {
		return "", false, nil
	}
	if strings.TrimSpace(stderr) != "" {
		return "", true, sniperr.RuntimeError(strings.TrimSpace(stderr))
	}
	for _, marker := range s.ErrorMarkers {
		if strings.Contains(stdout, marker) {
			return "", true, sniperr.RuntimeError(strings.TrimSpace(stdout))
		}
	}
	return stdout, true, nil
}

// Extract returns the text strictly between the start and end sentinel lines
// of request id in log. It reports false if the response is not complete. The
// last start sentinel for id is used.
func Extract(log string, id int) (string, bool) {
	start := lastLine(log, StartMarker(id))
	if start == -1 {
		return "", false
	}
	body := log[start:]
	end := firstLine(body, EndMarker(id))
	if end == -1 {
		return "", false
	}
	return body[:end], true
}

// Returns the index just after the last line equal to line, or -1.
func lastLine(s, line string) int {
	needle := line + "\n"
	for i := len(s); i >= 0; {
		j := strings.LastIndex(s[:i], needle)
		if j == -1 {
			return -1
		}
		if j == 0 || s[j-1] == '\n' {
			return j + len(needle)
		}
		i = j
	}
	return -1
}

// Returns the index of the first line equal to line, or -1. The line may be
// the last one without a trailing newline.
func firstLine(s, line string) int {
	for i := 0; i <= len(s); {
		j := strings.Index(s[i:], line)
		if j == -1 {
			return -1
		}
		j += i
		after := j + len(line)
		if (j == 0 || s[j-1] == '\n') && (after == len(s) || s[after] == '\n' || s[after] == '\r') {
			return j
		}
		i = j + 1
	}
	return -1
}

// Close ends all kernels launched by this process.
func Close() { kernels.closeAll() }

// String describes the session, for the info payload.
func (s *Session) String() string {
	return fmt.Sprintf("%s kernel in %s", s.Name, s.Dir)
}
