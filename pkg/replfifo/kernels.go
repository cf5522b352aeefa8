package replfifo

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"src.sniprun.dev/pkg/sys/eunix"
)

// A kernel launched by this process. The event loop holds the writer end of
// the kernel's FIFO; the kernel reads EOF and exits once it is closed.
type kernel struct {
	proc   *os.Process
	writer *os.File
	done   chan struct{}
}

type registry struct {
	mu sync.Mutex
	m  map[string]*kernel
	// Kernels that exited on their own, by directory, with their exit status.
	// An entry is dropped when it is reported or the directory is relaunched.
	exited map[string]string
}

var kernels = &registry{m: make(map[string]*kernel), exited: make(map[string]string)}

func (r *registry) get(dir string) *kernel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[dir]
}

func (r *registry) alive(dir string) bool {
	k := r.get(dir)
	if k == nil {
		return false
	}
	select {
	case <-k.done:
		return false
	default:
		return eunix.ProcessAlive(k.proc.Pid)
	}
}

func (r *registry) launch(dir string, kc Kernel) error {
	path, err := exec.LookPath(kc.Program)
	if err != nil {
		return err
	}
	err = eunix.MkdirPrivate(dir)
	if err != nil {
		return err
	}
	pipe := filepath.Join(dir, PipeIn)
	if err := eunix.EnsureFIFO(pipe); err != nil {
		return err
	}
	// Logs of a previous kernel may carry stale sentinels.
	out, err := os.OpenFile(filepath.Join(dir, OutFile), os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer out.Close()
	errLog, err := os.OpenFile(filepath.Join(dir, ErrFile), os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer errLog.Close()
	rd, wr, err := eunix.OpenFIFO(pipe)
	if err != nil {
		return err
	}
	defer rd.Close()

	argv := append([]string{kc.Program}, kc.Args...)
	env := append(os.Environ(), kc.Env...)
	proc, err := os.StartProcess(path, argv, eunix.DetachedProcAttr(dir, env, []*os.File{rd, out, errLog}))
	if err != nil {
		wr.Close()
		return err
	}
	k := &kernel{proc: proc, writer: wr, done: make(chan struct{})}
	r.mu.Lock()
	if old := r.m[dir]; old != nil {
		old.writer.Close()
	}
	r.m[dir] = k
	delete(r.exited, dir)
	r.mu.Unlock()

	go func() {
		status := "exited"
		state, err := proc.Wait()
		if err != nil {
			logger.Printf("waiting for kernel in %s: %v", dir, err)
		} else {
			logger.Printf("kernel in %s exited: %v", dir, state)
			status = state.String()
		}
		close(k.done)
		r.mu.Lock()
		// A kernel still registered was not closed by us.
		if r.m[dir] == k {
			delete(r.m, dir)
			r.exited[dir] = status
		}
		r.mu.Unlock()
		k.writer.Close()
	}()
	return nil
}

var errNoKernel = errors.New("no kernel running")

// Copies the content of the input file into the kernel's FIFO.
func (r *registry) splice(dir, inputPath string) error {
	k := r.get(dir)
	if k == nil {
		return errNoKernel
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(k.writer, f)
	return err
}

// Returns and forgets the exit status of a kernel that died on its own.
func (r *registry) takeExit(dir string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.exited[dir]
	delete(r.exited, dir)
	return status, ok
}

func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dir, k := range r.m {
		k.writer.Close()
		delete(r.m, dir)
	}
	for dir := range r.exited {
		delete(r.exited, dir)
	}
}
