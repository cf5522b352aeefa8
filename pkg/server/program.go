package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"src.sniprun.dev/pkg/config"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/prog"
	"src.sniprun.dev/pkg/sys"
)

// Program is the server subprogram. It runs when no other subprogram does.
type Program struct {
	paths *prog.Paths
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	p.paths = fs.Paths()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed")
	}
	if sys.IsATTY(fds[0]) {
		fmt.Fprintln(fds[2], "sniprun expects JSON-RPC requests from an editor on stdin.")
		fmt.Fprintln(fds[2], "To run code from a terminal, use sniprun -run FILE; see sniprun -help.")
		return prog.Exit(2)
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
		if err := logutil.SetOutputFile(filepath.Join(workDir, LogFile)); err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot open log file:", err)
		}
	}
	// The editor starts sniprun, so REPL state is keyed to the parent.
	st, err := OpenStore(cfg, workDir, os.Getppid())
	if err != nil {
		return err
	}
	s := New(cfg, workDir, st)
	defer s.Close()
	logger.Println("pid is", os.Getpid(), "work dir is", workDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := s.Connect(ctx, transport{fds[0], fds[1]})
	select {
	case <-conn.DisconnectNotify():
		logger.Println("editor hung up")
	case sig := <-sigCh:
		logger.Println("received signal", sig)
		conn.Close()
	}
	return nil
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
