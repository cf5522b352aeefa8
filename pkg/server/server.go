// Package server implements the event loop that serves an editor. Requests
// arrive as JSON-RPC messages on stdin; results go back as notifications on
// stdout. The editor also answers calls for buffer lines, which is how
// backends read more of the buffer than the selection.
package server

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"src.sniprun.dev/pkg/config"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/dispatch"
	"src.sniprun.dev/pkg/fsutil"
	"src.sniprun.dev/pkg/interpreters"
	"src.sniprun.dev/pkg/logutil"
	"src.sniprun.dev/pkg/replfifo"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/store"
)

var logger = logutil.GetLogger("[server] ")

// Names of files directly under the work dir.
const (
	LogFile   = "sniprun.log"
	InfoFile  = "infofile.txt"
	StoreFile = "store.db"
)

const inboxSize = 64

type eventKind int

const (
	runEvent eventKind = iota
	cleanEvent
	clearREPLEvent
	infoEvent
)

type event struct {
	kind eventKind
	run  runRequest
}

type runRequest struct {
	Range     data.Range
	Config    json.RawMessage
	Overrides config.Overrides
}

// Server is the event loop. It takes events from an inbox, runs each run
// request in a worker goroutine of its own, and handles the other events in
// order.
type Server struct {
	cfg        *config.Config
	workDir    string
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	inbox      chan event
	workers    sync.WaitGroup
}

// New returns a Server dispatching over the interpreters registry.
func New(cfg *config.Config, workDir string, st *store.Store) *Server {
	return &Server{
		cfg:        cfg,
		workDir:    workDir,
		store:      st,
		dispatcher: dispatch.New(interpreters.Registry),
		inbox:      make(chan event, inboxSize),
	}
}

// OpenStore returns the Interpreter-Store for the editor process, mirrored to
// a database in the work dir when the config asks for it.
func OpenStore(cfg *config.Config, workDir string, editorPID int) (*store.Store, error) {
	if !cfg.PersistStore {
		return store.NewMemory(editorPID), nil
	}
	return store.Open(filepath.Join(workDir, StoreFile), editorPID)
}

// Connect starts serving requests read from rwc. The returned connection is
// closed when the peer hangs up or ctx is done.
func (s *Server) Connect(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	ctx, cancel := context.WithCancel(ctx)
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())
	go func() {
		select {
		case <-conn.DisconnectNotify():
		case <-ctx.Done():
			conn.Close()
		}
		cancel()
	}()
	go s.loop(ctx, conn)
	return conn
}

// Close ends all REPL kernels and closes the store. It does not wait for
// running workers.
func (s *Server) Close() error {
	replfifo.Close()
	return s.store.Close()
}

func (s *Server) post(ctx context.Context, ev event) {
	select {
	case s.inbox <- ev:
	case <-ctx.Done():
	}
}

func (s *Server) loop(ctx context.Context, conn *jsonrpc2.Conn) {
	for {
		select {
		case ev := <-s.inbox:
			s.handle(ctx, conn, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, ev event) {
	switch ev.kind {
	case runEvent:
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			s.work(ctx, conn, ev.run)
		}()
	case cleanEvent:
		s.clean()
	case clearREPLEvent:
		// Kernels keep running; the next request re-bootstraps against them.
		logger.Println("clearing REPL state")
		s.store.Clear()
	case infoEvent:
		s.info(ctx, conn)
	}
}

func (s *Server) work(ctx context.Context, conn *jsonrpc2.Conn, req runRequest) {
	d, err := s.holder(ctx, rpcEditor{conn}, req)
	if err != nil {
		logger.Printf("cannot prepare request for %v: %v", req.Range, err)
		present(ctx, conn, &data.Holder{Range: req.Range}, "", sniperr.Wrap(err))
		return
	}
	out, err := s.dispatcher.Run(ctx, d)
	if rerun, ok := sniperr.AsReRun(err); ok {
		logger.Printf("posting %v", rerun)
		for _, r := range rerun {
			next := req
			next.Range = r
			s.post(ctx, event{kind: runEvent, run: next})
		}
		return
	}
	present(ctx, conn, d, out, err)
}

// Builds the Holder of a run request from the config, the editor's buffer and
// the overrides.
func (s *Server) holder(ctx context.Context, ed rpcEditor, req runRequest) (*data.Holder, error) {
	cfg, err := s.cfg.Merge(req.Config)
	if err != nil {
		return nil, sniperr.CustomError(err.Error())
	}
	buf, err := ed.Buffer(ctx)
	if err != nil {
		logger.Printf("cannot get buffer info: %v", err)
		return nil, sniperr.FetchCodeError()
	}
	d := &data.Holder{
		Filetype:    buf.Filetype,
		Filepath:    buf.Filepath,
		ProjectRoot: buf.Cwd,
		Range:       req.Range,
		WorkDir:     s.workDir,
		EditorPID:   s.store.EditorPID(),
		Editor:      ed,
		Store:       s.store,
	}
	cfg.Apply(d)
	if code := req.Overrides.Codestring; code != "" {
		d.CurrentBloc = code
		d.CurrentLine = strings.SplitN(code, "\n", 2)[0]
		if d.Validate() != nil {
			d.Range = data.Range{Start: 1, End: 1}
		}
	} else {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		lines, err := d.BufferLines(ctx, req.Range.Start, req.Range.End)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			d.CurrentLine = lines[0]
		}
		d.CurrentBloc = strings.Join(lines, "\n")
	}
	if ft := req.Overrides.Filetype; ft != "" {
		d.Filetype = ft
	}
	d.CLIArgs = req.Overrides.CLIArgs
	return d, nil
}

func (s *Server) clean() {
	logger.Println("cleaning", s.workDir)
	replfifo.Close()
	keep := func(name string) bool { return name == LogFile || name == StoreFile }
	if err := fsutil.ResetDir(s.workDir, keep); err != nil {
		logger.Printf("cannot clean %s: %v", s.workDir, err)
	}
}
