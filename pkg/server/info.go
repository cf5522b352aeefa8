package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sourcegraph/jsonrpc2"
	"src.sniprun.dev/pkg/backend"
	"src.sniprun.dev/pkg/buildinfo"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/fsutil"
)

const banner = ` ____        _
/ ___| _ __ (_)_ __  _ __ _   _ _ __
\___ \| '_ \| | '_ \| '__| | | | '_ \
 ___) | | | | | |_) | |  | |_| | | | |
|____/|_| |_|_| .__/|_|   \__,_|_| |_|
              |_|
`

// Writes the info payload to the info file and presents it.
func (s *Server) info(ctx context.Context, conn *jsonrpc2.Conn) {
	d := &data.Holder{Range: data.Range{Start: 1, End: 1}, WorkDir: s.workDir}
	s.cfg.Apply(d)
	if buf, err := (rpcEditor{conn}).Buffer(ctx); err == nil {
		d.Filetype = buf.Filetype
	} else {
		logger.Printf("cannot get buffer info: %v", err)
	}
	payload := s.infoPayload(d)
	path := filepath.Join(s.workDir, InfoFile)
	if err := os.WriteFile(path, []byte(payload), 0600); err != nil {
		logger.Printf("cannot write %s: %v", path, err)
	} else {
		logger.Printf("wrote %s", path)
	}
	d.ReturnMessageType = "multiline"
	present(ctx, conn, d, payload, nil)
}

func (s *Server) infoPayload(d *data.Holder) string {
	var sb strings.Builder
	sb.WriteString(banner)
	fmt.Fprintf(&sb, "\nversion: %s\n", buildinfo.Value.Version)
	fmt.Fprintf(&sb, "work dir: %s\n", fsutil.TildeAbbr(s.workDir))
	fmt.Fprintf(&sb, "filetype: %s\n", d.Filetype)
	if desc, level, err := s.dispatcher.Select(d); err == nil {
		fmt.Fprintf(&sb, "selected backend: %s (level %s, REPL %s)\n",
			desc.Name, level, yesNo(desc.UsesREPL(d)))
	} else {
		fmt.Fprintf(&sb, "selected backend: none (%v)\n", err)
	}

	sessions := s.store.Sessions()
	if len(sessions) > 0 {
		sb.WriteString("\nREPL sessions:\n")
		names := make([]string, 0, len(sessions))
		for name := range sessions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sess := sessions[name]
			fmt.Fprintf(&sb, "  %s: owner %q, last id %d\n", name, sess.Owner, sess.PID)
		}
	}

	sb.WriteString("\n")
	writeTable(&sb, s.dispatcher.Registry)
	return sb.String()
}

func writeTable(sb *strings.Builder, registry []*backend.Descriptor) {
	w := tabwriter.NewWriter(sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Backend\tFiletypes\tMax level\tDefault\tREPL\tREPL by default\tProgram")
	for _, desc := range registry {
		program := "-"
		if desc.Program != "" {
			program = desc.Program
			if !fsutil.Available(desc.Program) {
				program += " (missing)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			desc.Name, strings.Join(desc.Filetypes, ","), desc.MaxLevel,
			yesNo(desc.DefaultForFiletype), yesNo(desc.HasREPL),
			yesNo(desc.REPLByDefault), program)
	}
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
