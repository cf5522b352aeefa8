package server

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
)

// BufferInfo describes the editor's current buffer.
type BufferInfo struct {
	Filetype  string `json:"filetype"`
	Filepath  string `json:"filepath"`
	Cwd       string `json:"cwd"`
	LineCount int    `json:"line_count"`
	PID       int    `json:"pid"`
}

type linesParams struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type commandParams struct {
	Command string `json:"command"`
}

// The editor capability, implemented by calls back to the editor.
type rpcEditor struct{ conn *jsonrpc2.Conn }

func (e rpcEditor) Lines(ctx context.Context, start, end int) ([]string, error) {
	var lines []string
	err := e.conn.Call(ctx, "sniprun/lines", linesParams{start, end}, &lines)
	return lines, err
}

func (e rpcEditor) Command(ctx context.Context, cmd string) error {
	return e.conn.Call(ctx, "sniprun/command", commandParams{cmd}, nil)
}

func (e rpcEditor) Buffer(ctx context.Context) (BufferInfo, error) {
	var info BufferInfo
	err := e.conn.Call(ctx, "sniprun/buffer", nil, &info)
	return info, err
}
