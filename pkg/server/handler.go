package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sourcegraph/jsonrpc2"
	"src.sniprun.dev/pkg/config"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

type method func(context.Context, json.RawMessage) (any, error)

func (s *Server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"run":       s.run,
		"clean":     s.enqueue(cleanEvent),
		"clearrepl": s.enqueue(clearREPLEvent),
		"info":      s.enqueue(infoEvent),
		"ping":      ping,
	})
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			logger.Printf("ignoring unknown event %q", req.Method)
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, params)
	})
}

// Handler implementations. These are called synchronously by the connection
// and must not block on the editor; they only post to the inbox.

func ping(context.Context, json.RawMessage) (any, error) { return "pong", nil }

func (s *Server) enqueue(kind eventKind) method {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		s.post(ctx, event{kind: kind})
		return nil, nil
	}
}

func (s *Server) run(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := parseRun(params)
	if err != nil {
		logger.Printf("bad run params %s: %v", params, err)
		return nil, errInvalidParams
	}
	s.post(ctx, event{kind: runEvent, run: req})
	return nil, nil
}

// Parses [range_start, range_end, config, overrides]. The last two may be
// omitted.
func parseRun(params json.RawMessage) (runRequest, error) {
	var req runRequest
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return req, err
	}
	if len(args) < 2 || len(args) > 4 {
		return req, errors.New("run takes 2 to 4 arguments")
	}
	if err := json.Unmarshal(args[0], &req.Range.Start); err != nil {
		return req, err
	}
	if err := json.Unmarshal(args[1], &req.Range.End); err != nil {
		return req, err
	}
	if len(args) > 2 {
		req.Config = args[2]
	}
	if len(args) > 3 {
		overrides, err := config.ParseOverrides(args[3])
		if err != nil {
			return req, err
		}
		req.Overrides = overrides
	}
	return req, nil
}
