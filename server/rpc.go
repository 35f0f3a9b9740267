package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
)

// RPCServer answers generate and status requests over a JSON-RPC 2.0
// stream. One request runs at a time; a generate call holds the connection
// until the run finishes.
type RPCServer struct {
	Runner  Runner
	History RunHistory
	Log     *slog.Logger
}

func (s *RPCServer) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// ServeStdio speaks the protocol over stdin/stdout until the peer
// disconnects.
func (s *RPCServer) ServeStdio(ctx context.Context) error {
	return s.ServeStream(ctx, &stdioReadWriteCloser{reader: os.Stdin, writer: os.Stdout})
}

// ServeStream runs the protocol over rwc until disconnect or cancellation.
func (s *RPCServer) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	s.logger().Info("rpc serving")
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

func (s *RPCServer) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "generate":
		var params GenerateRequest
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		if strings.TrimSpace(params.Sentence) == "" {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "sentence required"}
		}
		s.logger().Info("rpc generate", "sentence", params.Sentence, "stack", params.Stack)
		result, err := s.Runner.Generate(ctx, params)
		return buildGenerateResponse(result, err), nil
	case "status":
		var params struct {
			Limit int `json:"limit"`
		}
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		if params.Limit <= 0 {
			params.Limit = 10
		}
		resp := StatusResponse{Runs: []RunSummary{}}
		if s.History != nil {
			runs, err := s.History.List(params.Limit)
			if err != nil {
				return nil, err
			}
			for _, run := range runs {
				resp.Runs = append(resp.Runs, summarizeRun(run))
			}
		}
		return resp, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method %s not handled", req.Method)}
	}
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}
