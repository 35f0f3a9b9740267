package server

import (
	"context"
	"net"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
)

// rpcPair serves s on one end of an in-memory pipe and returns a client
// connection on the other.
func rpcPair(t *testing.T, s *RPCServer) (*jsonrpc2.Conn, <-chan error) {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- s.ServeStream(context.Background(), serverEnd) }()

	stream := jsonrpc2.NewBufferedStream(clientEnd, jsonrpc2.VSCodeObjectCodec{})
	noop := jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, nil
	})
	client := jsonrpc2.NewConn(context.Background(), stream, noop)
	t.Cleanup(func() { client.Close() })
	return client, done
}

func TestRPCServerGenerate(t *testing.T) {
	runner := &stubRunner{res: &pipeline.Result{
		Stage:   pipeline.StageDeploy,
		SiteURL: "https://alice.github.io/shop/",
		Repair:  pipeline.RepairResult{Converged: true, Rounds: 1},
	}}
	client, done := rpcPair(t, &RPCServer{Runner: runner, Log: discardLogger()})

	var resp GenerateResponse
	require.NoError(t, client.Call(context.Background(), "generate",
		GenerateRequest{Sentence: "an online shop", Stack: "react"}, &resp))
	assert.Equal(t, "deploy", resp.Stage)
	assert.Equal(t, "https://alice.github.io/shop/", resp.SiteURL)
	assert.True(t, resp.Converged)
	assert.Equal(t, "react", runner.req.Stack)

	// Disconnecting the client ends the serve loop cleanly.
	require.NoError(t, client.Close())
	require.NoError(t, <-done)
}

func TestRPCServerGenerateRequiresSentence(t *testing.T) {
	client, _ := rpcPair(t, &RPCServer{Runner: &stubRunner{}, Log: discardLogger()})

	err := client.Call(context.Background(), "generate", GenerateRequest{}, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)
}

func TestRPCServerStatus(t *testing.T) {
	history := &stubHistory{runs: []persistence.Run{{ID: 7, Sentence: "a blog", Stack: "basic"}}}
	client, _ := rpcPair(t, &RPCServer{Runner: &stubRunner{}, History: history, Log: discardLogger()})

	var resp StatusResponse
	require.NoError(t, client.Call(context.Background(), "status", map[string]int{"limit": 3}, &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, int64(7), resp.Runs[0].ID)
	assert.Equal(t, 3, history.limit)
}

func TestRPCServerUnknownMethod(t *testing.T) {
	client, _ := rpcPair(t, &RPCServer{Runner: &stubRunner{}, Log: discardLogger()})

	err := client.Call(context.Background(), "bogus", nil, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}
