package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/rpc/coretypes"
	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
	rpctest "github.com/tendermint/lightnode/rpc/test"
)

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := New(addr)
	require.NoError(t, err)
	return c
}

func TestClientCall(t *testing.T) {
	node := rpctest.NewNode("test-chain")
	t.Cleanup(node.Close)
	c := newTestClient(t, node.Addr())

	var status coretypes.ResultStatus
	require.NoError(t, c.Call(context.Background(), "status", nil, &status))
	assert.Equal(t, "test-chain", status.NodeInfo.Network)
	assert.EqualValues(t, 0, status.SyncInfo.LatestBlockHeight)

	// IDs increase, and calls without a result only check for errors
	require.NoError(t, c.Call(context.Background(), "status", map[string]interface{}{}, nil))
	assert.Equal(t, 2, node.Calls("status"))
}

func TestClientCallRPCError(t *testing.T) {
	node := rpctest.NewNode("test-chain")
	t.Cleanup(node.Close)
	c := newTestClient(t, node.Addr())

	err := c.Call(context.Background(), "commit", map[string]interface{}{"height": "10"}, nil)
	var rpcErr *rpctypes.RPCError
	require.True(t, errors.As(err, &rpcErr), err)
	assert.Equal(t, -32603, rpcErr.Code)
	assert.Contains(t, rpcErr.Data, "height 10 must be less than or equal to")

	err = c.Call(context.Background(), "no_such_method", nil, nil)
	require.True(t, errors.As(err, &rpcErr), err)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestClientCallBadResponses(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"wrong ID", http.StatusOK, `{"jsonrpc":"2.0","id":42,"result":{}}`, "wrong ID"},
		{"string ID", http.StatusOK, `{"jsonrpc":"2.0","id":"1","result":{}}`, "expected JSONRPCIntID"},
		{"no ID", http.StatusOK, `{"jsonrpc":"2.0","result":{}}`, "no ID"},
		{"not JSON", http.StatusOK, `<html></html>`, "error unmarshaling"},
		{"bad gateway", http.StatusBadGateway, `<html>bad gateway</html>`, "502 Bad Gateway"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			var res json.RawMessage
			err := newTestClient(t, ts.URL).Call(context.Background(), "status", nil, &res)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Equal(t, tc.status == http.StatusOK, errors.Is(err, ErrInvalidResponse))
		})
	}
}

func TestClientCallContextCanceled(t *testing.T) {
	node := rpctest.NewNode("test-chain")
	t.Cleanup(node.Close)
	c := newTestClient(t, node.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Call(ctx, "status", nil, nil)
	assert.True(t, errors.Is(err, context.Canceled), err)
}

func TestNewWithHTTPClientPanicsOnNil(t *testing.T) {
	r, err := ParseRemote("tcp://127.0.0.1:26657")
	require.NoError(t, err)
	assert.Panics(t, func() { NewWithHTTPClient(r, nil) })
}
