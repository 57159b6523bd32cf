package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync/atomic"
	"time"

	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
)

// ErrClosed is returned by a client after Close.
var ErrClosed = errors.New("rpc client is closed")

// Caller implementers can facilitate calling the JSON RPC endpoint.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error
}

// Client is a JSON-RPC client, which sends POST HTTP requests to the remote
// server.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	address string
	client  *http.Client

	nextID int64 // atomic
}

var _ Caller = (*Client)(nil)

// DefaultHTTPClient is used to create an http client with some default
// parameters.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			// Set to true to prevent GZIP-bomb DoS attacks
			DisableCompression: true,
			Proxy:              http.ProxyFromEnvironment,
		},
		Timeout: 30 * time.Second,
	}
}

// New returns a Client pointed at remote, parsed with ParseRemote.
func New(remote string) (*Client, error) {
	r, err := ParseRemote(remote)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(r, DefaultHTTPClient()), nil
}

// NewWithHTTPClient returns a Client pointed at r using a custom http client.
// The function panics if the provided client is nil.
func NewWithHTTPClient(r Remote, client *http.Client) *Client {
	if client == nil {
		panic("nil http.Client provided")
	}
	return &Client{
		address: r.HTTPURL(),
		client:  client,
	}
}

// Remote returns the URL requests are sent to.
func (c *Client) Remote() string {
	return c.address
}

// Call issues a POST HTTP request. params are encoded as a JSON object and
// the result is decoded into result, unless it is nil.
//
// An error returned by the server is an *rpctypes.RPCError.
func (c *Client) Call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error {
	id := rpctypes.JSONRPCIntID(atomic.AddInt64(&c.nextID, 1))

	if params == nil {
		params = map[string]interface{}{}
	}
	request, err := rpctypes.ParamsToRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address, bytes.NewBuffer(requestBytes))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close() // nolint: errcheck

	responseBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	// Errors are JSON-RPC responses too, sent with a non-200 status.
	if err := unmarshalResponseBytes(responseBytes, id, result); err != nil {
		var rpcErr *rpctypes.RPCError
		if resp.StatusCode != http.StatusOK && !errors.As(err, &rpcErr) {
			return fmt.Errorf("server at %s returned %s", c.address, resp.Status)
		}
		return err
	}
	return nil
}
