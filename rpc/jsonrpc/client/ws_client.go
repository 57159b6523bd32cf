package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tendermint/lightnode/libs/log"
	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
)

const defaultWriteWait = 10 * time.Second

// WSClient is a JSON-RPC client over a websocket. Replies are matched to
// calls by request ID; the replies to a subscribe call are the events of the
// subscription. The methods of WSClient are safe for use by multiple
// goroutines.
//
// The connection is not re-established: once it fails, every call returns an
// error and every subscription channel is closed.
type WSClient struct {
	url    string
	logger log.Logger

	conn     *websocket.Conn
	writeMtx sync.Mutex // one writer per connection

	mtx     sync.Mutex
	nextID  rpctypes.JSONRPCIntID
	pending map[rpctypes.JSONRPCIntID]chan *rpctypes.RPCResponse
	subs    map[rpctypes.JSONRPCIntID]*subscription
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	confirmed bool // only accessed by readRoutine
	confirm   chan *rpctypes.RPCResponse
	in        chan json.RawMessage
	quit      chan struct{}
}

// WSOption sets a parameter of a WSClient.
type WSOption func(*WSClient)

// WSLogger sets the logger of the client.
func WSLogger(l log.Logger) WSOption {
	return func(c *WSClient) { c.logger = l }
}

// DialWS connects to the websocket endpoint of r.
func DialWS(ctx context.Context, r Remote, options ...WSOption) (*WSClient, error) {
	c := &WSClient{
		url:     r.WSURL(),
		logger:  log.NewNopLogger(),
		pending: make(map[rpctypes.JSONRPCIntID]chan *rpctypes.RPCResponse),
		subs:    make(map[rpctypes.JSONRPCIntID]*subscription),
		done:    make(chan struct{}),
	}
	for _, o := range options {
		o(c)
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn

	go c.readRoutine()
	return c, nil
}

// String returns WS client full address.
func (c *WSClient) String() string {
	return c.url
}

// Call sends a request and decodes its reply into result, unless it is nil.
func (c *WSClient) Call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error {
	replyCh := make(chan *rpctypes.RPCResponse, 1)
	id, err := c.register(func(id rpctypes.JSONRPCIntID) { c.pending[id] = replyCh })
	if err != nil {
		return err
	}
	defer c.unregister(id)

	if err := c.send(id, method, params); err != nil {
		return err
	}

	select {
	case resp := <-replyCh:
		return unmarshalResponse(resp, id, result)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	}
}

// Subscribe subscribes to the events matching query. The channel delivers
// the result of every event until ctx is done or the connection closes, and
// is closed then.
func (c *WSClient) Subscribe(ctx context.Context, query string) (<-chan json.RawMessage, error) {
	sub := &subscription{
		confirm: make(chan *rpctypes.RPCResponse, 1),
		in:      make(chan json.RawMessage),
		quit:    make(chan struct{}),
	}
	id, err := c.register(func(id rpctypes.JSONRPCIntID) { c.subs[id] = sub })
	if err != nil {
		return nil, err
	}

	if err := c.send(id, "subscribe", map[string]interface{}{"query": query}); err != nil {
		c.unregister(id)
		return nil, err
	}

	select {
	case resp := <-sub.confirm:
		if err := unmarshalResponse(resp, id, nil); err != nil {
			c.unregister(id)
			return nil, fmt.Errorf("subscribe to %q: %w", query, err)
		}
	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closedErr()
	}

	out := make(chan json.RawMessage)
	go func() {
		defer close(out)
		defer close(sub.quit)
		defer c.unregister(id)
		for {
			select {
			case ev := <-sub.in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-c.done:
					return
				}
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()
	return out, nil
}

// Close closes the connection. It is idempotent.
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMtx.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMtx.Unlock()

		c.mtx.Lock()
		if c.err == nil {
			c.err = ErrClosed
		}
		c.mtx.Unlock()

		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *WSClient) closedErr() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.err
}

func (c *WSClient) register(add func(rpctypes.JSONRPCIntID)) (rpctypes.JSONRPCIntID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.nextID++
	add(c.nextID)
	return c.nextID, nil
}

func (c *WSClient) unregister(id rpctypes.JSONRPCIntID) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.pending, id)
	delete(c.subs, id)
}

func (c *WSClient) send(id rpctypes.JSONRPCIntID, method string, params map[string]interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	request, err := rpctypes.ParamsToRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteWait)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(request); err != nil {
		c.logger.Error("failed to send request", "err", err)
		return fmt.Errorf("send %s: %w", method, err)
	}
	c.logger.Debug("sent a request", "req", request)
	return nil
}

// The client ensures that there is at most one reader to a connection by
// executing all reads from this goroutine.
func (c *WSClient) readRoutine() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("failed to read response", "err", err)
				c.mtx.Lock()
				if c.err == nil {
					c.err = fmt.Errorf("websocket disconnected: %w", err)
				}
				c.mtx.Unlock()
				_ = c.Close()
			}
			return
		}

		resp := &rpctypes.RPCResponse{}
		if err := json.Unmarshal(data, resp); err != nil {
			c.logger.Error("failed to parse response", "err", err, "data", string(data))
			continue
		}
		id, ok := resp.ID.(rpctypes.JSONRPCIntID)
		if !ok {
			c.logger.Debug("dropping response without a known ID", "resp", resp)
			continue
		}

		c.mtx.Lock()
		replyCh, isCall := c.pending[id]
		sub, isSub := c.subs[id]
		if isCall {
			delete(c.pending, id)
		}
		c.mtx.Unlock()

		switch {
		case isCall:
			replyCh <- resp
		case isSub:
			c.deliver(sub, resp)
		default:
			c.logger.Debug("dropping unsolicited response", "id", id)
		}
	}
}

func (c *WSClient) deliver(sub *subscription, resp *rpctypes.RPCResponse) {
	// the first reply confirms the subscription
	if !sub.confirmed {
		sub.confirmed = true
		sub.confirm <- resp
		return
	}
	if resp.Error != nil {
		c.logger.Error("subscription error", "err", resp.Error)
		return
	}
	select {
	case sub.in <- resp.Result:
	case <-sub.quit:
	case <-c.done:
	}
}
