// Package rpctest runs a fake full node for tests. It serves the status,
// commit, validators and subscribe methods of the Tendermint RPC, over HTTP
// and websocket, from blocks added in memory.
package rpctest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tendermint/lightnode/rpc/coretypes"
	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
	"github.com/tendermint/lightnode/types"
)

// Error codes of the JSON-RPC 2.0 spec.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// Node is a fake full node. Its methods are safe for concurrent use.
type Node struct {
	chainID string
	server  *httptest.Server

	mtx       sync.Mutex
	headers   map[int64]*types.SignedHeader
	vals      map[int64]*types.ValidatorSet
	latest    int64
	overrides map[string]json.RawMessage
	calls     map[string]int
	conns     map[*wsConn]struct{}
}

// NewNode starts a node for chainID. Close it when done.
func NewNode(chainID string) *Node {
	n := &Node{
		chainID:   chainID,
		headers:   make(map[int64]*types.SignedHeader),
		vals:      make(map[int64]*types.ValidatorSet),
		overrides: make(map[string]json.RawMessage),
		calls:     make(map[string]int),
		conns:     make(map[*wsConn]struct{}),
	}
	n.server = httptest.NewServer(n)
	return n
}

// Addr is the RPC address of the node, e.g. tcp://127.0.0.1:41234.
func (n *Node) Addr() string {
	return "tcp://" + strings.TrimPrefix(n.server.URL, "http://")
}

// AddBlock adds a block. The latest height is the highest height added.
func (n *Node) AddBlock(sh *types.SignedHeader, vals *types.ValidatorSet) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	h := sh.Header.Height
	n.headers[h] = sh
	n.vals[h] = vals
	if h > n.latest {
		n.latest = h
	}
}

// SetResult makes every later call of method return result verbatim.
func (n *Node) SetResult(method string, result json.RawMessage) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.overrides[method] = result
}

// Calls returns how often method was called.
func (n *Node) Calls(method string) int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.calls[method]
}

// Subscribers returns the number of open subscriptions.
func (n *Node) Subscribers() int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	count := 0
	for c := range n.conns {
		count += c.numSubs()
	}
	return count
}

// Publish sends a NewBlockHeader event for header to every subscriber.
func (n *Node) Publish(header *types.Header) error {
	value, err := json.Marshal(coretypes.EventDataNewBlockHeader{Header: *header})
	if err != nil {
		return err
	}
	return n.PublishData(coretypes.EventData{Type: coretypes.EventNewBlockHeaderType, Value: value})
}

// PublishData sends an event with arbitrary data to every subscriber.
func (n *Node) PublishData(data coretypes.EventData) error {
	n.mtx.Lock()
	conns := make([]*wsConn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	n.mtx.Unlock()

	for _, c := range conns {
		if err := c.publish(data); err != nil {
			return err
		}
	}
	return nil
}

// DropConnections closes every websocket connection.
func (n *Node) DropConnections() {
	n.mtx.Lock()
	conns := n.conns
	n.conns = make(map[*wsConn]struct{})
	n.mtx.Unlock()

	for c := range conns {
		c.conn.Close()
	}
}

// Close drops the websocket connections and stops the server.
func (n *Node) Close() {
	n.DropConnections()
	n.server.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/websocket" {
		n.serveWS(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeHTTP(w, response{Error: &rpctypes.RPCError{Code: codeInvalidRequest, Message: "Invalid Request", Data: err.Error()}})
		return
	}
	result, rpcErr := n.handle(req)
	writeHTTP(w, response{ID: req.ID, Result: result, Error: rpcErr})
}

func writeHTTP(w http.ResponseWriter, resp response) {
	resp.JSONRPC = "2.0"
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *Node) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}

	n.mtx.Lock()
	n.conns[c] = struct{}{}
	n.mtx.Unlock()
	defer func() {
		n.mtx.Lock()
		delete(n.conns, c)
		n.mtx.Unlock()
		conn.Close()
	}()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method == "subscribe" {
			n.mtx.Lock()
			n.calls[req.Method]++
			n.mtx.Unlock()

			var p params
			if err := json.Unmarshal(req.Params, &p); err != nil || p.Query == "" {
				_ = c.write(response{ID: req.ID, Error: &rpctypes.RPCError{Code: codeInvalidParams, Message: "Invalid params", Data: "missing query"}})
				continue
			}
			c.subscribe(req.ID, p.Query)
			if err := c.write(response{ID: req.ID, Result: json.RawMessage(`{}`)}); err != nil {
				return
			}
			continue
		}
		result, rpcErr := n.handle(req)
		if err := c.write(response{ID: req.ID, Result: result, Error: rpcErr}); err != nil {
			return
		}
	}
}

type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      json.RawMessage    `json:"id,omitempty"`
	Result  json.RawMessage    `json:"result,omitempty"`
	Error   *rpctypes.RPCError `json:"error,omitempty"`
}

type params struct {
	Height  *types.Int64 `json:"height"`
	Page    *types.Int64 `json:"page"`
	PerPage *types.Int64 `json:"per_page"`
	Query   string       `json:"query"`
}

func (n *Node) handle(req request) (json.RawMessage, *rpctypes.RPCError) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.calls[req.Method]++

	if result, ok := n.overrides[req.Method]; ok {
		return result, nil
	}

	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &rpctypes.RPCError{Code: codeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
	}

	var (
		result interface{}
		rpcErr *rpctypes.RPCError
	)
	switch req.Method {
	case "status":
		result = n.status()
	case "commit":
		result, rpcErr = n.commit(p)
	case "validators":
		result, rpcErr = n.validators(p)
	default:
		return nil, &rpctypes.RPCError{Code: codeMethodNotFound, Message: "Method not found"}
	}
	if rpcErr != nil {
		return nil, rpcErr
	}

	bz, err := json.Marshal(result)
	if err != nil {
		return nil, internalError(err.Error())
	}
	return bz, nil
}

func internalError(data string) *rpctypes.RPCError {
	return &rpctypes.RPCError{Code: codeInternal, Message: "Internal error", Data: data}
}

func (n *Node) status() *coretypes.ResultStatus {
	res := &coretypes.ResultStatus{
		NodeInfo: coretypes.NodeInfo{Network: n.chainID, Moniker: "rpctest"},
	}
	res.SyncInfo.LatestBlockHeight = types.Int64(n.latest)
	if sh, ok := n.headers[n.latest]; ok {
		res.SyncInfo.LatestBlockHash = sh.Commit.BlockID.Hash
		res.SyncInfo.LatestAppHash = sh.Header.AppHash
		res.SyncInfo.LatestBlockTime = sh.Header.Time
	}
	for h := range n.headers {
		if res.SyncInfo.EarliestBlockHeight == 0 || types.Int64(h) < res.SyncInfo.EarliestBlockHeight {
			res.SyncInfo.EarliestBlockHeight = types.Int64(h)
		}
	}
	return res
}

func (n *Node) height(p params) int64 {
	if p.Height == nil || *p.Height == 0 {
		return n.latest
	}
	return int64(*p.Height)
}

func (n *Node) commit(p params) (*coretypes.ResultCommit, *rpctypes.RPCError) {
	h := n.height(p)
	if h > n.latest {
		return nil, internalError(fmt.Sprintf("height %d must be less than or equal to the current blockchain height %d", h, n.latest))
	}
	sh, ok := n.headers[h]
	if !ok {
		return nil, internalError(fmt.Sprintf("height %d is not available", h))
	}
	return &coretypes.ResultCommit{SignedHeader: *sh, CanonicalCommit: true}, nil
}

func (n *Node) validators(p params) (*coretypes.ResultValidators, *rpctypes.RPCError) {
	h := n.height(p)
	if h > n.latest {
		return nil, internalError(fmt.Sprintf("height %d must be less than or equal to the current blockchain height %d", h, n.latest))
	}
	vals, ok := n.vals[h]
	if !ok {
		return nil, internalError(fmt.Sprintf("height %d is not available", h))
	}

	perPage := defaultPerPage
	if p.PerPage != nil && *p.PerPage > 0 {
		perPage = int(*p.PerPage)
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	total := len(vals.Validators)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	page := 1
	if p.Page != nil {
		page = int(*p.Page)
	}
	if page < 1 || page > pages {
		return nil, internalError(fmt.Sprintf("page should be within [1, %d] range, given %d", pages, page))
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return &coretypes.ResultValidators{
		BlockHeight: types.Int64(h),
		Validators:  vals.Validators[start:end],
		Count:       types.Int64(end - start),
		Total:       types.Int64(total),
	}, nil
}

type wsConn struct {
	conn *websocket.Conn

	mtx  sync.Mutex
	subs map[string]json.RawMessage // query -> subscribe request ID
}

func (c *wsConn) write(resp response) error {
	resp.JSONRPC = "2.0"
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.conn.WriteJSON(resp)
}

func (c *wsConn) subscribe(id json.RawMessage, query string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]json.RawMessage)
	}
	c.subs[query] = id
}

func (c *wsConn) numSubs() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.subs)
}

func (c *wsConn) publish(data coretypes.EventData) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for query, id := range c.subs {
		result, err := json.Marshal(coretypes.ResultEvent{Query: query, Data: data})
		if err != nil {
			return err
		}
		if err := c.conn.WriteJSON(response{JSONRPC: "2.0", ID: id, Result: result}); err != nil {
			return err
		}
	}
	return nil
}
