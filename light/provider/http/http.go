// Package http implements a provider backed by the RPC server of a full
// node: JSON-RPC over HTTP for queries and a websocket for subscriptions.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tendermint/lightnode/libs/log"
	"github.com/tendermint/lightnode/light/provider"
	"github.com/tendermint/lightnode/rpc/coretypes"
	rpcclient "github.com/tendermint/lightnode/rpc/jsonrpc/client"
	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
	"github.com/tendermint/lightnode/types"
)

// This is very brittle, see: https://github.com/tendermint/tendermint/issues/4740
var regexpMissingHeight = regexp.MustCompile(`height \d+ (must be less than or equal to|is not available)`)

// DefaultPerPage is the page size of validators queries.
const DefaultPerPage = 100

// HTTP is a provider that queries one full node. It is safe for concurrent
// use.
type HTTP struct {
	chainID string
	remote  rpcclient.Remote
	client  rpcclient.Caller
	perPage int
	logger  log.Logger

	mtx    sync.Mutex
	ws     *rpcclient.WSClient
	closed bool
	quit   chan struct{}
}

var _ provider.Provider = (*HTTP)(nil)

// Option sets a parameter of the provider.
type Option func(*HTTP)

// PerPage sets the page size of validators queries. The full node may
// serve smaller pages.
func PerPage(n int) Option {
	return func(p *HTTP) {
		if n > 0 {
			p.perPage = n
		}
	}
}

// Logger sets the logger of the provider and its websocket.
func Logger(l log.Logger) Option {
	return func(p *HTTP) { p.logger = l }
}

// New creates a HTTP provider for the full node at remote, an address
// accepted by rpcclient.ParseRemote. If no scheme is provided in the remote
// URL, http will be used by default.
func New(chainID, remote string, options ...Option) (*HTTP, error) {
	r, err := rpcclient.ParseRemote(remote)
	if err != nil {
		return nil, err
	}
	return NewWithClient(chainID, r, rpcclient.NewWithHTTPClient(r, rpcclient.DefaultHTTPClient()), options...), nil
}

// NewWithClient allows you to provide a custom client for the queries. The
// websocket is dialed at r.
func NewWithClient(chainID string, r rpcclient.Remote, client rpcclient.Caller, options ...Option) *HTTP {
	p := &HTTP{
		chainID: chainID,
		remote:  r,
		client:  client,
		perPage: DefaultPerPage,
		logger:  log.NewNopLogger(),
		quit:    make(chan struct{}),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// ChainID returns a chainID this provider was configured with.
func (p *HTTP) ChainID() string {
	return p.chainID
}

func (p *HTTP) String() string {
	return fmt.Sprintf("http{%s}", p.remote)
}

// Status returns the latest block of the full node. A node serving another
// chain is a bad response.
func (p *HTTP) Status(ctx context.Context) (*provider.Status, error) {
	var res coretypes.ResultStatus
	if err := p.call(ctx, "status", nil, &res); err != nil {
		return nil, err
	}
	if res.NodeInfo.Network != "" && res.NodeInfo.Network != p.chainID {
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("expected chain ID %q, got %q", p.chainID, res.NodeInfo.Network),
		}
	}
	return &provider.Status{
		LatestHeight:    int64(res.SyncInfo.LatestBlockHeight),
		LatestBlockHash: res.SyncInfo.LatestBlockHash,
		LatestBlockTime: res.SyncInfo.LatestBlockTime,
	}, nil
}

// Commit fetches the signed header at height.
func (p *HTTP) Commit(ctx context.Context, height int64) (*types.SignedHeader, error) {
	if err := validateHeight(height); err != nil {
		return nil, err
	}

	var res coretypes.ResultCommit
	if err := p.call(ctx, "commit", heightParams(height), &res); err != nil {
		// TODO: standardize errors on the RPC side
		if isMissingHeight(err) {
			return nil, provider.ErrSignedHeaderNotFound
		}
		return nil, err
	}

	if res.Header == nil || res.Commit == nil {
		return nil, provider.ErrBadResponse{Reason: errors.New("signed header is nil")}
	}
	if res.Header.Height != height {
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("expected header at height %d, got %d", height, res.Header.Height),
		}
	}
	return &res.SignedHeader, nil
}

// Validators fetches the validator set of height, page by page. The pages
// after the first are fetched concurrently.
func (p *HTTP) Validators(ctx context.Context, height int64) (*types.ValidatorSet, error) {
	if err := validateHeight(height); err != nil {
		return nil, err
	}

	first, err := p.validatorsPage(ctx, height, 1)
	if err != nil {
		return nil, err
	}
	total := int(first.Total)
	perPage := len(first.Validators)
	if total == perPage {
		return types.NewValidatorSet(first.Validators), nil
	}
	if perPage == 0 || perPage > total {
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("page 1 has %d of %d validators", perPage, total),
		}
	}

	pages := (total + perPage - 1) / perPage
	results := make([][]*types.Validator, pages)
	results[0] = first.Validators

	g, gctx := errgroup.WithContext(ctx)
	for page := 2; page <= pages; page++ {
		page := page
		g.Go(func() error {
			res, err := p.validatorsPage(gctx, height, page)
			if err != nil {
				return err
			}
			if int(res.Total) != total {
				return provider.ErrBadResponse{
					Reason: fmt.Errorf("page %d: total changed from %d to %d", page, total, res.Total),
				}
			}
			results[page-1] = res.Validators
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vals := make([]*types.Validator, 0, total)
	for _, r := range results {
		vals = append(vals, r...)
	}
	if len(vals) != total {
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("got %d validators, expected %d", len(vals), total),
		}
	}
	return types.NewValidatorSet(vals), nil
}

func (p *HTTP) validatorsPage(ctx context.Context, height int64, page int) (*coretypes.ResultValidators, error) {
	params := heightParams(height)
	params["page"] = strconv.Itoa(page)
	params["per_page"] = strconv.Itoa(p.perPage)

	var res coretypes.ResultValidators
	if err := p.call(ctx, "validators", params, &res); err != nil {
		// TODO: standardize errors on the RPC side
		if isMissingHeight(err) {
			return nil, provider.ErrValidatorSetNotFound
		}
		return nil, err
	}

	switch {
	case int64(res.BlockHeight) != height:
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("expected validators at height %d, got %d", height, res.BlockHeight),
		}
	case int(res.Count) != len(res.Validators):
		return nil, provider.ErrBadResponse{
			Reason: fmt.Errorf("page %d: count is %d, got %d validators", page, res.Count, len(res.Validators)),
		}
	}
	for i, v := range res.Validators {
		if v == nil {
			return nil, provider.ErrBadResponse{Reason: fmt.Errorf("page %d: validator #%d is nil", page, i)}
		}
	}
	return &res, nil
}

// LightBlock fetches the signed header and the validator set at height
// concurrently. Height 0 is the latest block.
func (p *HTTP) LightBlock(ctx context.Context, height int64) (*types.LightBlock, error) {
	if height == 0 {
		status, err := p.Status(ctx)
		if err != nil {
			return nil, err
		}
		height = status.LatestHeight
	}

	var lb types.LightBlock
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lb.SignedHeader, err = p.Commit(gctx, height)
		return err
	})
	g.Go(func() (err error) {
		lb.ValidatorSet, err = p.Validators(gctx, height)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &lb, nil
}

// Subscribe dials the websocket on first use and delivers the headers of
// the NewBlockHeader events matching query. Events of other types are
// skipped. The channel is closed when an event cannot be decoded.
func (p *HTTP) Subscribe(ctx context.Context, query string) (<-chan *types.Header, error) {
	ws, err := p.wsClient(ctx)
	if err != nil {
		return nil, err
	}
	events, err := ws.Subscribe(ctx, query)
	if err != nil {
		return nil, p.mapErr(err)
	}

	out := make(chan *types.Header)
	go func() {
		defer close(out)
		for raw := range events {
			header, err := decodeNewBlockHeader(raw)
			if err != nil {
				p.logger.Error("failed to decode event", "err", err)
				return
			}
			if header == nil {
				p.logger.Debug("skipping event", "event", string(raw))
				continue
			}
			select {
			case out <- header:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeNewBlockHeader(raw json.RawMessage) (*types.Header, error) {
	var ev coretypes.ResultEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	if ev.Data.Type != coretypes.EventNewBlockHeaderType {
		return nil, nil
	}
	var data coretypes.EventDataNewBlockHeader
	if err := json.Unmarshal(ev.Data.Value, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", ev.Data.Type, err)
	}
	return &data.Header, nil
}

func (p *HTTP) wsClient(ctx context.Context) (*rpcclient.WSClient, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil, provider.ErrClosed
	}
	if p.ws == nil {
		ws, err := rpcclient.DialWS(ctx, p.remote, rpcclient.WSLogger(p.logger.With("module", "ws")))
		if err != nil {
			return nil, err
		}
		p.ws = ws
	}
	return p.ws, nil
}

// Close cancels the calls in flight and closes the websocket. It is
// idempotent.
func (p *HTTP) Close() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.quit)
	if p.ws != nil {
		return p.ws.Close()
	}
	return nil
}

func (p *HTTP) isClosed() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.closed
}

// call is client.Call, cancelled by Close.
func (p *HTTP) call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error {
	if p.isClosed() {
		return provider.ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return p.mapErr(p.client.Call(ctx, method, params, result))
}

func (p *HTTP) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case p.isClosed(), errors.Is(err, rpcclient.ErrClosed):
		return provider.ErrClosed
	case errors.Is(err, rpcclient.ErrInvalidResponse):
		return provider.ErrBadResponse{Reason: err}
	default:
		return err
	}
}

func isMissingHeight(err error) bool {
	var rpcErr *rpctypes.RPCError
	return errors.As(err, &rpcErr) && regexpMissingHeight.MatchString(rpcErr.Error())
}

func heightParams(height int64) map[string]interface{} {
	return map[string]interface{}{"height": strconv.FormatInt(height, 10)}
}

func validateHeight(height int64) error {
	if height <= 0 {
		return fmt.Errorf("expected height > 0, got height %d", height)
	}
	return nil
}
