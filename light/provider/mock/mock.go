package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tendermint/lightnode/light/provider"
	"github.com/tendermint/lightnode/types"
)

// Mock is an in-memory provider serving a fixed set of headers and validator
// sets. Headers given to Publish are delivered to subscribers.
type Mock struct {
	chainID string

	mtx     sync.Mutex
	headers map[int64]*types.SignedHeader
	vals    map[int64]*types.ValidatorSet
	latest  int64
	subs    []chan *types.Header
	closed  bool

	// Counters of the requests served, for tests.
	commitCalls     int
	validatorsCalls int
}

var _ provider.Provider = (*Mock)(nil)

// New creates a mock provider with the given set of headers and validator
// sets. The latest height is the highest height of headers.
func New(chainID string, headers map[int64]*types.SignedHeader, vals map[int64]*types.ValidatorSet) *Mock {
	p := &Mock{
		chainID: chainID,
		headers: make(map[int64]*types.SignedHeader, len(headers)),
		vals:    make(map[int64]*types.ValidatorSet, len(vals)),
	}
	for h, sh := range headers {
		p.headers[h] = sh
		if h > p.latest {
			p.latest = h
		}
	}
	for h, v := range vals {
		p.vals[h] = v
	}
	return p
}

// ChainID returns the blockchain ID.
func (p *Mock) ChainID() string {
	return p.chainID
}

func (p *Mock) String() string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	heights := make([]int64, 0, len(p.headers))
	for h := range p.headers {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	var b strings.Builder
	for _, h := range heights {
		fmt.Fprintf(&b, " %d", h)
	}
	return fmt.Sprintf("Mock{chain: %s, headers:%s}", p.chainID, b.String())
}

func (p *Mock) Status(ctx context.Context) (*provider.Status, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil, provider.ErrClosed
	}

	st := &provider.Status{LatestHeight: p.latest}
	if sh, ok := p.headers[p.latest]; ok && sh.Header != nil {
		st.LatestBlockTime = sh.Time
		if sh.Commit != nil {
			st.LatestBlockHash = sh.Commit.BlockID.Hash
		}
	}
	return st, nil
}

func (p *Mock) Commit(ctx context.Context, height int64) (*types.SignedHeader, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil, provider.ErrClosed
	}
	p.commitCalls++

	sh, ok := p.headers[height]
	if !ok {
		return nil, provider.ErrSignedHeaderNotFound
	}
	return sh, nil
}

func (p *Mock) Validators(ctx context.Context, height int64) (*types.ValidatorSet, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil, provider.ErrClosed
	}
	p.validatorsCalls++

	vals, ok := p.vals[height]
	if !ok {
		return nil, provider.ErrValidatorSetNotFound
	}
	return vals, nil
}

// Subscribe ignores query: every published header is delivered.
func (p *Mock) Subscribe(ctx context.Context, query string) (<-chan *types.Header, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil, provider.ErrClosed
	}

	ch := make(chan *types.Header, 16)
	p.subs = append(p.subs, ch)

	go func() {
		<-ctx.Done()
		p.unsubscribe(ch)
	}()
	return ch, nil
}

func (p *Mock) unsubscribe(ch chan *types.Header) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	for i, sub := range p.subs {
		if sub == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// AddBlock makes sh and vals available at the height of sh without notifying
// subscribers.
func (p *Mock) AddBlock(sh *types.SignedHeader, vals *types.ValidatorSet) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.headers[sh.Height] = sh
	if vals != nil {
		p.vals[sh.Height] = vals
	}
	if sh.Height > p.latest {
		p.latest = sh.Height
	}
}

// Publish adds a block like AddBlock and delivers its header to every
// subscriber. A subscriber whose buffer is full misses the header.
func (p *Mock) Publish(sh *types.SignedHeader, vals *types.ValidatorSet) {
	p.AddBlock(sh, vals)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- sh.Header:
		default:
		}
	}
}

// Close closes every subscription. It is idempotent.
func (p *Mock) Close() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
	return nil
}

// IsClosed reports whether Close was called.
func (p *Mock) IsClosed() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.closed
}

// Calls returns how many Commit and Validators requests were served.
func (p *Mock) Calls() (commits, validators int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.commitCalls, p.validatorsCalls
}
