package light

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tendermint/lightnode/codec"
	"github.com/tendermint/lightnode/libs/events"
	"github.com/tendermint/lightnode/libs/log"
	"github.com/tendermint/lightnode/libs/service"
	"github.com/tendermint/lightnode/light/provider"
	"github.com/tendermint/lightnode/types"
)

// DefaultSubscribeQuery selects the header of every new block.
const DefaultSubscribeQuery = "tm.event = 'NewBlockHeader'"

// Events fired by the client. The data of EventSynced and EventUpdate is the
// new trusted *types.LightBlock; the data of EventError is the error.
const (
	EventSynced = "synced"
	EventUpdate = "update"
	EventError  = "error"
)

// State is the lifecycle stage of a Client.
type State int32

const (
	StateIdle State = iota
	StateInitialSync
	StateBisecting
	StateSubscribed
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialSync:
		return "initial-sync"
	case StateBisecting:
		return "bisecting"
	case StateSubscribed:
		return "subscribed"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option sets a parameter for the light client.
type Option func(*Client)

// Logger option can be used to set a logger for the client.
func Logger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// MaxClockDrift defines how much new header's time can drift into
// the future relative to the light clients local time. Default: 4h.
func MaxClockDrift(d time.Duration) Option {
	return func(c *Client) {
		c.maxClockDrift = d
	}
}

// MaxAge defines how old the trusted header may be when it is used to verify
// a new one. Default: 30 days.
func MaxAge(d time.Duration) Option {
	return func(c *Client) {
		c.maxAge = d
	}
}

// StrictAddresses option turns the check that validator addresses are derived
// from their public keys on or off. Default: on.
func StrictAddresses(strict bool) Option {
	return func(c *Client) {
		c.strictAddresses = strict
	}
}

// Clock option sets the source of the local time. Default: time.Now.
func Clock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithMetrics option sets the metrics of the client. Default: NopMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// SubscribeQuery option sets the query new headers are subscribed with.
// Default: DefaultSubscribeQuery.
func SubscribeQuery(q string) Option {
	return func(c *Client) {
		c.query = q
	}
}

// Client follows a single chain through a single provider. It starts from a
// trusted light block and only ever replaces it with a higher block verified
// by Verify.
//
// Start syncs to the latest height and then follows new headers as the
// provider announces them. Headers are verified one height at a time;
// when a header can't be trusted directly, the client bisects towards it.
type Client struct {
	service.BaseService

	chainID         string
	cdc             codec.Codec
	provider        provider.Provider
	maxClockDrift   time.Duration
	maxAge          time.Duration
	strictAddresses bool
	now             func() time.Time
	query           string

	logger  log.Logger
	metrics *Metrics
	evsw    events.EventSwitch

	// syncMtx serializes writers of the trusted state.
	syncMtx sync.Mutex

	mtx                sync.RWMutex
	latestTrustedBlock *types.LightBlock
	state              State
	err                error

	syncing int32 // atomic; 1 while a catch-up routine runs
	target  int64 // atomic; highest height announced by the provider

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient returns a new light client for chainID which trusts trusted.
//
// trusted is checked with VerifyTrustedState. A first block without a commit
// is accepted as a genesis state.
//
// See all Option(s) for the additional configuration.
func NewClient(
	chainID string,
	trusted *types.LightBlock,
	p provider.Provider,
	cdc codec.Codec,
	options ...Option) (*Client, error) {

	c := &Client{
		chainID:         chainID,
		cdc:             cdc,
		provider:        p,
		maxClockDrift:   DefaultMaxClockDrift,
		maxAge:          DefaultMaxAge,
		strictAddresses: true,
		now:             time.Now,
		query:           DefaultSubscribeQuery,
		logger:          log.NewNopLogger(),
		metrics:         NopMetrics(),
		evsw:            events.NewEventSwitch(),
		cancel:          func() {},
	}
	for _, o := range options {
		o(c)
	}
	c.BaseService = *service.NewBaseService(c.logger, "LightClient", c)

	if trusted == nil || trusted.SignedHeader == nil || trusted.Header == nil {
		return nil, errors.New("missing trusted light block")
	}
	if trusted.ChainID != chainID {
		return nil, ErrChainIDMismatch{Trusted: chainID, Untrusted: trusted.ChainID}
	}
	if !c.strictAddresses {
		c.logger.Error("Validator address checks are disabled; a peer may send validators whose address does not match their keys")
	}

	lb, err := VerifyTrustedState(cdc, trusted, c.strictAddresses)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted state: %w", err)
	}
	c.latestTrustedBlock = lb
	c.target = lb.Height
	c.metrics.TrustedHeight.Set(float64(lb.Height))

	return c, nil
}

// Events returns the switch the client fires EventSynced, EventUpdate and
// EventError on.
func (c *Client) Events() events.EventSwitch {
	return c.evsw
}

// ChainID returns the chain ID the light client was configured with.
func (c *Client) ChainID() string {
	return c.chainID
}

// TrustedLightBlock returns the latest trusted light block. The returned block
// must not be modified.
func (c *Client) TrustedLightBlock() *types.LightBlock {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.latestTrustedBlock
}

// LastTrustedHeight returns the height of the latest trusted light block.
func (c *Client) LastTrustedHeight() int64 {
	return c.TrustedLightBlock().Height
}

// State returns the lifecycle stage of the client.
func (c *Client) State() State {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.state
}

// Err returns the error the client failed with, if any.
func (c *Client) Err() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.err
}

// OnStart syncs to the latest height reported by the provider and subscribes
// to new headers. A failure is fatal: the client closes the provider, fires
// EventError and returns the error.
func (c *Client) OnStart(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.setState(StateInitialSync)
	if err := c.initialSync(ctx); err != nil {
		c.fail(err)
		cancel()
		return err
	}
	c.evsw.FireEvent(EventSynced, c.TrustedLightBlock())

	headers, err := c.provider.Subscribe(ctx, c.query)
	if err != nil {
		err = fmt.Errorf("subscribe to %q: %w", c.query, err)
		c.fail(err)
		cancel()
		return err
	}
	c.setState(StateSubscribed)
	c.logger.Info("Subscribed to new headers", "query", c.query)

	go c.subscriptionRoutine(ctx, headers)
	return nil
}

// OnStop closes the provider. An ongoing sync fails and is not reported.
func (c *Client) OnStop() {
	c.mtx.Lock()
	c.state = StateClosed
	c.mtx.Unlock()

	c.cancel()
	c.closeProvider()
}

func (c *Client) initialSync(ctx context.Context) error {
	status, err := c.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	c.raiseTarget(status.LatestHeight)

	c.logger.Info("Syncing to the latest height",
		"trusted", c.LastTrustedHeight(), "latest", status.LatestHeight)
	if err := c.SyncTo(ctx, status.LatestHeight); err != nil {
		return err
	}
	c.logger.Info("Synced", "height", c.LastTrustedHeight())
	return nil
}

func (c *Client) subscriptionRoutine(ctx context.Context, headers <-chan *types.Header) {
	for {
		select {
		case h, ok := <-headers:
			if !ok {
				if ctx.Err() == nil {
					c.fail(ErrSubscriptionClosed)
				}
				return
			}
			if h == nil {
				continue
			}
			c.raiseTarget(h.Height)
			// at most one catch-up routine
			if atomic.CompareAndSwapInt32(&c.syncing, 0, 1) {
				go c.catchUp(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

// catchUp verifies one height at a time until the client reaches the
// target. The caller must have set the syncing flag.
func (c *Client) catchUp(ctx context.Context) {
	for {
		for c.LastTrustedHeight() < atomic.LoadInt64(&c.target) {
			if err := c.SyncTo(ctx, c.LastTrustedHeight()+1); err != nil {
				atomic.StoreInt32(&c.syncing, 0)
				if ctx.Err() == nil {
					c.fail(err)
				}
				return
			}
		}

		atomic.StoreInt32(&c.syncing, 0)
		// The target may have been raised after the last check, while the
		// flag was still set. Take the flag back if nobody else did.
		if c.LastTrustedHeight() >= atomic.LoadInt64(&c.target) ||
			!atomic.CompareAndSwapInt32(&c.syncing, 0, 1) {
			return
		}
	}
}

func (c *Client) raiseTarget(height int64) {
	for {
		cur := atomic.LoadInt64(&c.target)
		if height <= cur || atomic.CompareAndSwapInt64(&c.target, cur, height) {
			return
		}
	}
}

// SyncTo verifies the header at height target and makes it the trusted one.
//
// If the trusted validators do not vouch for that header, the header halfway
// between the trusted height and the tried height is tried instead, and the
// sync continues from it once verified. It fails with
// ErrValidatorSetChangedTooMuch when even the next height can't be verified.
// Any other verification error is returned as is.
//
// It does nothing if target is not above the trusted height.
func (c *Client) SyncTo(ctx context.Context, target int64) error {
	c.syncMtx.Lock()
	defer c.syncMtx.Unlock()

	if err := c.checkUsable(); err != nil {
		return err
	}
	prev := c.State()
	defer func() {
		c.mtx.Lock()
		if c.state == StateBisecting {
			c.state = prev
		}
		c.mtx.Unlock()
	}()

	next := target
	for {
		trustedHeight := c.LastTrustedHeight()
		if next <= trustedHeight {
			return nil
		}

		sh, err := c.provider.Commit(ctx, next)
		if err != nil {
			return fmt.Errorf("get commit #%d: %w", next, err)
		}
		err = c.update(ctx, &types.LightBlock{SignedHeader: sh})

		var errPower ErrNotEnoughVotingPower
		switch {
		case err == nil:
			if next == target {
				return nil
			}
			next = target

		case errors.As(err, &errPower):
			if next == trustedHeight+1 {
				// should not happen unless the peer sends us a fake transition
				c.metrics.VerificationFailures.Add(1)
				return ErrValidatorSetChangedTooMuch{From: trustedHeight, To: next, Reason: err}
			}
			// try going halfway back
			midpoint := trustedHeight + (next-trustedHeight+1)/2
			c.logger.Debug("Can't verify header with trusted validators, bisecting",
				"trusted", trustedHeight, "tried", next, "next", midpoint, "err", err)
			c.metrics.BisectionSteps.Add(1)
			c.setState(StateBisecting)
			next = midpoint

		default:
			c.metrics.VerificationFailures.Add(1)
			return err
		}
	}
}

// Update verifies lb against the trusted light block and makes it the
// trusted one. If the validator set of lb is nil and its header announces a
// different set, the set is fetched from the provider.
func (c *Client) Update(ctx context.Context, lb *types.LightBlock) error {
	c.syncMtx.Lock()
	defer c.syncMtx.Unlock()

	if err := c.checkUsable(); err != nil {
		return err
	}
	err := c.update(ctx, lb)
	var errPower ErrNotEnoughVotingPower
	if err != nil && !errors.As(err, &errPower) {
		c.metrics.VerificationFailures.Add(1)
	}
	return err
}

// update must be called with syncMtx held.
func (c *Client) update(ctx context.Context, lb *types.LightBlock) error {
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return ErrInvalidHeader{errors.New("missing header")}
	}
	trusted := c.TrustedLightBlock()

	untrusted := &types.LightBlock{SignedHeader: lb.SignedHeader, ValidatorSet: lb.ValidatorSet}
	if !bytes.Equal(lb.ValidatorsHash, trusted.ValidatorsHash) {
		if untrusted.ValidatorSet == nil {
			vals, err := c.provider.Validators(ctx, lb.Height)
			if err != nil {
				return fmt.Errorf("get validators #%d: %w", lb.Height, err)
			}
			untrusted.ValidatorSet = vals
		}
	} else {
		untrusted.ValidatorSet = trusted.ValidatorSet
	}

	opts := VerifyOptions{
		Now:             c.now(),
		MaxClockDrift:   c.maxClockDrift,
		MaxAge:          c.maxAge,
		StrictAddresses: c.strictAddresses,
	}
	if err := Verify(c.cdc, trusted, untrusted, opts); err != nil {
		return ErrVerificationFailed{From: trusted.Height, To: lb.Height, Reason: err}
	}

	c.mtx.Lock()
	c.latestTrustedBlock = untrusted
	c.mtx.Unlock()

	c.metrics.TrustedHeight.Set(float64(untrusted.Height))
	c.metrics.VerifiedHeaders.Add(1)
	c.logger.Info("Advanced to new state", "height", untrusted.Height, "hash", untrusted.Commit.BlockID.Hash)
	c.evsw.FireEvent(EventUpdate, untrusted)
	return nil
}

func (c *Client) checkUsable() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	switch c.state {
	case StateFailed:
		return fmt.Errorf("%w: %v", ErrClientFailed, c.err)
	case StateClosed:
		return ErrClientClosed
	}
	return nil
}

func (c *Client) setState(s State) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state == StateFailed || c.state == StateClosed {
		return
	}
	c.state = s
}

// fail records err, closes the provider and fires EventError. Only the
// first error is reported and nothing is reported after Stop.
func (c *Client) fail(err error) {
	c.mtx.Lock()
	if c.state == StateFailed || c.state == StateClosed {
		c.mtx.Unlock()
		return
	}
	c.state = StateFailed
	c.err = err
	c.mtx.Unlock()

	c.logger.Error("Light client failed", "err", err, "height", c.LastTrustedHeight())
	c.closeProvider()
	c.evsw.FireEvent(EventError, err)
}

func (c *Client) closeProvider() {
	c.closeOnce.Do(func() {
		if err := c.provider.Close(); err != nil {
			c.logger.Error("Can't close provider", "err", err)
		}
	})
}
