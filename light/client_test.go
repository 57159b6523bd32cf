package light_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/codec"
	"github.com/tendermint/lightnode/libs/events"
	"github.com/tendermint/lightnode/libs/log"
	"github.com/tendermint/lightnode/light"
	"github.com/tendermint/lightnode/light/lighttest"
	"github.com/tendermint/lightnode/light/provider"
	mockp "github.com/tendermint/lightnode/light/provider/mock"
	"github.com/tendermint/lightnode/types"
)

var (
	cdc       = codec.MustNew(codec.VersionProto)
	testClock = light.Clock(func() time.Time { return lighttest.GenesisTime.Add(3 * time.Hour) })
)

// newProvider serves the blocks of chain up to and including height.
func newProvider(chain lighttest.Chain, height int64) *mockp.Mock {
	headers := make(map[int64]*types.SignedHeader)
	vals := make(map[int64]*types.ValidatorSet)
	for h := int64(1); h <= height; h++ {
		headers[h] = chain.Headers[h]
		vals[h] = chain.Validators[h]
	}
	return mockp.New(lighttest.ChainID, headers, vals)
}

func newClient(t *testing.T, chain lighttest.Chain, p provider.Provider) *light.Client {
	t.Helper()
	c, err := light.NewClient(lighttest.ChainID, chain.LightBlock(1), p, cdc,
		light.Logger(log.TestingLogger()), testClock)
	require.NoError(t, err)
	return c
}

func sameSetChain(n int64) lighttest.Chain {
	keys := lighttest.GenPrivKeys(3, "client")
	return lighttest.GenChain(cdc, n, func(int64) lighttest.PrivKeys { return keys })
}

func TestNewClient(t *testing.T) {
	chain := sameSetChain(2)
	p := newProvider(chain, 2)

	_, err := light.NewClient("other-chain", chain.LightBlock(1), p, cdc)
	var errChain light.ErrChainIDMismatch
	assert.ErrorAs(t, err, &errChain)

	bad := chain.LightBlock(2)
	bad.ValidatorSet = lighttest.GenPrivKeys(3, "other").ToValidators(cdc, 10, 0)
	_, err = light.NewClient(lighttest.ChainID, bad, p, cdc)
	var errHash light.ErrValidatorSetHashMismatch
	assert.ErrorAs(t, err, &errHash)

	_, err = light.NewClient(lighttest.ChainID, nil, p, cdc)
	assert.Error(t, err)

	c, err := light.NewClient(lighttest.ChainID, chain.LightBlock(2), p, cdc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.LastTrustedHeight())
	assert.Equal(t, light.StateIdle, c.State())
}

func TestClientSyncToBisection(t *testing.T) {
	chain := lighttest.GenBisectionChain(cdc)

	t.Run("to the last height signed by the trusted set", func(t *testing.T) {
		p := newProvider(chain, 100)
		c := newClient(t, chain, p)

		require.NoError(t, c.SyncTo(context.Background(), 49))
		if diff := cmp.Diff(chain.LightBlock(49), c.TrustedLightBlock()); diff != "" {
			t.Errorf("trusted light block mismatch (-want +got):\n%s", diff)
		}

		commits, validators := p.Calls()
		assert.Equal(t, 1, commits)
		assert.Equal(t, 0, validators, "validators are only fetched when the set changes")
	})

	t.Run("across a full change of validators", func(t *testing.T) {
		p := newProvider(chain, 100)
		c := newClient(t, chain, p)

		err := c.SyncTo(context.Background(), 100)
		var errChanged light.ErrValidatorSetChangedTooMuch
		require.ErrorAs(t, err, &errChanged)
		assert.EqualValues(t, 49, errChanged.From)
		assert.EqualValues(t, 50, errChanged.To)

		var errPower light.ErrNotEnoughVotingPower
		assert.ErrorAs(t, err, &errPower)

		// the headers verified on the way are kept
		assert.EqualValues(t, 49, c.LastTrustedHeight())
		assert.Equal(t, light.StateIdle, c.State())
	})
}

func TestClientMonotonicity(t *testing.T) {
	chain := sameSetChain(20)
	p := newProvider(chain, 20)
	c := newClient(t, chain, p)
	ctx := context.Background()

	require.NoError(t, c.SyncTo(ctx, 10))
	trusted := c.TrustedLightBlock()

	require.NoError(t, c.SyncTo(ctx, 5))
	assert.Same(t, trusted, c.TrustedLightBlock())

	err := c.Update(ctx, chain.LightBlock(7))
	var errHeight light.ErrNonIncreasingHeight
	require.ErrorAs(t, err, &errHeight)
	assert.Same(t, trusted, c.TrustedLightBlock())

	require.NoError(t, c.Update(ctx, chain.LightBlock(11)))
	assert.EqualValues(t, 11, c.LastTrustedHeight())
}

func TestClientUpdateFetchesChangedValidators(t *testing.T) {
	a := lighttest.GenPrivKeys(4, "update")
	chain := lighttest.GenChain(cdc, 3, func(h int64) lighttest.PrivKeys {
		if h < 3 {
			return a[:3]
		}
		return a[1:]
	})
	p := newProvider(chain, 3)
	c := newClient(t, chain, p)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, &types.LightBlock{SignedHeader: chain.Headers[2]}))
	_, validators := p.Calls()
	assert.Equal(t, 0, validators)

	require.NoError(t, c.Update(ctx, &types.LightBlock{SignedHeader: chain.Headers[3]}))
	_, validators = p.Calls()
	assert.Equal(t, 1, validators)
	assert.Equal(t, chain.Validators[3], c.TrustedLightBlock().ValidatorSet)
}

func TestClientFollowsNewHeaders(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	chain := sameSetChain(10)
	p := newProvider(chain, 5)
	c := newClient(t, chain, p)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var synced *types.LightBlock
	require.NoError(t, c.Events().AddListenerForEvent("test", light.EventSynced, func(data events.EventData) error {
		synced = data.(*types.LightBlock)
		return nil
	}))
	updates := make(chan int64, 10)
	require.NoError(t, c.Events().AddListenerForEvent("test", light.EventUpdate, func(data events.EventData) error {
		updates <- data.(*types.LightBlock).Height
		return nil
	}))

	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop() })

	require.NotNil(t, synced)
	assert.EqualValues(t, 5, synced.Height)
	assert.Equal(t, light.StateSubscribed, c.State())
	require.EqualValues(t, 5, <-updates)

	for h := int64(6); h <= 10; h++ {
		p.Publish(chain.Headers[h], chain.Validators[h])
	}
	for h := int64(6); h <= 10; h++ {
		select {
		case got := <-updates:
			assert.Equal(t, h, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for header #%d", h)
		}
	}
	assert.EqualValues(t, 10, c.LastTrustedHeight())

	require.NoError(t, c.Stop())
	assert.Equal(t, light.StateClosed, c.State())
	assert.True(t, p.IsClosed())
}

func TestClientFailsOnBadTransition(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	a, other := lighttest.GenPrivKeys(3, "fail"), lighttest.GenPrivKeys(3, "fail-other")
	chain := lighttest.GenChain(cdc, 6, func(h int64) lighttest.PrivKeys {
		if h < 6 {
			return a
		}
		return other
	})
	p := newProvider(chain, 5)
	c := newClient(t, chain, p)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errs := make(chan error, 1)
	require.NoError(t, c.Events().AddListenerForEvent("test", light.EventError, func(data events.EventData) error {
		errs <- data.(error)
		return nil
	}))

	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop() })

	p.Publish(chain.Headers[6], chain.Validators[6])

	select {
	case err := <-errs:
		var errChanged light.ErrValidatorSetChangedTooMuch
		assert.ErrorAs(t, err, &errChanged)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the error event")
	}

	assert.Equal(t, light.StateFailed, c.State())
	assert.True(t, p.IsClosed())
	assert.EqualValues(t, 5, c.LastTrustedHeight())

	err := c.SyncTo(ctx, 6)
	assert.True(t, errors.Is(err, light.ErrClientFailed))

	// an error is only reported once
	assert.Len(t, errs, 0)
}

func TestClientStartFails(t *testing.T) {
	chain := sameSetChain(3)
	p := newProvider(chain, 3)
	require.NoError(t, p.Close())
	c := newClient(t, chain, p)

	var reported error
	require.NoError(t, c.Events().AddListenerForEvent("test", light.EventError, func(data events.EventData) error {
		reported = data.(error)
		return nil
	}))

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, provider.ErrClosed)
	assert.ErrorIs(t, reported, provider.ErrClosed)
	assert.Equal(t, light.StateFailed, c.State())
	assert.False(t, c.IsRunning())
}
