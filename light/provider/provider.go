package provider

import (
	"context"
	"time"

	tmbytes "github.com/tendermint/lightnode/libs/bytes"
	"github.com/tendermint/lightnode/types"
)

// Status is the chain tip as reported by a full node.
type Status struct {
	LatestHeight    int64
	LatestBlockHash tmbytes.HexBytes
	LatestBlockTime time.Time
}

// Provider provides information for the light client to sync (verification
// happens in the client).
//
// Every method is safe for concurrent use. After Close, every method returns
// ErrClosed.
type Provider interface {
	// Status returns the latest height known to the full node.
	Status(ctx context.Context) (*Status, error)

	// Commit returns the header at height and the commit for it.
	//
	// height must be > 0. If there's no header for the given height,
	// ErrSignedHeaderNotFound is returned.
	Commit(ctx context.Context, height int64) (*types.SignedHeader, error)

	// Validators returns the complete validator set of the block at height.
	//
	// If there's no set for the given height, ErrValidatorSetNotFound is
	// returned.
	Validators(ctx context.Context, height int64) (*types.ValidatorSet, error)

	// Subscribe delivers the headers of new blocks matching query until ctx
	// is done or the provider is closed. The channel is closed then.
	Subscribe(ctx context.Context, query string) (<-chan *types.Header, error)

	// Close releases the connection. It is idempotent.
	Close() error

	// String identifies the full node, e.g. by its address.
	String() string
}
