// Package coretypes holds the results of the Tendermint RPC methods the
// light client calls.
//
// Integers are decoded with types.Int64, so a value that is not a canonical
// decimal in [0, 2^53-1] fails the whole response.
package coretypes

import (
	"encoding/json"
	"time"

	"github.com/tendermint/lightnode/libs/bytes"
	"github.com/tendermint/lightnode/types"
)

// Info about the node's syncing state
type SyncInfo struct {
	LatestBlockHash   bytes.HexBytes `json:"latest_block_hash"`
	LatestAppHash     bytes.HexBytes `json:"latest_app_hash"`
	LatestBlockHeight types.Int64    `json:"latest_block_height"`
	LatestBlockTime   time.Time      `json:"latest_block_time"`

	EarliestBlockHeight types.Int64 `json:"earliest_block_height"`

	CatchingUp bool `json:"catching_up"`
}

// NodeInfo identifies the full node. Only the fields the light client
// checks are decoded.
type NodeInfo struct {
	ID      string `json:"id"`
	Network string `json:"network"`
	Moniker string `json:"moniker"`
	Version string `json:"version"`
}

// Node Status
type ResultStatus struct {
	NodeInfo NodeInfo `json:"node_info"`
	SyncInfo SyncInfo `json:"sync_info"`
}

// Commit and Header
type ResultCommit struct {
	types.SignedHeader `json:"signed_header"`
	CanonicalCommit    bool `json:"canonical"`
}

// UnmarshalJSON decodes the signed header explicitly: the methods promoted
// from the embedded SignedHeader would otherwise decode the whole result.
func (r *ResultCommit) UnmarshalJSON(data []byte) error {
	var raw struct {
		SignedHeader    json.RawMessage `json:"signed_header"`
		CanonicalCommit bool            `json:"canonical"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.CanonicalCommit = raw.CanonicalCommit
	if len(raw.SignedHeader) == 0 {
		r.SignedHeader = types.SignedHeader{}
		return nil
	}
	return json.Unmarshal(raw.SignedHeader, &r.SignedHeader)
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (r ResultCommit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SignedHeader    types.SignedHeader `json:"signed_header"`
		CanonicalCommit bool               `json:"canonical"`
	}{r.SignedHeader, r.CanonicalCommit})
}

// Validators for a height.
type ResultValidators struct {
	BlockHeight types.Int64        `json:"block_height"`
	Validators  []*types.Validator `json:"validators"`
	// Count of actual validators in this result
	Count types.Int64 `json:"count"`
	// Total number of validators
	Total types.Int64 `json:"total"`
}

// ResultSubscribe is the empty result of a subscribe call.
type ResultSubscribe struct{}

// ResultEvent is an event delivered on a subscription.
type ResultEvent struct {
	Query string    `json:"query"`
	Data  EventData `json:"data"`
}

// EventData is the type tagged payload of an event.
type EventData struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EventNewBlockHeaderType is the type of the data of a NewBlockHeader event.
const EventNewBlockHeaderType = "tendermint/event/NewBlockHeader"

// EventDataNewBlockHeader is the value of a NewBlockHeader event.
type EventDataNewBlockHeader struct {
	Header types.Header `json:"header"`
}
