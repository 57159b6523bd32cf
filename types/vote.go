package types

import (
	"time"
)

// SignedMsgType is a type of signed message in the consensus.
type SignedMsgType byte

const (
	// Votes
	PrevoteType   SignedMsgType = 0x01
	PrecommitType SignedMsgType = 0x02

	// Proposals
	ProposalType SignedMsgType = 0x20
)

// IsVoteTypeValid returns true if t is a valid vote type.
func IsVoteTypeValid(t SignedMsgType) bool {
	switch t {
	case PrevoteType, PrecommitType:
		return true
	default:
		return false
	}
}

// CanonicalVote is the content a validator signs. Its byte form is produced
// by the codec of the chain.
type CanonicalVote struct {
	Type      SignedMsgType
	Height    int64
	Round     int64
	BlockID   BlockID
	Timestamp time.Time
	ChainID   string
}
