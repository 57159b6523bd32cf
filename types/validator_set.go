package types

import (
	"bytes"
	"sort"
	"strings"

	tmmath "github.com/tendermint/lightnode/libs/math"
)

// MaxTotalVotingPower is the largest total power a validator set may have.
// Quorum arithmetic on such a total stays exact with 53-bit integers.
const MaxTotalVotingPower = int64(1) << 52

// ValidatorSet is an ordered collection of validators. Sets are treated as
// immutable once received: verification never modifies a set it hashed or
// counted power from.
type ValidatorSet struct {
	Validators []*Validator `json:"validators"`
}

// NewValidatorSet initializes a ValidatorSet with the given validators, in
// the given order.
func NewValidatorSet(valz []*Validator) *ValidatorSet {
	return &ValidatorSet{Validators: valz}
}

// IsNilOrEmpty returns true if validator set is nil or empty.
func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// Size returns the length of the validator set.
func (vals *ValidatorSet) Size() int {
	if vals == nil {
		return 0
	}
	return len(vals.Validators)
}

// TotalVotingPower returns the sum of the voting powers of all validators.
// It fails if the sum exceeds MaxTotalVotingPower.
func (vals *ValidatorSet) TotalVotingPower() (int64, error) {
	var sum int64
	for _, val := range vals.Validators {
		var err error
		sum, err = tmmath.SafeAddInt64(sum, val.VotingPower)
		if err != nil || sum > MaxTotalVotingPower {
			return 0, ErrTotalVotingPowerOverflow{Total: sum}
		}
	}
	return sum, nil
}

// GetByAddress returns an index of the validator with address and validator
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (vals *ValidatorSet) GetByAddress(address []byte) (index int32, val *Validator) {
	for idx, val := range vals.Validators {
		if bytes.Equal(val.Address, address) {
			return int32(idx), val.Copy()
		}
	}
	return -1, nil
}

// HasAddress returns true if address given is in the validator set, false -
// otherwise.
func (vals *ValidatorSet) HasAddress(address []byte) bool {
	idx, _ := vals.GetByAddress(address)
	return idx >= 0
}

// Copy each validator into a new ValidatorSet.
func (vals *ValidatorSet) Copy() *ValidatorSet {
	if vals == nil {
		return nil
	}
	valz := make([]*Validator, len(vals.Validators))
	for i, val := range vals.Validators {
		valz[i] = val.Copy()
	}
	return &ValidatorSet{Validators: valz}
}

// String returns a string representation of ValidatorSet.
//
// See StringIndented.
func (vals *ValidatorSet) String() string {
	return vals.StringIndented("")
}

// StringIndented returns an intended String.
//
// See Validator#String.
func (vals *ValidatorSet) StringIndented(indent string) string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	valStrings := make([]string, 0, len(vals.Validators))
	for _, val := range vals.Validators {
		valStrings = append(valStrings, val.String())
	}
	return "ValidatorSet{\n" +
		indent + "  Validators:\n" +
		indent + "    " + strings.Join(valStrings, "\n"+indent+"    ") + "\n" +
		indent + "}"
}

//-------------------------------------

// ValidatorsByVotingPower implements sort.Interface for []*Validator based on
// the VotingPower and Address fields.
type ValidatorsByVotingPower []*Validator

func (valz ValidatorsByVotingPower) Len() int { return len(valz) }

func (valz ValidatorsByVotingPower) Less(i, j int) bool {
	if valz[i].VotingPower == valz[j].VotingPower {
		return bytes.Compare(valz[i].Address, valz[j].Address) == -1
	}
	return valz[i].VotingPower > valz[j].VotingPower
}

func (valz ValidatorsByVotingPower) Swap(i, j int) {
	valz[i], valz[j] = valz[j], valz[i]
}

// ValidatorsByAddress implements sort.Interface for []*Validator based on
// the Address field.
type ValidatorsByAddress []*Validator

func (valz ValidatorsByAddress) Len() int { return len(valz) }

func (valz ValidatorsByAddress) Less(i, j int) bool {
	return bytes.Compare(valz[i].Address, valz[j].Address) == -1
}

func (valz ValidatorsByAddress) Swap(i, j int) {
	valz[i], valz[j] = valz[j], valz[i]
}

// Sorted returns the validators of vals in the given order without modifying
// vals.
func (vals *ValidatorSet) Sorted(order func([]*Validator) sort.Interface) []*Validator {
	valz := make([]*Validator, len(vals.Validators))
	copy(valz, vals.Validators)
	sort.Stable(order(valz))
	return valz
}

// ByVotingPower and ByAddress are orders accepted by Sorted.
func ByVotingPower(valz []*Validator) sort.Interface { return ValidatorsByVotingPower(valz) }
func ByAddress(valz []*Validator) sort.Interface     { return ValidatorsByAddress(valz) }
