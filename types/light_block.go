package types

import (
	"errors"
	"fmt"
)

// LightBlock is a SignedHeader and a ValidatorSet.
// It is the basis of the light client: the trusted state is a LightBlock.
type LightBlock struct {
	*SignedHeader `json:"signed_header"`
	ValidatorSet  *ValidatorSet `json:"validator_set"`
}

// ValidateBasic checks that the data is correct and consistent.
//
// This does no verification of the signatures or hashes.
func (lb LightBlock) ValidateBasic(chainID string) error {
	if lb.SignedHeader == nil {
		return errors.New("missing signed header")
	}
	if lb.ValidatorSet.IsNilOrEmpty() {
		return ErrEmptyValidatorSet
	}

	if err := lb.SignedHeader.ValidateBasic(chainID); err != nil {
		return fmt.Errorf("invalid signed header: %w", err)
	}

	return nil
}

// String returns a string representation of the LightBlock
func (lb LightBlock) String() string {
	return lb.StringIndented("")
}

// StringIndented returns an indented string representation of the LightBlock
//
// SignedHeader
// ValidatorSet
func (lb LightBlock) StringIndented(indent string) string {
	var header, commit string
	if lb.SignedHeader != nil {
		header = lb.Header.StringIndented(indent + "    ")
		commit = lb.Commit.StringIndented(indent + "    ")
	}
	return fmt.Sprintf(`LightBlock{
%s  Header:       %v
%s  Commit:       %v
%s  ValidatorSet: %v
%s}`,
		indent, header,
		indent, commit,
		indent, lb.ValidatorSet.StringIndented(indent+"    "),
		indent)
}
