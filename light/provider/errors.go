package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrSignedHeaderNotFound is returned when a provider can't find the
	// requested header (i.e. it has been pruned).
	ErrSignedHeaderNotFound = errors.New("signed header not found")
	// ErrValidatorSetNotFound is returned when a provider can't find the
	// validator set of the requested height.
	ErrValidatorSetNotFound = errors.New("validator set not found")
	// ErrClosed is returned by a provider after Close.
	ErrClosed = errors.New("provider is closed")
	// ErrNoResponse is returned if the provider doesn't respond to the
	// request in a given time
	ErrNoResponse = errors.New("client failed to respond")
)

// ErrBadResponse is returned when a provider returns data that can't be
// decoded or is inconsistent with the request.
type ErrBadResponse struct {
	Reason error
}

func (e ErrBadResponse) Error() string {
	return fmt.Sprintf("client provided a bad response: %s", e.Reason.Error())
}

// Unwrap returns underlying reason.
func (e ErrBadResponse) Unwrap() error {
	return e.Reason
}
