package client

import (
	"encoding/json"
	"errors"
	"fmt"

	rpctypes "github.com/tendermint/lightnode/rpc/jsonrpc/types"
)

// ErrInvalidResponse is wrapped by the errors returned for a response that
// cannot be decoded or does not answer the request.
var ErrInvalidResponse = errors.New("invalid response")

func unmarshalResponseBytes(
	responseBytes []byte,
	expectedID rpctypes.JSONRPCIntID,
	result interface{},
) error {
	response := &rpctypes.RPCResponse{}
	if err := json.Unmarshal(responseBytes, response); err != nil {
		return fmt.Errorf("%w: error unmarshaling: %v", ErrInvalidResponse, err)
	}
	return unmarshalResponse(response, expectedID, result)
}

func unmarshalResponse(response *rpctypes.RPCResponse, expectedID rpctypes.JSONRPCIntID, result interface{}) error {
	if response.Error != nil {
		return response.Error
	}

	if err := validateAndVerifyID(response, expectedID); err != nil {
		return fmt.Errorf("%w: wrong ID: %v", ErrInvalidResponse, err)
	}

	if result == nil {
		return nil
	}
	// Unmarshal the RawMessage into the result.
	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("%w: error unmarshaling result: %v", ErrInvalidResponse, err)
	}
	return nil
}

// From the JSON-RPC 2.0 spec:
// id: It MUST be the same as the value of the id member in the Request Object.
func validateAndVerifyID(res *rpctypes.RPCResponse, expectedID rpctypes.JSONRPCIntID) error {
	if err := validateResponseID(res.ID); err != nil {
		return err
	}
	if expectedID != res.ID.(rpctypes.JSONRPCIntID) { // validateResponseID ensured res.ID has the right type
		return fmt.Errorf("response ID (%d) does not match request ID (%d)", res.ID, expectedID)
	}
	return nil
}

func validateResponseID(id interface{}) error {
	if id == nil {
		return errors.New("no ID")
	}
	_, ok := id.(rpctypes.JSONRPCIntID)
	if !ok {
		return fmt.Errorf("expected JSONRPCIntID, but got: %T", id)
	}
	return nil
}
