package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creachadair/atomicfile"

	"github.com/tendermint/lightnode/types"
)

// readLightBlock reads a JSON light block, as written by writeLightBlock or
// served by the RPC.
func readLightBlock(path string) (*types.LightBlock, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lb types.LightBlock
	if err := json.Unmarshal(bz, &lb); err != nil {
		return nil, fmt.Errorf("failed to parse light block %s: %w", path, err)
	}
	return &lb, nil
}

// writeLightBlock replaces the file at path atomically, so a crash never
// leaves a partial trusted state behind.
func writeLightBlock(path string, lb *types.LightBlock) error {
	bz, err := json.MarshalIndent(lb, "", "  ")
	if err != nil {
		return err
	}
	bz = append(bz, '\n')
	if _, err := atomicfile.WriteAll(path, bytes.NewReader(bz), 0600); err != nil {
		return fmt.Errorf("failed to write light block %s: %w", path, err)
	}
	return nil
}
