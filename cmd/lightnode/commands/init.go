package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightnode/config"
	"github.com/tendermint/lightnode/libs/log"
	tmos "github.com/tendermint/lightnode/libs/os"
	"github.com/tendermint/lightnode/light"
	lighthttp "github.com/tendermint/lightnode/light/provider/http"
	"github.com/tendermint/lightnode/types"
)

// MakeInitCommand returns the command that writes the config file and the
// trusted state.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		chainID    string
		primary    string
		wireFormat string
		height     int64
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a light node",
		Long: `Initialize a light node: write config/config.toml and the trusted state.

With --height, the light block at that height is fetched from the primary and
becomes the trusted state. It is only checked for consistency: compare its
hash with one obtained from a source you trust before starting the node.
Without --height, a template is written to be replaced by a trusted block.

Existing files are kept, unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := conf.Light
			if chainID != "" {
				lc.ChainID = chainID
			}
			if primary != "" {
				lc.Primary = primary
			}
			if wireFormat != "" {
				lc.WireFormat = wireFormat
			}
			if lc.ChainID == "" {
				return errors.New("a chain ID is required (--chain-id)")
			}
			if err := conf.ValidateBasic(); err != nil {
				return err
			}

			cfgPath := config.ConfigFilePath(conf.RootDir)
			if tmos.FileExists(cfgPath) && !force {
				if _, err := config.ReadTOMLFile(cfgPath); err != nil {
					return fmt.Errorf("existing config file is invalid: %w", err)
				}
				logger.Info("Found config file", "path", cfgPath)
			} else {
				if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
					return err
				}
				logger.Info("Generated config file", "path", cfgPath)
			}

			statePath := lc.TrustedStatePath()
			if tmos.FileExists(statePath) && !force {
				logger.Info("Found trusted state", "path", statePath)
				return nil
			}

			if height <= 0 {
				tmpl := &types.LightBlock{
					SignedHeader: &types.SignedHeader{Header: &types.Header{ChainID: lc.ChainID}},
				}
				if err := writeLightBlock(statePath, tmpl); err != nil {
					return err
				}
				logger.Info("Generated trusted state template; replace it with a trusted block", "path", statePath)
				return nil
			}

			cdc, err := lc.Codec()
			if err != nil {
				return err
			}
			p, err := lighthttp.New(lc.ChainID, lc.Primary,
				lighthttp.PerPage(lc.PerPage),
				lighthttp.Logger(logger.With("module", "provider")))
			if err != nil {
				return err
			}
			defer p.Close()

			lb, err := p.LightBlock(cmd.Context(), height)
			if err != nil {
				return fmt.Errorf("failed to fetch light block #%d from %s: %w", height, p, err)
			}
			if err := lb.ValidateBasic(lc.ChainID); err != nil {
				return fmt.Errorf("light block #%d from %s is invalid: %w", height, p, err)
			}
			if lb, err = light.VerifyTrustedState(cdc, lb, lc.StrictAddresses); err != nil {
				return fmt.Errorf("light block #%d from %s is invalid: %w", height, p, err)
			}
			if err := writeLightBlock(statePath, lb); err != nil {
				return err
			}
			logger.Info("Fetched trusted state; verify its hash out of band",
				"path", statePath, "height", lb.Height, "hash", lb.Commit.BlockID.Hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&chainID, "chain-id", "", "ID of the chain to follow")
	cmd.Flags().StringVar(&primary, "primary", "", "RPC address of the full node (default from the config)")
	cmd.Flags().StringVar(&wireFormat, "wire-format", "", "encoding of the chain: legacy | amino | proto")
	cmd.Flags().Int64Var(&height, "height", 0, "fetch the trusted state at this height from the primary")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the config file and the trusted state")
	return cmd
}
