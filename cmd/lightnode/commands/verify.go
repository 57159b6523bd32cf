package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightnode/config"
	"github.com/tendermint/lightnode/libs/log"
	"github.com/tendermint/lightnode/light"
	lighthttp "github.com/tendermint/lightnode/light/provider/http"
	"github.com/tendermint/lightnode/types"
)

// MakeVerifyCommand returns the command that verifies a single light block
// against the trusted state.
func MakeVerifyCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		height int64
		at     string
	)

	cmd := &cobra.Command{
		Use:   "verify [light-block.json]",
		Short: "Verify a light block against the trusted state",
		Long: `Verify a light block against the trusted state, once.

The light block is read from the given JSON file or, with --height, fetched
from the primary. The trusted state is not updated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				var err error
				if now, err = time.Parse(time.RFC3339Nano, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			lc := conf.Light
			cdc, err := lc.Codec()
			if err != nil {
				return err
			}

			trusted, err := readLightBlock(lc.TrustedStatePath())
			if err != nil {
				return fmt.Errorf("failed to load the trusted state: %w", err)
			}
			if trusted, err = light.VerifyTrustedState(cdc, trusted, lc.StrictAddresses); err != nil {
				return fmt.Errorf("invalid trusted state: %w", err)
			}

			var untrusted *types.LightBlock
			switch {
			case len(args) == 1:
				if untrusted, err = readLightBlock(args[0]); err != nil {
					return err
				}
			case height > 0:
				p, err := lighthttp.New(lc.ChainID, lc.Primary,
					lighthttp.PerPage(lc.PerPage),
					lighthttp.Logger(logger.With("module", "provider")))
				if err != nil {
					return err
				}
				defer p.Close()
				if untrusted, err = p.LightBlock(cmd.Context(), height); err != nil {
					return fmt.Errorf("failed to fetch light block #%d from %s: %w", height, p, err)
				}
			default:
				return errors.New("either a light block file or --height is required")
			}

			opts := light.VerifyOptions{
				Now:             now,
				MaxClockDrift:   lc.MaxClockDrift,
				MaxAge:          lc.MaxAge,
				StrictAddresses: lc.StrictAddresses,
			}
			if err := light.Verify(cdc, trusted, untrusted, opts); err != nil {
				return fmt.Errorf("light block #%d can't be trusted: %w", untrusted.Height, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "verified light block #%d (%v) against trusted block #%d\n",
				untrusted.Height, untrusted.Commit.BlockID.Hash, trusted.Height)
			return nil
		},
	}

	cmd.Flags().Int64Var(&height, "height", 0, "fetch the light block at this height from the primary")
	cmd.Flags().StringVar(&at, "at", "", "verify at this RFC3339 time instead of now")
	return cmd
}
