package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightnode/codec"
	"github.com/tendermint/lightnode/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}

		formats := make([]string, 0, len(codec.Versions))
		for _, v := range codec.Versions {
			formats = append(formats, string(v))
		}
		values, err := json.MarshalIndent(struct {
			Lightnode     string   `json:"lightnode"`
			GitCommit     string   `json:"git_commit,omitempty"`
			WireFormats   []string `json:"wire_formats"`
			BlockProtocol uint64   `json:"block_protocol"`
		}{
			Lightnode:     version.Version,
			GitCommit:     version.GitCommit,
			WireFormats:   formats,
			BlockProtocol: version.BlockProtocol.Uint64(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the supported wire formats and the git commit")
}
