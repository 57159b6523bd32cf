package main

import (
	"context"
	"os"

	"github.com/tendermint/lightnode/cmd/lightnode/commands"
	"github.com/tendermint/lightnode/config"
	"github.com/tendermint/lightnode/libs/cli"
	"github.com/tendermint/lightnode/libs/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf := config.DefaultConfig()

	logger := log.MustNewDefaultLogger(conf.LogFormat, conf.LogLevel)

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf, logger),
		commands.MakeStartCommand(conf, logger),
		commands.MakeVerifyCommand(conf, logger),
		commands.VersionCmd,
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(2)
	}
}
