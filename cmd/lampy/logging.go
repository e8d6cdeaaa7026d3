package main

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/lamden/golampy/cmd/utils"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

// setupLogging installs a terminal log handler on stderr at the requested
// verbosity. Colour is used only when stderr is a terminal.
func setupLogging(ctx *cli.Context) {
	var (
		output   io.Writer = os.Stderr
		fd                 = os.Stderr.Fd()
		usecolor           = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
	)
	if usecolor {
		output = colorable.NewColorable(os.Stderr)
	}
	level := log.FromLegacyLevel(ctx.Int(utils.VerbosityFlag.Name))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(output, level, usecolor)))
}
