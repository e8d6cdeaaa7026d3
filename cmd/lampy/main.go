// lampy builds, signs and submits transactions to a node.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/lamden/golampy/cmd/utils"
	"github.com/lamden/golampy/internal/flags"
	"github.com/urfave/cli/v2"
)

const defaultKeyfileName = "keyfile.json"

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app = newApp()

func newApp() *cli.App {
	app := flags.NewApp(gitCommit, gitDate, "a transaction driver for the node HTTP API")
	app.DisableSliceFlagSeparator = true
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.VerbosityFlag,
		utils.MetricsEnabledFlag,
	}
	app.Before = func(ctx *cli.Context) error {
		setupLogging(ctx)
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if ctx.Bool(utils.MetricsEnabledFlag.Name) {
			metrics.WriteOnce(metrics.DefaultRegistry, ctx.App.ErrWriter)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		commandGenerate,
		commandInspect,
		commandSignMessage,
		commandVerifyMessage,
		commandNonce,
		commandBuild,
		commandSend,
		commandDecode,
		commandHistory,
		commandContracts,
		commandMethods,
		commandCode,
		commandVariable,
		commandBlock,
		commandDumpConfig,
		commandVersion,
	}
	return app
}

// Flag groups shared by commands.
var (
	nodeFlags    = []cli.Flag{utils.NodeURLFlag, utils.NodeTimeoutFlag, utils.NodeRateLimitFlag}
	accountFlags = []cli.Flag{utils.KeyFileFlag, utils.PasswordFileFlag}
	txFlags      = []cli.Flag{utils.StampsFlag, utils.JournalDirFlag}
)

func flagGroups(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
