// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for lampy commands.
package utils

import (
	"os"
	"strings"
	"time"

	"github.com/lamden/golampy/internal/flags"
	"github.com/lamden/golampy/params"
	"github.com/urfave/cli/v2"
)

// These are all the command line flags shared between commands. Defining
// them here keeps names and help texts identical everywhere.
var (
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}

	// Node settings
	NodeURLFlag = &cli.StringFlag{
		Name:     "node",
		Usage:    "Base URL of the node HTTP API",
		Value:    "http://127.0.0.1:18080",
		EnvVars:  []string{"LAMPY_NODE"},
		Category: flags.NodeCategory,
	}
	NodeTimeoutFlag = &cli.DurationFlag{
		Name:     "node.timeout",
		Usage:    "Timeout of a single node request",
		Value:    10 * time.Second,
		Category: flags.NodeCategory,
	}
	NodeRateLimitFlag = &cli.Float64Flag{
		Name:     "node.ratelimit",
		Usage:    "Maximum node requests per second (0 = unlimited)",
		Category: flags.NodeCategory,
	}

	// Account settings
	KeyFileFlag = &cli.StringFlag{
		Name:     "keyfile",
		Usage:    "Encrypted keyfile of the sending account",
		Category: flags.AccountCategory,
	}
	PasswordFileFlag = &cli.PathFlag{
		Name:      "password",
		Usage:     "Password file to use for non-interactive password input",
		TakesFile: true,
		Category:  flags.AccountCategory,
	}
	LightKDFFlag = &cli.BoolFlag{
		Name:     "lightkdf",
		Usage:    "Use less secure scrypt parameters for new keyfiles",
		Category: flags.AccountCategory,
	}

	// Transaction settings
	StampsFlag = &cli.Uint64Flag{
		Name:     "stamps",
		Usage:    "Stamps supplied with each transaction",
		Value:    params.DefaultStamps,
		Category: flags.TxCategory,
	}

	// Journal settings
	JournalDirFlag = &cli.StringFlag{
		Name:     "journal",
		Usage:    "Directory of the local journal of sent transactions (empty = disabled)",
		Category: flags.JournalCategory,
	}

	// Logging
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    2,
		Category: flags.LoggingCategory,
	}

	// Metrics flags
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and print them to stderr on exit",
		Category: flags.MetricsCategory,
	}
	JSONFlag = &cli.BoolFlag{
		Name:     "json",
		Usage:    "Output JSON instead of human-readable format",
		Category: flags.MiscCategory,
	}
)

// MakePasswordList reads password lines specified by the user, or nil when
// no password file was given.
func MakePasswordList(ctx *cli.Context) []string {
	path := ctx.Path(PasswordFileFlag.Name)
	if path == "" {
		return nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		Fatalf("Failed to read password file: %v", err)
	}
	return SplitPasswords(string(text))
}

// SplitPasswords splits password file contents into lines, dropping DOS line
// endings and a single trailing newline.
func SplitPasswords(text string) []string {
	text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}
