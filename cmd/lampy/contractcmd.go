package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lamden/golampy/cmd/utils"
	"github.com/urfave/cli/v2"
)

var commandContracts = &cli.Command{
	Name:  "contracts",
	Usage: "list the contracts deployed on the node",
	Flags: flagGroups(nodeFlags, []cli.Flag{utils.JSONFlag}),
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		names, err := client.Contracts(ctx.Context)
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, names)
		}
		for _, name := range names {
			fmt.Fprintln(ctx.App.Writer, name)
		}
		return nil
	},
}

var commandMethods = &cli.Command{
	Name:      "methods",
	Usage:     "list the exported functions of a contract",
	ArgsUsage: "<contract>",
	Flags:     flagGroups(nodeFlags, []cli.Flag{utils.JSONFlag}),
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return errors.New("want <contract>")
		}
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		methods, err := client.ContractMethods(ctx.Context, ctx.Args().First())
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, methods)
		}
		table := newTable(ctx.App.Writer, "METHOD", "ARGUMENTS")
		for _, m := range methods {
			table.Append([]string{m.Name, strings.Join(m.Arguments, ", ")})
		}
		table.Render()
		return nil
	},
}

var commandCode = &cli.Command{
	Name:      "code",
	Usage:     "print the source of a contract",
	ArgsUsage: "<contract>",
	Flags:     nodeFlags,
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return errors.New("want <contract>")
		}
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		code, err := client.ContractCode(ctx.Context, ctx.Args().First())
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, code)
		return nil
	},
}

var commandVariable = &cli.Command{
	Name:      "variable",
	Usage:     "read a contract variable",
	ArgsUsage: "<contract> <variable> [ <key>... ]",
	Description: `
Read a state variable of a contract. Keys select an entry of a hash variable,
for example:

    lampy variable currency balances <account>`,
	Flags: nodeFlags,
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() < 2 {
			return errors.New("want <contract> <variable> [ <key>... ]")
		}
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		args := ctx.Args().Slice()
		value, err := client.GetVariable(ctx.Context, args[0], args[1], args[2:]...)
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, value, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, out.String())
		return nil
	},
}

var commandBlock = &cli.Command{
	Name:  "block",
	Usage: "show the node's latest block",
	Flags: flagGroups(nodeFlags, []cli.Flag{utils.JSONFlag}),
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		block, err := client.LatestBlock(ctx.Context)
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, block)
		}
		fmt.Fprintln(ctx.App.Writer, "Number:", block.Number)
		fmt.Fprintln(ctx.App.Writer, "Hash:  ", block.Hash)
		return nil
	},
}
