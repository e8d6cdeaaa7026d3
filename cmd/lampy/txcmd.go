package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/lamden/golampy/cmd/utils"
	"github.com/lamden/golampy/core"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/journal"
	"github.com/lamden/golampy/nodeclient"
	"github.com/lamden/golampy/wallet"
	"github.com/urfave/cli/v2"
)

var (
	processorFlag = &cli.StringFlag{
		Name:  "processor",
		Usage: "processor id to route to (default: ask the node)",
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  "nonce",
		Usage: "transaction nonce (default: ask the node)",
	}
	txFileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "read the hex encoded transaction from a file",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "maximum number of entries to show (0 = all)",
		Value: 20,
	}
)

var commandNonce = &cli.Command{
	Name:      "nonce",
	Usage:     "show the processor and next nonce of an account",
	ArgsUsage: "[ <verifying key> ]",
	Description: `
Ask the node which processor to route to and which nonce it expects next.
Without an argument the account of the configured keyfile is used.`,
	Flags: flagGroups(nodeFlags, accountFlags, []cli.Flag{utils.JSONFlag}),
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		var vk [32]byte
		if arg := ctx.Args().First(); arg != "" {
			if vk, err = wallet.ParseVerifyingKey(arg); err != nil {
				return err
			}
		} else {
			w, err := loadWallet(ctx, &cfg)
			if err != nil {
				return err
			}
			vk = w.VerifyingKey()
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		processor, nonce, err := client.Nonce(ctx.Context, vk)
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, map[string]interface{}{
				"sender":    hex.EncodeToString(vk[:]),
				"processor": processor.Hex(),
				"nonce":     nonce,
			})
		}
		fmt.Fprintln(ctx.App.Writer, "Sender:   ", hex.EncodeToString(vk[:]))
		fmt.Fprintln(ctx.App.Writer, "Processor:", processor.Hex())
		fmt.Fprintln(ctx.App.Writer, "Nonce:    ", nonce)
		return nil
	},
}

type outputBuild struct {
	Hash string `json:"hash"`
	Raw  string `json:"raw"`
}

var commandBuild = &cli.Command{
	Name:      "build",
	Usage:     "build and sign a transaction without sending it",
	ArgsUsage: "<contract> <function>",
	Description: `
Build a signed, proof-of-work stamped transaction and print it hex encoded.

When both --processor and --nonce are given the node is not contacted.`,
	Flags: flagGroups(nodeFlags, accountFlags, []cli.Flag{
		utils.StampsFlag,
		utils.JSONFlag,
		argFlag,
		kwargsFlag,
		processorFlag,
		nonceFlag,
	}),
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		call, err := parseCall(ctx, &cfg)
		if err != nil {
			return err
		}
		w, err := loadWallet(ctx, &cfg)
		if err != nil {
			return err
		}
		if ctx.IsSet(processorFlag.Name) && ctx.IsSet(nonceFlag.Name) {
			if call.Processor, err = types.HexToProcessor(ctx.String(processorFlag.Name)); err != nil {
				return err
			}
			call.Nonce = ctx.Uint64(nonceFlag.Name)
		} else {
			client, err := dialNode(ctx, &cfg)
			if err != nil {
				return err
			}
			if call.Processor, call.Nonce, err = client.Nonce(ctx.Context, w.VerifyingKey()); err != nil {
				return err
			}
			if ctx.IsSet(processorFlag.Name) {
				if call.Processor, err = types.HexToProcessor(ctx.String(processorFlag.Name)); err != nil {
					return err
				}
			}
			if ctx.IsSet(nonceFlag.Name) {
				call.Nonce = ctx.Uint64(nonceFlag.Name)
			}
		}
		tx, err := new(core.Builder).BuildContext(ctx.Context, w, call)
		if err != nil {
			return err
		}
		raw, err := tx.MarshalBinary()
		if err != nil {
			return err
		}
		hash, err := tx.HashHex()
		if err != nil {
			return err
		}
		out := outputBuild{Hash: hash, Raw: hexutil.Encode(raw)}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Hash:", out.Hash)
		fmt.Fprintln(ctx.App.Writer, "Raw: ", out.Raw)
		return nil
	},
}

var commandSend = &cli.Command{
	Name:      "send",
	Usage:     "build a transaction and submit it to the node",
	ArgsUsage: "<contract> <function>",
	Description: `
Fetch the processor and nonce from the node, build the transaction and submit
it. Accepted transactions are written to the journal when one is configured.`,
	Flags: flagGroups(nodeFlags, accountFlags, txFlags, []cli.Flag{
		utils.JSONFlag,
		argFlag,
		kwargsFlag,
	}),
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		call, err := parseCall(ctx, &cfg)
		if err != nil {
			return err
		}
		w, err := loadWallet(ctx, &cfg)
		if err != nil {
			return err
		}
		client, err := dialNode(ctx, &cfg)
		if err != nil {
			return err
		}
		driver := core.NewDriver(client, w, nil)
		if cfg.Journal.Dir != "" {
			j, err := journal.Open(cfg.Journal.Dir)
			if err != nil {
				return err
			}
			defer j.Close()
			driver.SetRecorder(j)
		}
		start := time.Now()
		tx, res, err := driver.Send(ctx.Context, call)
		if err != nil {
			var nodeErr *nodeclient.NodeError
			if errors.As(err, &nodeErr) {
				status(ctx, false, "Transaction rejected: %s", nodeErr.Message)
			}
			return err
		}
		log.Info("Transaction accepted", "hash", res.Hash, "nonce", tx.Nonce(), "elapsed", time.Since(start))
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, map[string]interface{}{
				"success": res.Success,
				"hash":    res.Hash,
				"nonce":   tx.Nonce(),
			})
		}
		status(ctx, true, "%s", res.Success)
		fmt.Fprintln(ctx.App.Writer, "Hash: ", res.Hash)
		fmt.Fprintln(ctx.App.Writer, "Nonce:", tx.Nonce())
		return nil
	},
}

var commandDecode = &cli.Command{
	Name:      "decode",
	Usage:     "decode a hex encoded transaction",
	ArgsUsage: "[ <raw transaction> ]",
	Description: `
Print the fields of a transaction and check its proof of work and signature.`,
	Flags: []cli.Flag{
		utils.JSONFlag,
		txFileFlag,
	},
	Action: func(ctx *cli.Context) error {
		input := ctx.Args().First()
		if file := ctx.String(txFileFlag.Name); file != "" {
			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			input = string(content)
		}
		if strings.TrimSpace(input) == "" {
			return errors.New("missing transaction")
		}
		raw, err := wallet.DecodeHex(input)
		if err != nil {
			return fmt.Errorf("transaction is not hexadecimal: %v", err)
		}
		tx, err := types.DecodeTransaction(raw)
		if err != nil {
			return err
		}
		return printTransaction(ctx, tx)
	},
}

var commandHistory = &cli.Command{
	Name:  "history",
	Usage: "list transactions from the local journal",
	Flags: []cli.Flag{
		utils.JournalDirFlag,
		utils.JSONFlag,
		limitFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.Journal.Dir == "" {
			return errors.New("no journal configured")
		}
		j, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			return err
		}
		defer j.Close()
		entries, err := j.List(ctx.Int(limitFlag.Name))
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			out := make([]map[string]interface{}, 0, len(entries))
			for _, e := range entries {
				out = append(out, map[string]interface{}{
					"hash":      hex.EncodeToString(e.Hash[:]),
					"nodeHash":  e.NodeHash,
					"contract":  e.Tx.Contract(),
					"function":  e.Tx.Function(),
					"nonce":     e.Tx.Nonce(),
					"submitted": e.Submitted.UTC().Format(time.RFC3339),
				})
			}
			return printJSON(ctx, out)
		}
		table := newTable(ctx.App.Writer, "SEQ", "SUBMITTED", "CALL", "NONCE", "HASH")
		for _, e := range entries {
			table.Append([]string{
				strconv.FormatUint(e.Seq, 10),
				e.Submitted.UTC().Format(time.RFC3339),
				e.Tx.Contract() + "." + e.Tx.Function(),
				strconv.FormatUint(e.Tx.Nonce(), 10),
				e.NodeHash,
			})
		}
		table.Render()
		return nil
	},
}

// parseCall reads the contract, function and arguments of a call.
func parseCall(ctx *cli.Context, cfg *lampyConfig) (core.Call, error) {
	if ctx.NArg() != 2 {
		return core.Call{}, fmt.Errorf("want <contract> <function>, got %d arguments", ctx.NArg())
	}
	args, err := parseCallArgs(ctx)
	if err != nil {
		return core.Call{}, err
	}
	return core.Call{
		Contract: ctx.Args().Get(0),
		Function: ctx.Args().Get(1),
		Args:     args,
		Stamps:   cfg.Tx.Stamps,
	}, nil
}

func dialNode(ctx *cli.Context, cfg *lampyConfig) (*nodeclient.Client, error) {
	client, err := nodeclient.Dial(ctx.Context, cfg.Node.URL, cfg.Node.options()...)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Node.URL, err)
	}
	log.Debug("Connected to node", "url", client.URL())
	return client, nil
}

func printTransaction(ctx *cli.Context, tx *types.Transaction) error {
	var (
		meta   = tx.Metadata()
		sender = tx.Sender()
		valid  = tx.Verify()
	)
	hash, err := tx.HashHex()
	if err != nil {
		return err
	}
	payload := tx.Payload()
	if ctx.Bool(utils.JSONFlag.Name) {
		kw := make([]map[string]string, 0, len(payload.Kwargs))
		for _, e := range payload.Kwargs {
			kw = append(kw, map[string]string{"key": e.Key, "kind": e.Value.Kind().String(), "value": e.Value.String()})
		}
		out := map[string]interface{}{
			"hash":      hash,
			"sender":    hex.EncodeToString(sender[:]),
			"processor": tx.Processor().Hex(),
			"stamps":    tx.StampsSupplied(),
			"contract":  tx.Contract(),
			"function":  tx.Function(),
			"nonce":     tx.Nonce(),
			"kwargs":    kw,
			"proof":     hexutil.Encode(meta.Proof[:]),
			"signature": hexutil.Encode(meta.Signature[:]),
			"timestamp": meta.Timestamp,
			"valid":     valid == nil,
		}
		return printJSON(ctx, out)
	}
	table := newTable(ctx.App.Writer, "FIELD", "VALUE")
	table.AppendBulk([][]string{
		{"Hash", hash},
		{"Sender", hex.EncodeToString(sender[:])},
		{"Processor", tx.Processor().Hex()},
		{"Stamps", strconv.FormatUint(tx.StampsSupplied(), 10)},
		{"Contract", tx.Contract()},
		{"Function", tx.Function()},
		{"Nonce", strconv.FormatUint(tx.Nonce(), 10)},
		{"Proof", hexutil.Encode(meta.Proof[:])},
		{"Signature", hexutil.Encode(meta.Signature[:])},
		{"Timestamp", tx.Time().UTC().Format(time.RFC3339)},
	})
	for _, e := range payload.Kwargs {
		table.Append([]string{"Kwarg " + e.Key, e.Value.Kind().String() + " " + e.Value.String()})
	}
	table.Render()
	if valid != nil {
		status(ctx, false, "Invalid: %v", valid)
	} else {
		status(ctx, true, "Proof of work and signature valid")
	}
	return nil
}
