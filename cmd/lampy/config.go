package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/lamden/golampy/cmd/utils"
	"github.com/lamden/golampy/internal/flags"
	"github.com/lamden/golampy/nodeclient"
	"github.com/lamden/golampy/params"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

var commandDumpConfig = &cli.Command{
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Description: `The dumpconfig command shows configuration values.`,
	Flags:       flagGroups(nodeFlags, accountFlags, txFlags),
	Action:      dumpConfig,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type nodeConfig struct {
	URL       string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
}

type walletConfig struct {
	Keyfile  string
	LightKDF bool
}

type txConfig struct {
	Stamps uint64
}

type journalConfig struct {
	Dir string `toml:",omitempty"`
}

type lampyConfig struct {
	Node    nodeConfig
	Wallet  walletConfig
	Tx      txConfig
	Journal journalConfig
}

func defaultConfig() lampyConfig {
	return lampyConfig{
		Node: nodeConfig{
			URL:     utils.NodeURLFlag.Value,
			Timeout: utils.NodeTimeoutFlag.Value,
		},
		Wallet: walletConfig{
			Keyfile: defaultKeyfileName,
		},
		Tx: txConfig{
			Stamps: params.DefaultStamps,
		},
	}
}

func loadConfig(file string, cfg *lampyConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the config file, if any, and applies explicitly set flags
// on top of it.
func makeConfig(ctx *cli.Context) (lampyConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(flags.ExpandPath(file), &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(utils.NodeURLFlag.Name) {
		cfg.Node.URL = ctx.String(utils.NodeURLFlag.Name)
	}
	if ctx.IsSet(utils.NodeTimeoutFlag.Name) {
		cfg.Node.Timeout = ctx.Duration(utils.NodeTimeoutFlag.Name)
	}
	if ctx.IsSet(utils.NodeRateLimitFlag.Name) {
		cfg.Node.RateLimit = ctx.Float64(utils.NodeRateLimitFlag.Name)
	}
	if ctx.IsSet(utils.KeyFileFlag.Name) {
		cfg.Wallet.Keyfile = ctx.String(utils.KeyFileFlag.Name)
	}
	if ctx.IsSet(utils.LightKDFFlag.Name) {
		cfg.Wallet.LightKDF = ctx.Bool(utils.LightKDFFlag.Name)
	}
	if ctx.IsSet(utils.StampsFlag.Name) {
		cfg.Tx.Stamps = ctx.Uint64(utils.StampsFlag.Name)
	}
	if ctx.IsSet(utils.JournalDirFlag.Name) {
		cfg.Journal.Dir = ctx.String(utils.JournalDirFlag.Name)
	}
	cfg.Wallet.Keyfile = flags.ExpandPath(cfg.Wallet.Keyfile)
	cfg.Journal.Dir = flags.ExpandPath(cfg.Journal.Dir)
	return cfg, nil
}

// options translates the node section into client options.
func (c *nodeConfig) options() []nodeclient.Option {
	opts := []nodeclient.Option{nodeclient.WithTimeout(c.Timeout)}
	if c.RateLimit > 0 {
		opts = append(opts, nodeclient.WithRateLimit(c.RateLimit, 1))
	}
	return opts
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
