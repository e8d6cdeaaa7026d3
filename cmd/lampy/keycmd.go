package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lamden/golampy/cmd/utils"
	"github.com/lamden/golampy/internal/flags"
	"github.com/lamden/golampy/wallet"
	"github.com/lamden/golampy/wallet/keystore"
	"github.com/urfave/cli/v2"
)

var (
	seedFileFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "file containing a hex encoded 32-byte seed to encrypt",
	}
	mnemonicGenerateFlag = &cli.BoolFlag{
		Name:  "mnemonic-generate",
		Usage: "generate a BIP39 mnemonic and derive the seed from it",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "use an existing BIP39 mnemonic to derive the seed",
	}
	mnemonicPassphraseFlag = &cli.StringFlag{
		Name:  "mnemonic-passphrase",
		Usage: "optional BIP39 passphrase for mnemonic-to-seed",
	}
	mnemonicBitsFlag = &cli.IntFlag{
		Name:  "mnemonic-bits",
		Usage: "entropy bits for a generated mnemonic (128,160,192,224,256)",
		Value: wallet.DefaultMnemonicBits,
	}
	mnemonicIndexFlag = &cli.UintFlag{
		Name:  "mnemonic-index",
		Usage: "account index derived from the mnemonic",
	}
	privateFlag = &cli.BoolFlag{
		Name:  "private",
		Usage: "include the private seed in the output",
	}
	msgfileFlag = &cli.StringFlag{
		Name:  "msgfile",
		Usage: "file containing the message to sign/verify",
	}
)

type outputGenerate struct {
	VerifyingKey string `json:"verifyingKey"`
	Keyfile      string `json:"keyfile"`
	Mnemonic     string `json:"mnemonic,omitempty"`
}

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate new keyfile",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Generate a new encrypted keyfile.

If <keyfile> is an existing directory, the keyfile is written into it and
named UTC--<created at>--<verifying key>.

The seed is random unless --seed names a file with an existing hex seed, or
one of the mnemonic flags is used.`,
	Flags: []cli.Flag{
		utils.PasswordFileFlag,
		utils.LightKDFFlag,
		utils.JSONFlag,
		seedFileFlag,
		mnemonicGenerateFlag,
		mnemonicFlag,
		mnemonicPassphraseFlag,
		mnemonicBitsFlag,
		mnemonicIndexFlag,
	},
	Action: func(ctx *cli.Context) error {
		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			keyfilepath = defaultKeyfileName
		}
		keyfilepath = flags.ExpandPath(keyfilepath)
		intoDir := false
		if fi, err := os.Stat(keyfilepath); err == nil {
			if !fi.IsDir() {
				return fmt.Errorf("keyfile already exists at %s", keyfilepath)
			}
			intoDir = true
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("error checking if keyfile exists: %v", err)
		}

		var (
			w              *wallet.Wallet
			err            error
			mnemonicOutput string
			mnemonicInput  = strings.TrimSpace(ctx.String(mnemonicFlag.Name))
			mnemonicMode   = mnemonicInput != "" || ctx.Bool(mnemonicGenerateFlag.Name)
		)
		switch {
		case ctx.String(seedFileFlag.Name) != "":
			if mnemonicMode {
				return errors.New("can't use --seed with mnemonic flags")
			}
			w, err = loadSeedFile(ctx.String(seedFileFlag.Name))
		case mnemonicMode:
			if mnemonicInput == "" {
				if mnemonicInput, err = wallet.NewMnemonic(ctx.Int(mnemonicBitsFlag.Name)); err != nil {
					return fmt.Errorf("failed to generate mnemonic: %v", err)
				}
				mnemonicOutput = mnemonicInput
			}
			w, err = wallet.FromMnemonic(mnemonicInput, ctx.String(mnemonicPassphraseFlag.Name), uint32(ctx.Uint(mnemonicIndexFlag.Name)))
		default:
			w, err = wallet.Generate(nil)
		}
		if err != nil {
			return err
		}
		key := keystore.NewKey(w)
		if intoDir {
			keyfilepath = filepath.Join(keyfilepath, keystore.KeyFileName(key.VerifyingKey))
		}

		passphrase := getPassphrase(ctx, true)
		scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
		if ctx.Bool(utils.LightKDFFlag.Name) {
			scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
		}
		if err := os.MkdirAll(filepath.Dir(keyfilepath), 0700); err != nil {
			return fmt.Errorf("could not create directory %s", filepath.Dir(keyfilepath))
		}
		if err := keystore.StoreKey(keyfilepath, key, passphrase, scryptN, scryptP); err != nil {
			return fmt.Errorf("failed to write keyfile to %s: %v", keyfilepath, err)
		}

		out := outputGenerate{
			VerifyingKey: w.VerifyingKeyHex(),
			Keyfile:      keyfilepath,
			Mnemonic:     mnemonicOutput,
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Verifying key:", out.VerifyingKey)
		fmt.Fprintln(ctx.App.Writer, "Keyfile:", out.Keyfile)
		if out.Mnemonic != "" {
			fmt.Fprintln(ctx.App.Writer, "Mnemonic:", out.Mnemonic)
		}
		return nil
	},
}

type outputInspect struct {
	VerifyingKey string
	SignerType   string
	Id           string
	Seed         string `json:",omitempty"`
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "inspect a keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Print various information about the keyfile.

The private seed can be printed by using the --private flag;
make sure to use this feature with great caution!`,
	Flags: []cli.Flag{
		utils.PasswordFileFlag,
		utils.JSONFlag,
		privateFlag,
	},
	Action: func(ctx *cli.Context) error {
		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			return errors.New("missing keyfile argument")
		}
		key, err := keystore.LoadKey(flags.ExpandPath(keyfilepath), getPassphrase(ctx, false))
		if err != nil {
			return fmt.Errorf("error decrypting key: %v", err)
		}
		out := outputInspect{
			VerifyingKey: key.Wallet.VerifyingKeyHex(),
			SignerType:   keystore.SignerTypeEd25519,
			Id:           key.Id.String(),
		}
		if ctx.Bool(privateFlag.Name) {
			out.Seed = hex.EncodeToString(key.Wallet.Seed())
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Verifying key: ", out.VerifyingKey)
		fmt.Fprintln(ctx.App.Writer, "Signer type:   ", out.SignerType)
		fmt.Fprintln(ctx.App.Writer, "Key id:        ", out.Id)
		if out.Seed != "" {
			fmt.Fprintln(ctx.App.Writer, "Private seed:  ", out.Seed)
		}
		return nil
	},
}

type outputSign struct {
	Signature string
}

var commandSignMessage = &cli.Command{
	Name:      "signmessage",
	Usage:     "sign a message",
	ArgsUsage: "<keyfile> <message>",
	Description: `
Sign the message with a keyfile.

The message is signed as given, with no prefix or hashing. To sign a message
contained in a file, use the --msgfile flag.`,
	Flags: []cli.Flag{
		utils.PasswordFileFlag,
		utils.JSONFlag,
		msgfileFlag,
	},
	Action: func(ctx *cli.Context) error {
		message, err := getMessage(ctx, 1)
		if err != nil {
			return err
		}
		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			return errors.New("missing keyfile argument")
		}
		key, err := keystore.LoadKey(flags.ExpandPath(keyfilepath), getPassphrase(ctx, false))
		if err != nil {
			return fmt.Errorf("error decrypting key: %v", err)
		}
		sig := key.Wallet.Sign(message)
		out := outputSign{Signature: hexutil.Encode(sig[:])}
		if ctx.Bool(utils.JSONFlag.Name) {
			return printJSON(ctx, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Signature:", out.Signature)
		return nil
	},
}

type outputVerify struct {
	Success      bool
	VerifyingKey string
}

var commandVerifyMessage = &cli.Command{
	Name:      "verifymessage",
	Usage:     "verify the signature of a signed message",
	ArgsUsage: "<verifying key> <signature> <message>",
	Description: `
Verify the signature of the message against a verifying key.`,
	Flags: []cli.Flag{
		utils.JSONFlag,
		msgfileFlag,
	},
	Action: func(ctx *cli.Context) error {
		vkHex := ctx.Args().First()
		sigHex := ctx.Args().Get(1)
		message, err := getMessage(ctx, 2)
		if err != nil {
			return err
		}
		vk, err := wallet.ParseVerifyingKey(vkHex)
		if err != nil {
			return err
		}
		sig, err := wallet.DecodeHex(sigHex)
		if err != nil {
			return fmt.Errorf("signature encoding is not hexadecimal: %v", err)
		}
		out := outputVerify{
			Success:      wallet.RawVerify(vk[:], message, sig),
			VerifyingKey: hex.EncodeToString(vk[:]),
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			if err := printJSON(ctx, out); err != nil {
				return err
			}
		} else if out.Success {
			status(ctx, true, "Signature verification successful!")
			fmt.Fprintln(ctx.App.Writer, "Verifying key:", out.VerifyingKey)
		}
		if !out.Success {
			return errors.New("signature verification failed")
		}
		return nil
	},
}

// getPassphrase obtains a passphrase from the --password file or prompts the
// user for one.
func getPassphrase(ctx *cli.Context, confirmation bool) string {
	return utils.GetPassPhraseWithList("", confirmation, 0, utils.MakePasswordList(ctx))
}

// getMessage reads the message from --msgfile or the command line argument at
// msgarg.
func getMessage(ctx *cli.Context, msgarg int) ([]byte, error) {
	if file := ctx.String(msgfileFlag.Name); file != "" {
		if ctx.NArg() > msgarg {
			return nil, errors.New("can't use --msgfile and message argument at the same time")
		}
		msg, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("can't read message file: %v", err)
		}
		return msg, nil
	} else if ctx.NArg() == msgarg+1 {
		return []byte(ctx.Args().Get(msgarg)), nil
	}
	return nil, fmt.Errorf("invalid number of arguments: want %d, got %d", msgarg+1, ctx.NArg())
}

func loadSeedFile(file string) (*wallet.Wallet, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, errors.New("empty seed file")
	}
	return wallet.FromHex(trimmed)
}

// loadWallet decrypts the configured keyfile.
func loadWallet(ctx *cli.Context, cfg *lampyConfig) (*wallet.Wallet, error) {
	if cfg.Wallet.Keyfile == "" {
		return nil, errors.New("no keyfile configured")
	}
	key, err := keystore.LoadKey(cfg.Wallet.Keyfile, getPassphrase(ctx, false))
	if err != nil {
		return nil, fmt.Errorf("error decrypting key %s: %v", cfg.Wallet.Keyfile, err)
	}
	return key.Wallet, nil
}
