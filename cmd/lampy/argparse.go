package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/wallet"
	"github.com/urfave/cli/v2"
)

var (
	argFlag = &cli.StringSliceFlag{
		Name:  "arg",
		Usage: "call argument `key=value`, repeatable. Values may be typed with a fixed:, text:, bool: or hex: prefix",
	}
	kwargsFlag = &cli.StringFlag{
		Name:  "kwargs",
		Usage: "call arguments as a JSON object; key order is kept",
	}
)

// parseCallArgs collects --kwargs and then --arg values, in command line
// order.
func parseCallArgs(ctx *cli.Context) (*kwargs.Args, error) {
	args := kwargs.NewArgs()
	if s := ctx.String(kwargsFlag.Name); s != "" {
		if err := parseKwargsJSON(args, s); err != nil {
			return nil, err
		}
	}
	for _, kv := range ctx.StringSlice(argFlag.Name) {
		key, v, err := parseArg(kv)
		if err != nil {
			return nil, err
		}
		args.Add(key, v)
	}
	return args, nil
}

// parseArg parses key=value. Untyped values that look like a decimal number
// become fixed point, true and false become booleans, anything else is text.
func parseArg(kv string) (string, kwargs.Value, error) {
	key, raw, ok := strings.Cut(kv, "=")
	if !ok || key == "" {
		return "", kwargs.Value{}, fmt.Errorf("invalid argument %q, want key=value", kv)
	}
	typ, val, typed := strings.Cut(raw, ":")
	if typed {
		switch typ {
		case "fixed":
			v, err := kwargs.FixedPoint(val)
			return key, v, err
		case "text":
			return key, kwargs.Text(val), nil
		case "bool":
			switch val {
			case "true":
				return key, kwargs.Bool(true), nil
			case "false":
				return key, kwargs.Bool(false), nil
			}
			return "", kwargs.Value{}, fmt.Errorf("invalid bool %q for %q", val, key)
		case "hex":
			b, err := wallet.DecodeHex(val)
			if err != nil {
				return "", kwargs.Value{}, fmt.Errorf("invalid hex for %q: %v", key, err)
			}
			return key, kwargs.Bytes(b), nil
		}
	}
	if v, err := kwargs.FixedPoint(raw); err == nil {
		return key, v, nil
	}
	switch raw {
	case "true":
		return key, kwargs.Bool(true), nil
	case "false":
		return key, kwargs.Bool(false), nil
	}
	return key, kwargs.Text(raw), nil
}

// parseKwargsJSON appends the members of a flat JSON object to args in
// document order. Numbers are taken as exact decimals.
func parseKwargsJSON(args *kwargs.Args, s string) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return errors.New("kwargs: want a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("kwargs: %v", err)
		}
		key := tok.(string)
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("kwargs: value of %q: %v", key, err)
		}
		switch raw.(type) {
		case string, json.Number, bool:
			args.Add(key, raw)
		default:
			return fmt.Errorf("kwargs: value of %q must be a string, number or bool", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("kwargs: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("kwargs: trailing data after object")
	}
	return nil
}
