package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

func printJSON(ctx *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON object: %v", err)
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(out))
	return err
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// status prints a coloured one-line verdict. Colour is disabled by
// fatih/color itself when stdout is not a terminal.
func status(ctx *cli.Context, ok bool, format string, args ...interface{}) {
	c := okColor
	if !ok {
		c = failColor
	}
	c.Fprintf(ctx.App.Writer, format+"\n", args...)
}
