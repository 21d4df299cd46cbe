package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/cellcodec/cellcodec/tlb"
	"github.com/cellcodec/cellcodec/tvm/cell"
)

var (
	errNoInput       = errors.New("one of file/hex/base64 is required")
	errMultipleInput = errors.New("only one of file/hex/base64 is allowed")
)

// readInput returns the BOC bytes given by the file, hex or base64 flag.
func readInput(c *cli.Context) ([]byte, error) {
	file := c.String("file")
	hexData := c.String("hex")
	b64Data := c.String("base64")

	n := 0
	for _, s := range []string{file, hexData, b64Data} {
		if "" != s {
			n += 1
		}
	}
	switch n {
	case 0:
		return nil, errNoInput
	case 1:
	default:
		return nil, errMultipleInput
	}

	switch {
	case "" != hexData:
		return hex.DecodeString(strings.TrimSpace(hexData))
	case "" != b64Data:
		return base64.StdEncoding.DecodeString(strings.TrimSpace(b64Data))
	}

	data, err := os.ReadFile(file)
	if nil != err {
		return nil, err
	}
	return data, nil
}

// readRoots parses every root of the input BOC.
func readRoots(c *cli.Context) ([]*cell.Cell, error) {
	data, err := readInput(c)
	if nil != err {
		return nil, err
	}

	roots, err := cell.FromBOCMultiRoot(data)
	if nil != err {
		return nil, fmt.Errorf("failed to parse boc: %w", err)
	}
	return roots, nil
}

// printCell writes the cell as the type expression, or its raw dump.
func printCell(w io.Writer, expr string, root *cell.Cell) error {
	if "" == expr {
		fmt.Fprint(w, root.Dump())
		return nil
	}

	t, err := tlb.ParseType(expr)
	if nil != err {
		return err
	}

	s, err := tlb.PrintCell(t, root)
	if nil != err {
		return err
	}
	fmt.Fprintf(w, "%s\n", s)
	return nil
}

func decodeHash(s string) ([]byte, error) {
	h, err := hex.DecodeString(strings.TrimSpace(s))
	if nil != err {
		return nil, err
	}
	if 32 != len(h) {
		return nil, fmt.Errorf("hash should be 32 bytes, got: %d", len(h))
	}
	return h, nil
}

func printJson(handle io.Writer, message interface{}) error {
	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}
