package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"
)

func runLoad(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	h, err := decodeHash(c.String("hash"))
	if nil != err {
		return err
	}

	db, err := openDB(c, m, true)
	if nil != err {
		return err
	}
	defer db.Close()

	root, err := db.Get(h)
	if nil != err {
		return fmt.Errorf("hash: %x: %w", h, err)
	}

	if c.Bool("boc") {
		fmt.Fprintf(m.w, "%s\n", hex.EncodeToString(root.ToBOC()))
		return nil
	}
	return printCell(m.w, c.String("type"), root)
}
