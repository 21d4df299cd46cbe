package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/cellcodec/cellcodec/celldb"
)

var errNoDB = errors.New("cell db directory is required")

func openDB(c *cli.Context, m *metadata, readOnly bool) (*celldb.Store, error) {
	dir := c.String("db")
	if "" == dir {
		return nil, errNoDB
	}
	if m.verbose {
		fmt.Fprintf(m.e, "cell db: %q  read only: %t\n", dir, readOnly)
	}

	return celldb.Open(dir, celldb.Options{
		Logger:   m.log,
		ReadOnly: readOnly,
	})
}

func runStore(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	roots, err := readRoots(c)
	if nil != err {
		return err
	}

	db, err := openDB(c, m, false)
	if nil != err {
		return err
	}
	defer db.Close()

	hashes := make([]string, 0, len(roots))
	for _, root := range roots {
		h, err := db.Put(root)
		if nil != err {
			return err
		}
		hashes = append(hashes, hex.EncodeToString(h))
	}

	return printJson(m.w, hashes)
}
