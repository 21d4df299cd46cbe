package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"
)

type rootHash struct {
	Hash  string `json:"hash"`
	Depth uint16 `json:"depth"`
	Level int    `json:"level"`
}

func runHash(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	roots, err := readRoots(c)
	if nil != err {
		return err
	}

	level := c.Int("level")
	if level > 3 {
		return fmt.Errorf("invalid level: %d", level)
	}

	out := make([]rootHash, 0, len(roots))
	for _, root := range roots {
		h := rootHash{Level: root.Level()}
		if level < 0 {
			h.Hash = hex.EncodeToString(root.Hash())
			h.Depth = root.Depth()
		} else {
			h.Hash = hex.EncodeToString(root.Hash(level))
			h.Depth = root.Depth(level)
		}
		out = append(out, h)
	}

	m.log.Infof("hashed roots: %d", len(out))
	return printJson(m.w, out)
}
