package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func runDecode(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	roots, err := readRoots(c)
	if nil != err {
		return err
	}

	expr := c.String("type")
	if m.verbose {
		fmt.Fprintf(m.e, "roots: %d  type: %q\n", len(roots), expr)
	}

	for i, root := range roots {
		if len(roots) > 1 {
			fmt.Fprintf(m.w, "root %d:\n", i)
		}
		if err := printCell(m.w, expr, root); nil != err {
			m.log.Errorf("decode root: %d  error: %s", i, err)
			return fmt.Errorf("root %d: %w", i, err)
		}
	}
	return nil
}
