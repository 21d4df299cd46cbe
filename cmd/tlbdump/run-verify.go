package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"
)

func runVerify(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	key, err := hex.DecodeString(c.String("key"))
	if nil != err {
		return fmt.Errorf("key: %w", err)
	}
	if ed25519.PublicKeySize != len(key) {
		return fmt.Errorf("key should be %d bytes, got: %d", ed25519.PublicKeySize, len(key))
	}

	sig, err := hex.DecodeString(c.String("signature"))
	if nil != err {
		return fmt.Errorf("signature: %w", err)
	}

	roots, err := readRoots(c)
	if nil != err {
		return err
	}

	ok := roots[0].Verify(ed25519.PublicKey(key), sig)
	m.log.Infof("verify hash: %x  valid: %t", roots[0].Hash(), ok)

	out := struct {
		Hash  string `json:"hash"`
		Valid bool   `json:"valid"`
	}{
		Hash:  hex.EncodeToString(roots[0].Hash()),
		Valid: ok,
	}
	if err := printJson(m.w, out); nil != err {
		return err
	}
	if !ok {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
