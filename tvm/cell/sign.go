package cell

import (
	"crypto/ed25519"
	"errors"

	ed25519crv "github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Sign signs representation hash of the cell.
func (c *Cell) Sign(key ed25519.PrivateKey) []byte {
	return ed25519crv.Sign(ed25519crv.PrivateKey(key), c.Hash())
}

// Verify checks signature of representation hash of the cell.
func (c *Cell) Verify(key ed25519.PublicKey, signature []byte) bool {
	if len(key) != ed25519crv.PublicKeySize || len(signature) != ed25519crv.SignatureSize {
		return false
	}
	return ed25519crv.Verify(ed25519crv.PublicKey(key), c.Hash(), signature)
}

// LoadSigned loads a 512 bit signature followed by a ref to the signed cell
// and checks it.
func (c *Slice) LoadSigned(key ed25519.PublicKey) (*Cell, error) {
	tmp := *c
	sig, err := tmp.LoadSlice(ed25519crv.SignatureSize * 8)
	if err != nil {
		return nil, err
	}

	body, err := tmp.LoadRefCell()
	if err != nil {
		return nil, err
	}

	if !body.Verify(key, sig) {
		return nil, ErrInvalidSignature
	}
	*c = tmp
	return body, nil
}

// StoreSigned stores a signature of body and a ref to it.
func (b *Builder) StoreSigned(key ed25519.PrivateKey, body *Cell) error {
	if !b.CanExtendBy(ed25519crv.SignatureSize*8, 1) {
		if b.done != nil {
			return ErrBuilderFinalized
		}
		return ErrCellOverflow
	}

	// both fit, checked above
	_ = b.StoreSlice(body.Sign(key), ed25519crv.SignatureSize*8)
	return b.StoreRef(body)
}
