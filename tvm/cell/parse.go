package cell

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"

	"github.com/cellcodec/cellcodec/tvm/boc"
)

var ErrInvalidBOC = boc.ErrInvalidBOC

type rawCell struct {
	special bool
	mask    LevelMask
	bitsSz  uint
	data    []byte
	refs    []int

	hashes []byte
	depths []uint16
}

func FromBOC(data []byte) (*Cell, error) {
	cells, err := FromBOCMultiRoot(data)
	if err != nil {
		return nil, err
	}

	return cells[0], nil
}

func FromBOCMultiRoot(data []byte) ([]*Cell, error) {
	h, payload, err := boc.Parse(data)
	if err != nil {
		return nil, err
	}
	if h.AbsentNum > 0 {
		return nil, fmt.Errorf("%w: absent cells are not supported", ErrInvalidBOC)
	}

	raw, err := parseCells(h, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	cells, err := buildCells(raw)
	if err != nil {
		return nil, err
	}

	roots := make([]*Cell, 0, len(h.Roots))
	for _, idx := range h.Roots {
		roots = append(roots, cells[idx])
	}
	return roots, nil
}

func parseCells(h *boc.Header, data []byte) ([]rawCell, error) {
	r := boc.NewReader(data)
	cells := make([]rawCell, h.CellsNum)

	for i := 0; i < h.CellsNum; i++ {
		d1, err := r.ReadByte()
		if err != nil {
			return nil, errors.New("failed to parse cell refs num, corrupted data")
		}

		d2, err := r.ReadByte()
		if err != nil {
			return nil, errors.New("failed to parse cell length, corrupted data")
		}

		refsNum := int(d1 & 0b111)
		if refsNum > maxCellRefs {
			return nil, fmt.Errorf("cell %d has %d refs, absent cells are not supported", i, refsNum)
		}

		cl := &cells[i]
		cl.special = d1&8 != 0
		cl.mask = LevelMask{d1 >> 5}

		if d1&16 != 0 {
			n := cl.mask.getHashIndex() + 1
			if cl.hashes, err = r.ReadBytes(n * hashSize); err != nil {
				return nil, fmt.Errorf("failed to parse cell %d hashes: %w", i, err)
			}
			for j := 0; j < n; j++ {
				depth, err := r.ReadUInt(depthSize)
				if err != nil {
					return nil, fmt.Errorf("failed to parse cell %d depths: %w", i, err)
				}
				cl.depths = append(cl.depths, uint16(depth))
			}
		}

		// round to 1 byte, len in octets
		ln := int(d2>>1 + d2&1)
		payload, err := r.ReadBytes(ln)
		if err != nil {
			return nil, errors.New("failed to parse cell payload, corrupted data")
		}

		cl.bitsSz = uint(ln) * 8
		if d2&1 != 0 {
			last := payload[ln-1]
			if last&0x7F == 0 {
				return nil, fmt.Errorf("cell %d has no completion tag", i)
			}
			cl.bitsSz -= uint(bits.TrailingZeros8(last)) + 1
		}
		cl.data = payload

		for y := 0; y < refsNum; y++ {
			id, err := r.ReadUInt(h.RefSize)
			if err != nil {
				return nil, errors.New("failed to parse cell references, corrupted data")
			}
			if int(id) <= i || int(id) >= h.CellsNum {
				return nil, fmt.Errorf("cell %d has invalid ref index %d", i, id)
			}
			cl.refs = append(cl.refs, int(id))
		}

		if h.HasIndex {
			end := h.Index[i]
			if h.HasCacheBits {
				end >>= 1
			}
			if consumed := uint64(len(data) - r.LeftLen()); consumed != end {
				return nil, fmt.Errorf("cell %d end offset %d not matches index %d", i, consumed, end)
			}
		}
	}

	if r.LeftLen() != 0 {
		return nil, fmt.Errorf("%d bytes left after the last cell", r.LeftLen())
	}
	return cells, nil
}

// buildCells creates cells from the last one, refs always point forward.
func buildCells(raw []rawCell) ([]*Cell, error) {
	cells := make([]*Cell, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		rc := raw[i]

		refs := make([]*Cell, len(rc.refs))
		for y, id := range rc.refs {
			refs[y] = cells[id]
		}

		c, err := newCell(rc.special, rc.data, rc.bitsSz, refs)
		if err != nil {
			return nil, fmt.Errorf("failed to create cell %d: %w", i, err)
		}

		if c.levelMask != rc.mask {
			return nil, fmt.Errorf("cell %d level mask mismatch", i)
		}

		if rc.hashes != nil {
			n := len(rc.depths)
			if !bytes.Equal(c.getHash(maxLevel), rc.hashes[(n-1)*hashSize:]) {
				return nil, fmt.Errorf("cell %d representation hash mismatch", i)
			}
			if c.getDepth(maxLevel) != rc.depths[n-1] {
				return nil, fmt.Errorf("cell %d depth mismatch", i)
			}
		}
		cells[i] = c
	}
	return cells, nil
}
