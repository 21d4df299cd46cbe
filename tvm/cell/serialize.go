package cell

import (
	"encoding/binary"

	"github.com/cellcodec/cellcodec/tvm/boc"
)

// BOCOptions selects optional parts of serialized bag of cells.
type BOCOptions struct {
	WithCRC   bool
	WithIndex bool
	// WithHashes stores hashes and depths of every cell.
	WithHashes bool
}

func (c *Cell) ToBOC() []byte {
	return c.ToBOCWithFlags(true)
}

func (c *Cell) ToBOCWithFlags(withCRC bool) []byte {
	return ToBOCWithFlags([]*Cell{c}, withCRC)
}

func ToBOCWithFlags(roots []*Cell, withCRC bool) []byte {
	return ToBOCWithOptions(roots, BOCOptions{WithCRC: withCRC})
}

func ToBOCWithOptions(roots []*Cell, opts BOCOptions) []byte {
	if len(roots) == 0 {
		return nil
	}

	// recursively go through cells, build hash index and store unique in slice
	ordered, index := orderCells(roots)

	refSize := boc.BytesFor(uint64(len(ordered)))

	var payload []byte
	var offsets []uint64
	for _, item := range ordered {
		payload = item.cell.serialize(payload, refSize, index, opts.WithHashes)
		offsets = append(offsets, uint64(len(payload)))
	}

	h := &boc.Header{
		Flags: boc.Flags{
			HasIndex:  opts.WithIndex,
			HasCrc32c: opts.WithCRC,
			RefSize:   refSize,
		},
		OffsetSize: boc.BytesFor(uint64(len(payload))),
		CellsNum:   len(ordered),
	}

	for _, r := range roots {
		h.Roots = append(h.Roots, int(index[string(r.getHash(maxLevel))].index))
	}
	if opts.WithIndex {
		h.Index = offsets
	}

	return h.Serialize(payload)
}

func (c *Cell) serialize(data []byte, refSize int, index map[string]*idxItem, withHashes bool) []byte {
	d := c.descriptors(c.levelMask)
	if withHashes {
		d[0] |= 16
	}
	data = append(data, d...)

	if withHashes {
		level := c.levelMask.GetLevel()
		for i := 0; i <= level; i++ {
			if c.levelMask.isSignificant(i) {
				data = append(data, c.getHash(i)...)
			}
		}
		for i := 0; i <= level; i++ {
			if c.levelMask.isSignificant(i) {
				data = binary.BigEndian.AppendUint16(data, c.getDepth(i))
			}
		}
	}

	data = append(data, c.paddedData()...)

	for _, ref := range c.refs {
		data = boc.AppendUInt(data, index[string(ref.getHash(maxLevel))].index, refSize)
	}
	return data
}
