package cell

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

type Type uint8

const (
	OrdinaryCellType     Type = 0x00
	PrunedCellType       Type = 0x01
	LibraryCellType      Type = 0x02
	MerkleProofCellType  Type = 0x03
	MerkleUpdateCellType Type = 0x04
	UnknownCellType      Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case OrdinaryCellType:
		return "ordinary"
	case PrunedCellType:
		return "pruned branch"
	case LibraryCellType:
		return "library"
	case MerkleProofCellType:
		return "merkle proof"
	case MerkleUpdateCellType:
		return "merkle update"
	}
	return "unknown"
}

// Cell is immutable after construction, so it can be shared
// between goroutines and parents freely.
type Cell struct {
	special   bool
	levelMask LevelMask
	bitsSz    uint
	data      []byte

	hashes      []byte
	depthLevels []uint16

	refs []*Cell
}

func (c *Cell) BeginParse() *Slice {
	return &Slice{
		cell:    c,
		bitsEnd: c.bitsSz,
		refsEnd: len(c.refs),
	}
}

func (c *Cell) ToBuilder() *Builder {
	b := BeginCell()
	copy(b.data[:], c.data)
	b.bitsSz = c.bitsSz
	b.refs = append(b.refs, c.refs...)
	return b
}

func (c *Cell) BitsSize() uint {
	return c.bitsSz
}

func (c *Cell) RefsNum() int {
	return len(c.refs)
}

// PeekRef returns i-th child without any cursor.
func (c *Cell) PeekRef(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, ErrNoMoreRefs
	}
	return c.refs[i], nil
}

// Bits returns a copy of the cell data.
func (c *Cell) Bits() *BitString {
	return &BitString{
		sz:   c.bitsSz,
		data: append([]byte{}, c.data...),
	}
}

func (c *Cell) IsSpecial() bool {
	return c.special
}

func (c *Cell) GetType() Type {
	if !c.special {
		return OrdinaryCellType
	}
	if c.bitsSz < 8 {
		return UnknownCellType
	}

	switch t := Type(c.data[0]); t {
	case PrunedCellType, LibraryCellType, MerkleProofCellType, MerkleUpdateCellType:
		return t
	}
	return UnknownCellType
}

func (c *Cell) LevelMask() LevelMask {
	return c.levelMask
}

func (c *Cell) Level() int {
	return c.levelMask.GetLevel()
}

// Hash returns representation hash, or the hash of the given level.
func (c *Cell) Hash(level ...int) []byte {
	if len(level) > 0 {
		return append([]byte{}, c.getHash(level[0])...)
	}
	return append([]byte{}, c.getHash(maxLevel)...)
}

// Depth returns the max depth of the subtree, or of the given level.
func (c *Cell) Depth(level ...int) uint16 {
	if len(level) > 0 {
		return c.getDepth(level[0])
	}
	return c.getDepth(maxLevel)
}

func (c *Cell) Equal(other *Cell) bool {
	if c == nil || other == nil {
		return c == other
	}
	return bytes.Equal(c.getHash(maxLevel), other.getHash(maxLevel))
}

func (c *Cell) Dump() string {
	return c.dump(0, false)
}

func (c *Cell) DumpBits() string {
	return c.dump(0, true)
}

func (c *Cell) dump(deep int, bin bool) string {
	var val string
	if bin {
		val = c.Bits().String()
	} else {
		val = strings.ToUpper(hex.EncodeToString(c.data))
	}

	str := strings.Repeat("  ", deep) + fmt.Sprint(c.bitsSz) + "[" + val + "]"
	if c.levelMask.GetLevel() > 0 {
		str += fmt.Sprintf("{%d}", c.levelMask.GetLevel())
	}
	if c.special {
		str += "*"
	}

	if len(c.refs) > 0 {
		str += " -> {"
		for i, ref := range c.refs {
			str += "\n" + ref.dump(deep+1, bin)
			if i == len(c.refs)-1 {
				str += "\n"
			} else {
				str += ","
			}
		}
		str += strings.Repeat("  ", deep)
		return str + "}"
	}
	return str
}
