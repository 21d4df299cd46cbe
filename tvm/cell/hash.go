package cell

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const (
	maxLevel = 3
	maxDepth = 1024

	hashSize  = 32
	depthSize = 2
)

// MaxDepth is the limit of a cell tree depth.
const MaxDepth = maxDepth

// newCell validates layout, computes level mask, hashes and depths.
// data must have at least ceil(bitsSz/8) bytes, it is copied.
func newCell(special bool, data []byte, bitsSz uint, refs []*Cell) (*Cell, error) {
	if bitsSz > maxCellBits {
		return nil, ErrNotFit1023
	}
	if len(refs) > maxCellRefs {
		return nil, ErrTooMuchRefs
	}
	for _, ref := range refs {
		if ref == nil {
			return nil, ErrRefCannotBeNil
		}
	}

	c := &Cell{
		special: special,
		bitsSz:  bitsSz,
		data:    extractBits(data, 0, bitsSz),
		refs:    append([]*Cell{}, refs...),
	}

	if err := c.computeLevelMask(); err != nil {
		return nil, err
	}

	if err := c.calculateHashes(); err != nil {
		return nil, err
	}

	if c.special {
		if err := c.verifySpecialRefs(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cell) computeLevelMask() error {
	if !c.special {
		var mask byte
		for _, ref := range c.refs {
			mask |= ref.levelMask.Mask
		}
		c.levelMask = LevelMask{mask}
		return nil
	}

	if c.bitsSz < 8 {
		return fmt.Errorf("%w: not enough data for a special cell", ErrInvalidSpecialCell)
	}

	switch c.GetType() {
	case PrunedCellType:
		if len(c.refs) != 0 {
			return fmt.Errorf("%w: pruned branch cannot have refs", ErrInvalidSpecialCell)
		}
		if c.bitsSz < 16 {
			return fmt.Errorf("%w: not enough data for a pruned branch", ErrInvalidSpecialCell)
		}

		mask := LevelMask{c.data[1]}
		if lvl := mask.GetLevel(); lvl == 0 || lvl > maxLevel {
			return fmt.Errorf("%w: pruned branch has invalid level %d", ErrInvalidSpecialCell, lvl)
		}

		if want := uint(16 + mask.getHashIndex()*(hashSize+depthSize)*8); c.bitsSz != want {
			return fmt.Errorf("%w: pruned branch should have %d bits, got %d", ErrInvalidSpecialCell, want, c.bitsSz)
		}
		c.levelMask = mask
	case LibraryCellType:
		if c.bitsSz != 8+hashSize*8 || len(c.refs) != 0 {
			return fmt.Errorf("%w: library cell layout mismatch", ErrInvalidSpecialCell)
		}
		c.levelMask = LevelMask{}
	case MerkleProofCellType:
		if c.bitsSz != (1+hashSize+depthSize)*8 || len(c.refs) != 1 {
			return fmt.Errorf("%w: merkle proof layout mismatch", ErrInvalidSpecialCell)
		}
		c.levelMask = c.refs[0].levelMask.shiftRight()
	case MerkleUpdateCellType:
		if c.bitsSz != (1+2*(hashSize+depthSize))*8 || len(c.refs) != 2 {
			return fmt.Errorf("%w: merkle update layout mismatch", ErrInvalidSpecialCell)
		}
		c.levelMask = LevelMask{c.refs[0].levelMask.Mask | c.refs[1].levelMask.Mask}.shiftRight()
	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidSpecialCell, c.data[0])
	}
	return nil
}

// verifySpecialRefs checks hashes and depths stored in merkle cells.
func (c *Cell) verifySpecialRefs() error {
	var n int
	switch c.GetType() {
	case MerkleProofCellType:
		n = 1
	case MerkleUpdateCellType:
		n = 2
	default:
		return nil
	}

	for i := 0; i < n; i++ {
		hashOff := 1 + i*hashSize
		depthOff := 1 + n*hashSize + i*depthSize

		if !bytes.Equal(c.data[hashOff:hashOff+hashSize], c.refs[i].getHash(0)) {
			return fmt.Errorf("%w: stored hash of ref %d mismatch", ErrInvalidSpecialCell, i)
		}
		if binary.BigEndian.Uint16(c.data[depthOff:]) != c.refs[i].getDepth(0) {
			return fmt.Errorf("%w: stored depth of ref %d mismatch", ErrInvalidSpecialCell, i)
		}
	}
	return nil
}

func (c *Cell) calculateHashes() error {
	totalHashCount := c.levelMask.getHashIndex() + 1
	c.hashes = make([]byte, hashSize*totalHashCount)
	c.depthLevels = make([]uint16, totalHashCount)

	typ := c.GetType()

	hashCount := totalHashCount
	if typ == PrunedCellType {
		// lower hashes are stored in the data itself
		hashCount = 1
	}

	hashIndexOffset := totalHashCount - hashCount
	hashIndex := 0
	level := c.levelMask.GetLevel()
	for levelIndex := 0; levelIndex <= level; levelIndex++ {
		if !c.levelMask.isSignificant(levelIndex) {
			continue
		}

		if hashIndex < hashIndexOffset {
			hashIndex++
			continue
		}

		hash := sha256.New()
		hash.Write(c.descriptors(c.levelMask.apply(levelIndex)))

		if hashIndex == hashIndexOffset {
			hash.Write(c.paddedData())
		} else {
			off := hashIndex - hashIndexOffset - 1
			hash.Write(c.hashes[off*hashSize : (off+1)*hashSize])
		}

		childLevel := levelIndex
		if typ == MerkleProofCellType || typ == MerkleUpdateCellType {
			childLevel++
		}

		var depth uint16
		for _, ref := range c.refs {
			childDepth := ref.getDepth(childLevel)

			var depthBytes [depthSize]byte
			binary.BigEndian.PutUint16(depthBytes[:], childDepth)
			hash.Write(depthBytes[:])

			if childDepth > depth {
				depth = childDepth
			}
		}

		if len(c.refs) > 0 {
			depth++
			if depth > maxDepth {
				return fmt.Errorf("%w: depth %d is more than %d", ErrCellOverflow, depth, maxDepth)
			}
		}

		for _, ref := range c.refs {
			hash.Write(ref.getHash(childLevel))
		}

		off := hashIndex - hashIndexOffset
		c.depthLevels[off] = depth
		copy(c.hashes[off*hashSize:(off+1)*hashSize], hash.Sum(nil))
		hashIndex++
	}
	return nil
}

func (c *Cell) getHash(level int) []byte {
	hashIndex := c.levelMask.apply(level).getHashIndex()
	if c.GetType() == PrunedCellType {
		if prunedHashIndex := c.levelMask.getHashIndex(); hashIndex != prunedHashIndex {
			off := 2 + hashIndex*hashSize
			return c.data[off : off+hashSize]
		}
		hashIndex = 0
	}
	return c.hashes[hashIndex*hashSize : (hashIndex+1)*hashSize]
}

func (c *Cell) getDepth(level int) uint16 {
	hashIndex := c.levelMask.apply(level).getHashIndex()
	if c.GetType() == PrunedCellType {
		if prunedHashIndex := c.levelMask.getHashIndex(); hashIndex != prunedHashIndex {
			off := 2 + hashSize*prunedHashIndex + hashIndex*depthSize
			return binary.BigEndian.Uint16(c.data[off : off+depthSize])
		}
		hashIndex = 0
	}
	return c.depthLevels[hashIndex]
}

func (c *Cell) descriptors(mask LevelMask) []byte {
	ceilBytes := c.bitsSz / 8
	if c.bitsSz%8 != 0 {
		ceilBytes++
	}

	specBit := byte(0)
	if c.special {
		specBit = 8
	}

	return []byte{byte(len(c.refs)) + specBit + mask.Mask*32, byte(ceilBytes + c.bitsSz/8)}
}

// paddedData returns data with the completion tag when it is not byte aligned.
func (c *Cell) paddedData() []byte {
	data := append([]byte{}, c.data...)
	if unusedBits := 8 - (c.bitsSz % 8); unusedBits != 8 {
		data[len(data)-1] |= 1 << (unusedBits - 1)
	}
	return data
}
