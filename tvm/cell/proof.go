package cell

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrInvalidProof = errors.New("invalid merkle proof")

// ProofSkeleton marks the paths which stay in a proof,
// everything else is replaced by pruned branches.
type ProofSkeleton struct {
	recursive bool
	branches  [maxCellRefs]*ProofSkeleton
}

func CreateProofSkeleton() *ProofSkeleton {
	return &ProofSkeleton{}
}

// ProofRef keeps ref i of the cell and returns its skeleton.
func (s *ProofSkeleton) ProofRef(i int) *ProofSkeleton {
	if s.branches[i] == nil {
		s.branches[i] = &ProofSkeleton{}
	}
	return s.branches[i]
}

// SetRecursive keeps the whole subtree.
func (s *ProofSkeleton) SetRecursive() {
	s.recursive = true
}

// Merge adds paths of another skeleton.
func (s *ProofSkeleton) Merge(sk *ProofSkeleton) {
	if sk == nil {
		return
	}
	if sk.recursive {
		s.recursive = true
	}
	for i, b := range sk.branches {
		if b != nil {
			s.ProofRef(i).Merge(b)
		}
	}
}

// CreateProof wraps the cell with pruned parts into a merkle proof cell.
func (c *Cell) CreateProof(skeleton *ProofSkeleton) (*Cell, error) {
	body, err := c.toProof(skeleton)
	if err != nil {
		return nil, fmt.Errorf("failed to build proof for cell: %w", err)
	}
	return wrapMerkleProof(body)
}

func wrapMerkleProof(body *Cell) (*Cell, error) {
	data := make([]byte, 1+hashSize+depthSize)
	data[0] = byte(MerkleProofCellType)
	copy(data[1:], body.getHash(0))
	binary.BigEndian.PutUint16(data[1+hashSize:], body.getDepth(0))

	return newCell(true, data, uint(len(data))*8, []*Cell{body})
}

func (c *Cell) toProof(sk *ProofSkeleton) (*Cell, error) {
	if sk == nil {
		return CreatePrunedBranch(c, c.Level()+1)
	}
	if sk.recursive || len(c.refs) == 0 {
		return c, nil
	}

	refs := make([]*Cell, len(c.refs))
	for i, ref := range c.refs {
		var err error
		if refs[i], err = ref.toProof(sk.branches[i]); err != nil {
			return nil, err
		}
	}
	return newCell(c.special, c.data, c.bitsSz, refs)
}

// CreatePrunedBranch replaces cell with a pruned branch of the given level,
// which keeps its hashes and depths.
func CreatePrunedBranch(c *Cell, level int) (*Cell, error) {
	if level <= c.Level() || level > maxLevel {
		return nil, fmt.Errorf("%w: cannot prune cell of level %d to level %d", ErrInvalidSpecialCell, c.Level(), level)
	}

	mask := LevelMask{c.levelMask.Mask | 1<<(level-1)}

	data := []byte{byte(PrunedCellType), mask.Mask}
	var depths []byte
	for i := 0; i < level; i++ {
		if !c.levelMask.isSignificant(i) {
			continue
		}
		data = append(data, c.getHash(i)...)
		depths = binary.BigEndian.AppendUint16(depths, c.getDepth(i))
	}
	data = append(data, depths...)

	return newCell(true, data, uint(len(data))*8, nil)
}

// CheckProof verifies that the proof is for a cell with the given hash.
func CheckProof(proof *Cell, hash []byte) error {
	_, err := UnwrapProof(proof, hash)
	return err
}

// UnwrapProof checks the proof and returns its body.
func UnwrapProof(proof *Cell, hash []byte) (*Cell, error) {
	if proof.GetType() != MerkleProofCellType {
		return nil, fmt.Errorf("%w: not a merkle proof cell", ErrInvalidProof)
	}

	// stored hash and depth are verified against the body on construction
	if !bytes.Equal(hash, proof.data[1:1+hashSize]) {
		return nil, fmt.Errorf("%w: incorrect proof hash", ErrInvalidProof)
	}
	return proof.refs[0], nil
}
