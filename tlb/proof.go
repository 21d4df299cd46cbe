package tlb

import (
	"fmt"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// HashUpdate is update_hashes#72 {X:Type} old_hash:bits256 new_hash:bits256 = HASH_UPDATE X;
// X only names the type of the hashed cells.
type HashUpdate struct {
	_       Magic  `tlb:"#72"`
	OldHash []byte `tlb:"bits 256"`
	NewHash []byte `tlb:"bits 256"`
}

var HashUpdateType = Struct[HashUpdate]()

// MerkleProof is a loaded !merkle_proof#03 cell.
type MerkleProof[R any] struct {
	VirtualHash []byte
	Depth       uint16
	VirtualRoot R
}

// MerkleProofCodec is !merkle_proof#03 {X:Type} virtual_hash:bits256 depth:uint16 virtual_root:^X = MERKLE_PROOF X;
type MerkleProofCodec[R any] struct {
	X Codec[R]
}

func MerkleProofOf[R any](x Codec[R]) MerkleProofCodec[R] {
	return MerkleProofCodec[R]{X: x}
}

func (t MerkleProofCodec[R]) Special() bool {
	return true
}

func (t MerkleProofCodec[R]) CheckTag(s *cell.Slice) int {
	return checkSpecialTag(s, cell.MerkleProofCellType)
}

func (t MerkleProofCodec[R]) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		if err := loadSpecialTag(s, cell.MerkleProofCellType, t); err != nil {
			return err
		}
		if err := s.Advance(256 + 16); err != nil {
			return err
		}
		return skipRef(t.X, s)
	})
}

func (t MerkleProofCodec[R]) PrintSkip(p *Printer, s *cell.Slice) error {
	if err := loadSpecialTag(s, cell.MerkleProofCellType, t); err != nil {
		return err
	}
	hash, err := s.LoadSlice(256)
	if err != nil {
		return err
	}
	depth, err := s.LoadUInt(16)
	if err != nil {
		return err
	}

	p.Open("merkle_proof")
	p.Field("virtual_hash")
	p.Bytes(hash)
	p.Field("depth")
	p.Uint(depth)
	p.Field("virtual_root")
	if err = printRef(t.X, p, s); err != nil {
		return err
	}
	p.Close()
	return nil
}

func (t MerkleProofCodec[R]) String() string {
	return fmt.Sprintf("(MERKLE_PROOF %s)", t.X)
}

// Unpack reads the virtual root, which must not be pruned itself.
func (t MerkleProofCodec[R]) Unpack(s *cell.Slice) (MerkleProof[R], error) {
	return unpackAtomic(s, func(s *cell.Slice) (MerkleProof[R], error) {
		var mp MerkleProof[R]
		if err := loadSpecialTag(s, cell.MerkleProofCellType, t); err != nil {
			return mp, err
		}

		var err error
		if mp.VirtualHash, err = s.LoadSlice(256); err != nil {
			return mp, err
		}
		depth, err := s.LoadUInt(16)
		if err != nil {
			return mp, err
		}
		mp.Depth = uint16(depth)

		if mp.VirtualRoot, err = unpackRef(t.X, s); err != nil {
			return mp, fmt.Errorf("failed to unpack virtual root: %w", err)
		}
		return mp, nil
	})
}

// Pack stores the virtual root, hash and depth are taken from it.
func (t MerkleProofCodec[R]) Pack(b *cell.Builder, v MerkleProof[R]) error {
	body, err := PackCell(t.X, v.VirtualRoot)
	if err != nil {
		return err
	}
	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreUInt(uint64(cell.MerkleProofCellType), 8); err != nil {
			return err
		}
		if err := b.StoreSlice(body.Hash(0), 256); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(body.Depth(0)), 16); err != nil {
			return err
		}
		return b.StoreRef(body)
	})
}

// MerkleUpdate is a loaded !merkle_update#04 cell.
type MerkleUpdate[R any] struct {
	OldHash  []byte
	NewHash  []byte
	OldDepth uint16
	NewDepth uint16
	Old      R
	New      R
}

// MerkleUpdateCodec is !merkle_update#04 {X:Type} old_hash:bits256 new_hash:bits256
// old_depth:uint16 new_depth:uint16 old:^X new:^X = MERKLE_UPDATE X;
type MerkleUpdateCodec[R any] struct {
	X Codec[R]
}

func MerkleUpdateOf[R any](x Codec[R]) MerkleUpdateCodec[R] {
	return MerkleUpdateCodec[R]{X: x}
}

func (t MerkleUpdateCodec[R]) Special() bool {
	return true
}

func (t MerkleUpdateCodec[R]) CheckTag(s *cell.Slice) int {
	return checkSpecialTag(s, cell.MerkleUpdateCellType)
}

func (t MerkleUpdateCodec[R]) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		if err := loadSpecialTag(s, cell.MerkleUpdateCellType, t); err != nil {
			return err
		}
		if err := s.Advance(2*256 + 2*16); err != nil {
			return err
		}
		if err := skipRef(t.X, s); err != nil {
			return err
		}
		return skipRef(t.X, s)
	})
}

func (t MerkleUpdateCodec[R]) PrintSkip(p *Printer, s *cell.Slice) error {
	if err := loadSpecialTag(s, cell.MerkleUpdateCellType, t); err != nil {
		return err
	}

	p.Open("merkle_update")
	for _, name := range []string{"old_hash", "new_hash"} {
		h, err := s.LoadSlice(256)
		if err != nil {
			return err
		}
		p.Field(name)
		p.Bytes(h)
	}
	for _, name := range []string{"old_depth", "new_depth"} {
		d, err := s.LoadUInt(16)
		if err != nil {
			return err
		}
		p.Field(name)
		p.Uint(d)
	}
	for _, name := range []string{"old", "new"} {
		p.Field(name)
		if err := printRef(t.X, p, s); err != nil {
			return err
		}
	}
	p.Close()
	return nil
}

func (t MerkleUpdateCodec[R]) String() string {
	return fmt.Sprintf("(MERKLE_UPDATE %s)", t.X)
}

func (t MerkleUpdateCodec[R]) Unpack(s *cell.Slice) (MerkleUpdate[R], error) {
	return unpackAtomic(s, func(s *cell.Slice) (MerkleUpdate[R], error) {
		var mu MerkleUpdate[R]
		if err := loadSpecialTag(s, cell.MerkleUpdateCellType, t); err != nil {
			return mu, err
		}

		var err error
		if mu.OldHash, err = s.LoadSlice(256); err != nil {
			return mu, err
		}
		if mu.NewHash, err = s.LoadSlice(256); err != nil {
			return mu, err
		}

		depths := make([]uint64, 2)
		for i := range depths {
			if depths[i], err = s.LoadUInt(16); err != nil {
				return mu, err
			}
		}
		mu.OldDepth, mu.NewDepth = uint16(depths[0]), uint16(depths[1])

		if mu.Old, err = unpackRef(t.X, s); err != nil {
			return mu, fmt.Errorf("failed to unpack old state: %w", err)
		}
		if mu.New, err = unpackRef(t.X, s); err != nil {
			return mu, fmt.Errorf("failed to unpack new state: %w", err)
		}
		return mu, nil
	})
}

func (t MerkleUpdateCodec[R]) Pack(b *cell.Builder, v MerkleUpdate[R]) error {
	oldBody, err := PackCell(t.X, v.Old)
	if err != nil {
		return err
	}
	newBody, err := PackCell(t.X, v.New)
	if err != nil {
		return err
	}

	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreUInt(uint64(cell.MerkleUpdateCellType), 8); err != nil {
			return err
		}
		for _, c := range []*cell.Cell{oldBody, newBody} {
			if err := b.StoreSlice(c.Hash(0), 256); err != nil {
				return err
			}
		}
		for _, c := range []*cell.Cell{oldBody, newBody} {
			if err := b.StoreUInt(uint64(c.Depth(0)), 16); err != nil {
				return err
			}
		}
		if err := b.StoreRef(oldBody); err != nil {
			return err
		}
		return b.StoreRef(newBody)
	})
}

func checkSpecialTag(s *cell.Slice, typ cell.Type) int {
	tag, err := s.PreloadUInt(8)
	if err != nil || tag != uint64(typ) {
		return -1
	}
	return 0
}

func loadSpecialTag(s *cell.Slice, typ cell.Type, t Type) error {
	tag, err := s.LoadUInt(8)
	if err != nil {
		return err
	}
	if tag != uint64(typ) {
		return fmt.Errorf("%w: %s, tag %02x", ErrUnknownConstructor, t, tag)
	}
	return nil
}
