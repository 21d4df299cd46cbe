package tlb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// BinTreeLeaf is a value of a binary tree with its path of 0 (left) and 1 (right) digits.
type BinTreeLeaf[V any] struct {
	Path  string
	Value V
}

// BinTree holds leaves ordered by path.
type BinTree[V any] struct {
	Leaves []BinTreeLeaf[V]
}

// Get returns the leaf stored under the path.
func (b *BinTree[V]) Get(path string) (V, bool) {
	i := sort.Search(len(b.Leaves), func(i int) bool {
		return b.Leaves[i].Path >= path
	})
	if i < len(b.Leaves) && b.Leaves[i].Path == path {
		return b.Leaves[i].Value, true
	}
	var zero V
	return zero, false
}

// BinTreeCodec is bt_leaf$0 {X:Type} leaf:X = BinTree X;
// bt_fork$1 {X:Type} left:^(BinTree X) right:^(BinTree X) = BinTree X;
type BinTreeCodec[V any] struct {
	X Codec[V]
}

func BinTreeOf[V any](x Codec[V]) BinTreeCodec[V] {
	return BinTreeCodec[V]{X: x}
}

func (t BinTreeCodec[V]) CheckTag(s *cell.Slice) int {
	return BoolType.CheckTag(s)
}

func (t BinTreeCodec[V]) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		fork, err := s.LoadBoolBit()
		if err != nil {
			return err
		}
		if !fork {
			return t.X.Skip(s)
		}

		if err = skipRef(t, s); err != nil {
			return err
		}
		return skipRef(t, s)
	})
}

func (t BinTreeCodec[V]) PrintSkip(p *Printer, s *cell.Slice) error {
	fork, err := s.LoadBoolBit()
	if err != nil {
		return err
	}

	if !fork {
		p.Open("bt_leaf")
		p.Field("leaf")
		if err = t.X.PrintSkip(p, s); err != nil {
			return err
		}
		p.Close()
		return nil
	}

	p.Open("bt_fork")
	p.Field("left")
	if err = printRef(t, p, s); err != nil {
		return err
	}
	p.Field("right")
	if err = printRef(t, p, s); err != nil {
		return err
	}
	p.Close()
	return nil
}

func (t BinTreeCodec[V]) String() string {
	return "(BinTree " + t.X.String() + ")"
}

func (t BinTreeCodec[V]) Unpack(s *cell.Slice) (*BinTree[V], error) {
	return unpackAtomic(s, func(s *cell.Slice) (*BinTree[V], error) {
		tree := &BinTree[V]{}
		if err := t.unpackAt(s, "", tree); err != nil {
			return nil, err
		}
		return tree, nil
	})
}

func (t BinTreeCodec[V]) unpackAt(s *cell.Slice, path string, tree *BinTree[V]) error {
	if len(path) > cell.MaxDepth {
		return fmt.Errorf("binary tree is deeper than %d", cell.MaxDepth)
	}

	fork, err := s.LoadBoolBit()
	if err != nil {
		return err
	}

	if !fork {
		v, err := t.X.Unpack(s)
		if err != nil {
			return fmt.Errorf("leaf %q: %w", path, err)
		}
		tree.Leaves = append(tree.Leaves, BinTreeLeaf[V]{Path: path, Value: v})
		return nil
	}

	for _, dir := range []string{"0", "1"} {
		ref, err := s.LoadRefCell()
		if err != nil {
			return err
		}
		if ref.GetType() == cell.PrunedCellType {
			return fmt.Errorf("%w: subtree %q", cell.ErrPrunedBranch, path+dir)
		}

		rs := ref.BeginParse()
		if err = t.unpackAt(rs, path+dir, tree); err != nil {
			return err
		}
		if err = rs.EnsureEmpty(); err != nil {
			return fmt.Errorf("subtree %q: %w", path+dir, err)
		}
	}
	return nil
}

// Pack builds the tree from its leaves, the paths should form a complete prefix code.
func (t BinTreeCodec[V]) Pack(b *cell.Builder, tree *BinTree[V]) error {
	if tree == nil || len(tree.Leaves) == 0 {
		return fmt.Errorf("binary tree has no leaves")
	}

	leaves := append([]BinTreeLeaf[V](nil), tree.Leaves...)
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].Path < leaves[j].Path
	})
	for _, l := range leaves {
		if strings.Trim(l.Path, "01") != "" {
			return fmt.Errorf("invalid leaf path %q", l.Path)
		}
	}

	return packAtomic(b, func(b *cell.Builder) error {
		return t.packAt(b, "", leaves)
	})
}

func (t BinTreeCodec[V]) packAt(b *cell.Builder, path string, leaves []BinTreeLeaf[V]) error {
	if len(leaves) == 0 {
		return fmt.Errorf("no leaf under %q", path)
	}

	if leaves[0].Path == path {
		if len(leaves) > 1 {
			return fmt.Errorf("leaf %q is a prefix of %q", path, leaves[1].Path)
		}
		if err := b.StoreBoolBit(false); err != nil {
			return err
		}
		return t.X.Pack(b, leaves[0].Value)
	}

	if len(path) >= cell.MaxDepth {
		return fmt.Errorf("binary tree is deeper than %d", cell.MaxDepth)
	}

	// leaves are sorted, the left half goes first
	split := sort.Search(len(leaves), func(i int) bool {
		return leaves[i].Path[len(path)] == '1'
	})

	if err := b.StoreBoolBit(true); err != nil {
		return err
	}
	for i, part := range [][]BinTreeLeaf[V]{leaves[:split], leaves[split:]} {
		sub := cell.BeginCell()
		if err := t.packAt(sub, path+string(rune('0'+i)), part); err != nil {
			return err
		}
		if err := b.StoreRef(sub.EndCell()); err != nil {
			return err
		}
	}
	return nil
}
