package tlb

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// HmLabelCodec is HmLabel ~n m with the key budget m fixed,
// values are the label bits.
type HmLabelCodec struct {
	M uint
}

func HmLabel(m uint) HmLabelCodec {
	return HmLabelCodec{M: m}
}

// CheckTag returns 0 for hml_short, 1 for hml_long and 2 for hml_same.
func (t HmLabelCodec) CheckTag(s *cell.Slice) int {
	tag, err := s.BSelectExt(2, 0b1101)
	if err != nil {
		return -1
	}
	return tag
}

func (t HmLabelCodec) Skip(s *cell.Slice) error {
	_, err := cell.SkipLabel(s, t.M)
	return err
}

func (t HmLabelCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	label, kind, err := cell.LoadLabel(s, t.M)
	if err != nil {
		return err
	}

	switch kind {
	case cell.LabelShort:
		p.Open("hml_short")
		p.Field("len")
		p.Uint(uint64(label.Len()))
		p.Field("s")
		p.Bits(label)
	case cell.LabelLong:
		p.Open("hml_long")
		p.Field("n")
		p.Uint(uint64(label.Len()))
		p.Field("s")
		p.Bits(label)
	default:
		v, _ := label.IsAllSame()
		p.Open("hml_same")
		p.Field("v")
		if v {
			p.Value("1")
		} else {
			p.Value("0")
		}
		p.Field("n")
		p.Uint(uint64(label.Len()))
	}
	p.Close()
	return nil
}

func (t HmLabelCodec) String() string {
	return fmt.Sprintf("(HmLabel %d)", t.M)
}

func (t HmLabelCodec) Unpack(s *cell.Slice) (*cell.BitString, error) {
	label, _, err := cell.LoadLabel(s, t.M)
	return label, err
}

func (t HmLabelCodec) Pack(b *cell.Builder, label *cell.BitString) error {
	if label == nil {
		return fmt.Errorf("no value of %s", t)
	}
	return cell.StoreLabel(b, label, t.M)
}

// HashmapNodeCodec is
// hmn_leaf#_ {X:Type} value:X = HashmapNode 0 X;
// hmn_fork#_ {n:#} {X:Type} left:^(Hashmap n X) right:^(Hashmap n X) = HashmapNode (n + 1) X;
type HashmapNodeCodec[V any] struct {
	M     uint
	Value Codec[V]
}

func HashmapNode[V any](m uint, x Codec[V]) HashmapNodeCodec[V] {
	return HashmapNodeCodec[V]{M: m, Value: x}
}

func (t HashmapNodeCodec[V]) sub() HashmapType[V] {
	return Hashmap(t.M-1, t.Value)
}

// CheckTag selects by the key budget, not by bits.
func (t HashmapNodeCodec[V]) CheckTag(s *cell.Slice) int {
	if t.M == 0 {
		return 0
	}
	return 1
}

func (t HashmapNodeCodec[V]) Skip(s *cell.Slice) error {
	if t.M == 0 {
		return t.Value.Skip(s)
	}
	return atomic(s, func(s *cell.Slice) error {
		for i := 0; i < 2; i++ {
			if err := skipRef(t.sub(), s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t HashmapNodeCodec[V]) PrintSkip(p *Printer, s *cell.Slice) error {
	if t.M == 0 {
		p.Open("hmn_leaf")
		p.Field("value")
		if err := t.Value.PrintSkip(p, s); err != nil {
			return err
		}
		p.Close()
		return nil
	}

	p.Open("hmn_fork")
	for _, name := range []string{"left", "right"} {
		p.Field(name)
		if err := printRef(t.sub(), p, s); err != nil {
			return err
		}
	}
	p.Close()
	return nil
}

func (t HashmapNodeCodec[V]) String() string {
	return fmt.Sprintf("(HashmapNode %d %s)", t.M, t.Value)
}

// Unpack returns the node with an empty label. Children of a fork are
// parsed tries, pruned children are kept as NodePruned.
func (t HashmapNodeCodec[V]) Unpack(s *cell.Slice) (*cell.HashmapNode, error) {
	return unpackAtomic(s, func(s *cell.Slice) (*cell.HashmapNode, error) {
		node := &cell.HashmapNode{Label: &cell.BitString{}}
		if t.M == 0 {
			start := s.Copy()
			if err := t.Value.Skip(s); err != nil {
				return nil, err
			}
			v, err := s.Consumed(start)
			if err != nil {
				return nil, err
			}
			node.Kind, node.Value = cell.NodeLeaf, v
			return node, nil
		}

		node.Kind = cell.NodeFork
		codec := t.sub().codec()
		for i := range node.Children {
			ref, err := s.LoadRefCell()
			if err != nil {
				return nil, err
			}
			if ref.GetType() == cell.PrunedCellType {
				node.Children[i] = &cell.HashmapNode{Kind: cell.NodePruned, Pruned: ref}
				continue
			}

			rs := ref.BeginParse()
			trie, err := codec.Load(rs)
			if err != nil {
				return nil, err
			}
			if err = rs.EnsureEmpty(); err != nil {
				return nil, err
			}
			node.Children[i] = trie.Root
		}
		return node, nil
	})
}

func (t HashmapNodeCodec[V]) Pack(b *cell.Builder, node *cell.HashmapNode) error {
	if node == nil {
		return fmt.Errorf("no value of %s", t)
	}

	if t.M == 0 {
		if node.Kind != cell.NodeLeaf || node.Value == nil {
			return fmt.Errorf("%w: HashmapNode 0 should be a leaf", cell.ErrInvalidHashmap)
		}
		return Dynamic(t.Value).Pack(b, node.Value)
	}

	if node.Kind != cell.NodeFork {
		return fmt.Errorf("%w: HashmapNode %d should be a fork", cell.ErrInvalidHashmap, t.M)
	}
	codec := t.sub().codec()
	return packAtomic(b, func(b *cell.Builder) error {
		for _, ch := range node.Children {
			if ch == nil {
				return fmt.Errorf("%w: fork without child", cell.ErrInvalidHashmap)
			}
			c, err := (&cell.HashmapTrie{Codec: codec, Root: ch}).ToCell()
			if err != nil {
				return err
			}
			if err = b.StoreRef(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// MapEntry is one value of a dictionary. Extra is set for augmented maps.
type MapEntry[V any] struct {
	Key   *cell.BitString
	Value V
	Extra *cell.Slice
}

// Map is an unpacked dictionary with entries in key order.
type Map[V any] struct {
	Entries   []MapEntry[V]
	RootExtra *cell.Slice

	// Trie is the parsed trie, set by Unpack. Pack stores it as is while
	// Entries still hold its values, any change rebuilds the trie.
	Trie *cell.HashmapTrie
}

// Get finds the value of key.
func (m *Map[V]) Get(key *cell.BitString) (V, bool) {
	i := sort.Search(len(m.Entries), func(i int) bool {
		return m.Entries[i].Key.Compare(key) >= 0
	})
	if i < len(m.Entries) && m.Entries[i].Key.Equal(key) {
		return m.Entries[i].Value, true
	}

	var zero V
	return zero, false
}

// HashmapType is one of Hashmap, HashmapAug, VarHashmap and PfxHashmap,
// with an E wrapper when E is set.
type HashmapType[V any] struct {
	E     bool
	KeySz uint
	Flags cell.HashmapFlags
	Value Codec[V]
	// Extra and Fold are used by augmented maps, Fold combines extras
	// of two subtrees when a map is built from entries.
	Extra Type
	Fold  cell.ExtraFold
}

func Hashmap[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{KeySz: n, Value: x}
}

func HashmapE[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{E: true, KeySz: n, Value: x}
}

func HashmapAug[V any](n uint, x Codec[V], y Type, fold cell.ExtraFold) HashmapType[V] {
	return HashmapType[V]{KeySz: n, Flags: cell.HashmapAugmented, Value: x, Extra: y, Fold: fold}
}

func HashmapAugE[V any](n uint, x Codec[V], y Type, fold cell.ExtraFold) HashmapType[V] {
	t := HashmapAug(n, x, y, fold)
	t.E = true
	return t
}

func VarHashmap[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{KeySz: n, Flags: cell.HashmapVar, Value: x}
}

func VarHashmapE[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{E: true, KeySz: n, Flags: cell.HashmapVar, Value: x}
}

func PfxHashmap[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{KeySz: n, Flags: cell.HashmapPfx, Value: x}
}

func PfxHashmapE[V any](n uint, x Codec[V]) HashmapType[V] {
	return HashmapType[V]{E: true, KeySz: n, Flags: cell.HashmapPfx, Value: x}
}

func (t HashmapType[V]) augmented() bool {
	return t.Flags&cell.HashmapAugmented != 0
}

func (t HashmapType[V]) codec() cell.HashmapCodec {
	h := cell.HashmapCodec{KeySz: t.KeySz, Flags: t.Flags, SkipValue: t.Value.Skip}
	if t.Extra != nil {
		h.SkipExtra = t.Extra.Skip
	}
	return h
}

func (t HashmapType[V]) load(s *cell.Slice) (*cell.HashmapTrie, error) {
	if t.E {
		return t.codec().LoadE(s)
	}
	return t.codec().Load(s)
}

func (t HashmapType[V]) prefix() string {
	switch {
	case t.augmented():
		return "a"
	case t.Flags&cell.HashmapVar != 0:
		return "v"
	case t.Flags&cell.HashmapPfx != 0:
		return "p"
	}
	return ""
}

func (t HashmapType[V]) CheckTag(s *cell.Slice) int {
	if t.E {
		return BoolType.CheckTag(s)
	}
	return 0
}

func (t HashmapType[V]) Skip(s *cell.Slice) error {
	_, err := t.load(s)
	return err
}

func (t HashmapType[V]) PrintSkip(p *Printer, s *cell.Slice) error {
	trie, err := t.load(s)
	if err != nil {
		return err
	}

	pre := t.prefix()
	if !t.E {
		return t.printTrie(p, trie.Root)
	}

	if trie.Root == nil {
		if !t.augmented() {
			p.Value(pre + "hme_empty")
			return nil
		}
		p.Open(pre + "hme_empty")
	} else {
		p.Open(pre + "hme_root")
		p.Field("root")
		if trie.Root.Kind == cell.NodePruned {
			printPruned(p, trie.Root.Pruned)
		} else if err = t.printTrie(p, trie.Root); err != nil {
			return err
		}
	}

	if t.augmented() {
		p.Field("extra")
		if err = t.Extra.PrintSkip(p, trie.RootExtra.Copy()); err != nil {
			return err
		}
	}
	p.Close()
	return nil
}

// printTrie writes all entries of a trie in one node, pruned subtrees
// are shown by hash in their key order.
func (t HashmapType[V]) printTrie(p *Printer, root *cell.HashmapNode) error {
	p.Open(t.prefix() + "hm_edge")
	err := walkTrie(root, func(key *cell.BitString, node *cell.HashmapNode) error {
		if node.Kind == cell.NodePruned {
			p.Field("pruned")
			p.Bytes(node.Pruned.Hash(0))
			return nil
		}

		p.Field("key")
		p.Bits(key)
		p.Field("value")
		if err := t.Value.PrintSkip(p, node.Value.Copy()); err != nil {
			return err
		}
		if t.augmented() {
			p.Field("extra")
			if err := t.Extra.PrintSkip(p, node.Extra.Copy()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Close()
	return nil
}

func (t HashmapType[V]) String() string {
	name := "Hashmap"
	switch {
	case t.augmented():
		name = "HashmapAug"
	case t.Flags&cell.HashmapVar != 0:
		name = "VarHashmap"
	case t.Flags&cell.HashmapPfx != 0:
		name = "PfxHashmap"
	}
	if t.E {
		name += "E"
	}

	if t.augmented() {
		return fmt.Sprintf("(%s %d %s %s)", name, t.KeySz, t.Value, t.Extra)
	}
	return fmt.Sprintf("(%s %d %s)", name, t.KeySz, t.Value)
}

// Unpack reads all entries, maps with pruned subtrees can only be skipped
// or printed.
func (t HashmapType[V]) Unpack(s *cell.Slice) (*Map[V], error) {
	return unpackAtomic(s, func(s *cell.Slice) (*Map[V], error) {
		trie, err := t.load(s)
		if err != nil {
			return nil, err
		}
		if pruned := trie.PrunedCells(); len(pruned) > 0 {
			return nil, fmt.Errorf("%w: %d subtrees of %s", cell.ErrPrunedBranch, len(pruned), t)
		}

		m := &Map[V]{RootExtra: trie.RootExtra, Trie: trie}
		for _, e := range trie.Entries() {
			vs := e.Value.Copy()
			v, err := t.Value.Unpack(vs)
			if err != nil {
				return nil, fmt.Errorf("failed to unpack value of key %s: %w", e.Key, err)
			}
			if err = vs.EnsureEmpty(); err != nil {
				return nil, fmt.Errorf("value of key %s: %w", e.Key, err)
			}
			m.Entries = append(m.Entries, MapEntry[V]{Key: e.Key, Value: v, Extra: e.Extra})
		}
		return m, nil
	})
}

func (t HashmapType[V]) Pack(b *cell.Builder, m *Map[V]) error {
	if m == nil {
		return fmt.Errorf("no value of %s", t)
	}

	trie := m.Trie
	if trie == nil || !t.sameAsTrie(m) {
		var err error
		if trie, err = t.build(m); err != nil {
			return err
		}
	}

	if t.E {
		return trie.StoreE(b)
	}
	return trie.Store(b)
}

// sameAsTrie reports whether Entries and RootExtra still match m.Trie.
func (t HashmapType[V]) sameAsTrie(m *Map[V]) bool {
	entries := m.Trie.Entries()
	if len(entries) != len(m.Entries) || !sameSlice(m.RootExtra, m.Trie.RootExtra) {
		return false
	}

	for i, e := range entries {
		me := m.Entries[i]
		if !me.Key.Equal(e.Key) || (t.augmented() && !sameSlice(me.Extra, e.Extra)) {
			return false
		}

		vb := cell.BeginCell()
		if err := t.Value.Pack(vb, me.Value); err != nil {
			return false
		}
		if !sameSlice(vb.ToSlice(), e.Value) {
			return false
		}
	}
	return true
}

func sameSlice(a, b *cell.Slice) bool {
	if a == nil || b == nil {
		return a == b
	}
	ca, err := a.ToCell()
	if err != nil {
		return false
	}
	cb, err := b.ToCell()
	if err != nil {
		return false
	}
	return bytes.Equal(ca.Hash(), cb.Hash())
}

func (t HashmapType[V]) build(m *Map[V]) (*cell.HashmapTrie, error) {
	items := make([]cell.HashmapItem, 0, len(m.Entries))
	for _, e := range m.Entries {
		vb := cell.BeginCell()
		if err := t.Value.Pack(vb, e.Value); err != nil {
			return nil, fmt.Errorf("failed to pack value of key %s: %w", e.Key, err)
		}
		item := cell.HashmapItem{Key: e.Key, Value: vb.ToSlice()}

		if t.augmented() {
			if e.Extra == nil {
				return nil, fmt.Errorf("%w: no extra for key %s", cell.ErrInvalidHashmap, e.Key)
			}
			if err := t.Extra.Skip(e.Extra.Copy()); err != nil {
				return nil, fmt.Errorf("invalid extra of key %s: %w", e.Key, err)
			}
			item.Extra = e.Extra
		}
		items = append(items, item)
	}

	if !t.augmented() {
		return t.codec().BuildHashmap(items)
	}
	if t.Fold == nil {
		return nil, fmt.Errorf("%w: %s has no extra fold", cell.ErrInvalidHashmap, t)
	}
	return t.codec().BuildHashmapAug(items, t.Fold, m.RootExtra)
}

// walkTrie calls fn in key order for every node with a value and every pruned subtree.
func walkTrie(root *cell.HashmapNode, fn func(key *cell.BitString, node *cell.HashmapNode) error) error {
	if root == nil {
		return nil
	}

	type item struct {
		node   *cell.HashmapNode
		prefix *cell.BitString
	}

	stack := []item{{root, &cell.BitString{}}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.node.Kind == cell.NodePruned {
			if err := fn(it.prefix, it.node); err != nil {
				return err
			}
			continue
		}

		key, err := it.prefix.Append(it.node.Label)
		if err != nil {
			return err
		}
		if it.node.Value != nil {
			if err = fn(key, it.node); err != nil {
				return err
			}
		}

		switch it.node.Kind {
		case cell.NodeFork:
			left, _ := key.AppendBit(false)
			right, _ := key.AppendBit(true)
			stack = append(stack, item{it.node.Children[1], right}, item{it.node.Children[0], left})
		case cell.NodeCont:
			next, _ := key.AppendBit(it.node.Branch)
			stack = append(stack, item{it.node.Children[0], next})
		}
	}
	return nil
}

func printPruned(p *Printer, c *cell.Cell) {
	p.Open("pruned_branch")
	p.Field("hash")
	p.Bytes(c.Hash(0))
	p.Close()
}
