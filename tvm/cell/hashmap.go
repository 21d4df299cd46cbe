package cell

import (
	"errors"
	"fmt"
)

// HashmapFlags select node layout of a label compressed trie.
// Without flags it is the plain Hashmap n X.
type HashmapFlags uint8

const (
	// HashmapAugmented adds an extra value to every node (HashmapAug n X Y).
	HashmapAugmented HashmapFlags = 1 << iota
	// HashmapVar enables variable length keys (VarHashmap n X).
	HashmapVar
	// HashmapPfx enables prefix code keys (PfxHashmap n X).
	HashmapPfx
	// HashmapLenient allows data after the refs of a fork, like an extra
	// of an augmented map read as a plain one. It is kept in Extra.
	HashmapLenient
)

var (
	ErrNoSuchKey        = errors.New("key is not in the dictionary")
	ErrPrunedBranch     = errors.New("key is in a pruned branch")
	ErrInvalidHashmap   = errors.New("invalid hashmap layout")
	ErrMissingExtraSkip = errors.New("augmented hashmap requires SkipExtra")
)

type NodeKind uint8

const (
	NodeLeaf NodeKind = iota
	NodeFork
	// NodeCont is vhmn_cont of VarHashmap: a value and one child.
	NodeCont
	// NodePruned is a subtree replaced by a pruned branch cell.
	NodePruned
)

// HashmapNode is one edge of a parsed trie with the node under it.
type HashmapNode struct {
	Label     *BitString
	LabelKind LabelKind
	Kind      NodeKind

	// Value is nil for forks without a value.
	Value *Slice
	Extra *Slice

	// Branch is the continuation bit of NodeCont, its child is Children[0].
	Branch   bool
	Children [2]*HashmapNode

	// Pruned holds the pruned branch cell of NodePruned.
	Pruned *Cell
}

// HashmapCodec reads and writes tries of one layout. Values are the
// remainder of the node cell unless SkipValue delimits them.
type HashmapCodec struct {
	KeySz uint
	Flags HashmapFlags

	SkipExtra func(s *Slice) error
	SkipValue func(s *Slice) error
}

// HashmapTrie is a parsed or built trie, Root is nil when empty.
type HashmapTrie struct {
	Codec     HashmapCodec
	Root      *HashmapNode
	RootExtra *Slice
}

type HashmapEntry struct {
	Key   *BitString
	Value *Slice
	Extra *Slice
}

func (h HashmapCodec) has(f HashmapFlags) bool {
	return h.Flags&f != 0
}

func (h HashmapCodec) validate() error {
	if h.has(HashmapVar) && h.has(HashmapPfx) {
		return fmt.Errorf("%w: var and pfx layouts are exclusive", ErrInvalidHashmap)
	}
	if h.has(HashmapAugmented) && h.SkipExtra == nil {
		return ErrMissingExtraSkip
	}
	if h.KeySz > maxCellBits {
		return fmt.Errorf("%w: key size %d", ErrInvalidHashmap, h.KeySz)
	}
	return nil
}

type hmWork struct {
	s      *Slice
	n      uint
	node   *HashmapNode
	inline bool
}

// Load parses Hashmap with its root edge inline in s.
func (h HashmapCodec) Load(s *Slice) (*HashmapTrie, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	tmp := *s
	root := &HashmapNode{}
	if err := h.parse(hmWork{s: &tmp, n: h.KeySz, node: root, inline: true}); err != nil {
		return nil, err
	}
	*s = tmp
	return &HashmapTrie{Codec: h, Root: root}, nil
}

// LoadE parses HashmapE: presence bit, root ref and, for augmented maps, the extra.
func (h HashmapCodec) LoadE(s *Slice) (*HashmapTrie, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	tmp := *s
	has, err := tmp.LoadBoolBit()
	if err != nil {
		return nil, fmt.Errorf("failed to load dict presence bit: %w", err)
	}

	t := &HashmapTrie{Codec: h}
	if has {
		ref, err := tmp.LoadRefCell()
		if err != nil {
			return nil, fmt.Errorf("failed to load dict root: %w", err)
		}

		t.Root = &HashmapNode{}
		if ref.special {
			t.Root.Kind, t.Root.Pruned = NodePruned, ref
		} else if err = h.parse(hmWork{s: ref.BeginParse(), n: h.KeySz, node: t.Root}); err != nil {
			return nil, err
		}
	}

	if h.has(HashmapAugmented) {
		if t.RootExtra, err = h.cutExtra(&tmp); err != nil {
			return nil, fmt.Errorf("failed to load dict extra: %w", err)
		}
	}

	*s = tmp
	return t, nil
}

// Skip validates and advances over an inline Hashmap.
func (h HashmapCodec) Skip(s *Slice) error {
	_, err := h.Load(s)
	return err
}

// SkipE validates and advances over HashmapE.
func (h HashmapCodec) SkipE(s *Slice) error {
	_, err := h.LoadE(s)
	return err
}

func (h HashmapCodec) cutExtra(s *Slice) (*Slice, error) {
	start := *s
	if err := h.SkipExtra(s); err != nil {
		return nil, err
	}
	return s.Consumed(&start)
}

func (h HashmapCodec) cutValue(s *Slice) (*Slice, error) {
	if h.SkipValue == nil {
		v := *s
		s.bitsSt, s.refsSt = s.bitsEnd, s.refsEnd
		return &v, nil
	}

	start := *s
	if err := h.SkipValue(s); err != nil {
		return nil, err
	}
	return s.Consumed(&start)
}

// parse walks the trie with an explicit stack, every step down crosses a ref.
func (h HashmapCodec) parse(root hmWork) error {
	stack := []hmWork{root}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		label, kind, err := LoadLabel(w.s, w.n)
		if err != nil {
			return fmt.Errorf("failed to load label: %w", err)
		}
		w.node.Label, w.node.LabelKind = label, kind

		kids, err := h.parseNode(w.s, w.n-label.Len(), w.node)
		if err != nil {
			return err
		}

		if !w.inline {
			if h.has(HashmapLenient) && !h.has(HashmapAugmented) && w.node.Kind == NodeFork {
				w.node.Extra = w.s.Copy()
				w.s.bitsSt, w.s.refsSt = w.s.bitsEnd, w.s.refsEnd
			}
			if err = w.s.EnsureEmpty(); err != nil {
				return fmt.Errorf("hashmap node: %w", err)
			}
		}
		stack = append(stack, kids...)
	}
	return nil
}

func (h HashmapCodec) parseNode(s *Slice, m uint, node *HashmapNode) ([]hmWork, error) {
	kind := NodeLeaf
	switch {
	case h.has(HashmapPfx):
		isFork, err := s.LoadBoolBit()
		if err != nil {
			return nil, err
		}
		if isFork {
			kind = NodeFork
		}
	case h.has(HashmapVar):
		tag, err := s.PreloadUInt(1)
		if err != nil {
			return nil, err
		}
		if tag == 1 {
			kind = NodeCont
			s.bitsSt++
			break
		}
		if tag, err = s.LoadUInt(2); err != nil {
			return nil, err
		}
		if tag == 0b01 {
			kind = NodeFork
		}
	default:
		if m > 0 {
			kind = NodeFork
		}
	}

	if kind != NodeLeaf && m == 0 {
		return nil, fmt.Errorf("%w: fork with no key bits left", ErrInvalidHashmap)
	}
	node.Kind = kind

	var err error
	var kids []hmWork
	switch kind {
	case NodeLeaf:
		if h.has(HashmapAugmented) {
			if node.Extra, err = h.cutExtra(s); err != nil {
				return nil, fmt.Errorf("failed to load leaf extra: %w", err)
			}
		}
		if node.Value, err = h.cutValue(s); err != nil {
			return nil, fmt.Errorf("failed to load leaf value: %w", err)
		}
		return nil, nil
	case NodeCont:
		if node.Branch, err = s.LoadBoolBit(); err != nil {
			return nil, err
		}
		if kids, err = h.loadChildren(s, m-1, node, 1); err != nil {
			return nil, err
		}
	case NodeFork:
		if kids, err = h.loadChildren(s, m-1, node, 2); err != nil {
			return nil, err
		}
	}

	if h.has(HashmapAugmented) {
		if node.Extra, err = h.cutExtra(s); err != nil {
			return nil, fmt.Errorf("failed to load fork extra: %w", err)
		}
	}

	if kind == NodeCont {
		if node.Value, err = h.cutValue(s); err != nil {
			return nil, fmt.Errorf("failed to load value: %w", err)
		}
	} else if h.has(HashmapVar) {
		has, err := s.LoadBoolBit()
		if err != nil {
			return nil, err
		}
		if has {
			if node.Value, err = h.cutValue(s); err != nil {
				return nil, fmt.Errorf("failed to load fork value: %w", err)
			}
		}
	}
	return kids, nil
}

func (h HashmapCodec) loadChildren(s *Slice, n uint, node *HashmapNode, num int) ([]hmWork, error) {
	kids := make([]hmWork, 0, num)
	for i := 0; i < num; i++ {
		ref, err := s.LoadRefCell()
		if err != nil {
			return nil, fmt.Errorf("failed to load branch %d: %w", i, err)
		}

		child := &HashmapNode{}
		node.Children[i] = child
		if ref.special {
			child.Kind, child.Pruned = NodePruned, ref
			continue
		}
		kids = append(kids, hmWork{s: ref.BeginParse(), n: n, node: child})
	}
	return kids, nil
}

// Entries lists all reachable values in key order, pruned subtrees are skipped.
func (t *HashmapTrie) Entries() []HashmapEntry {
	if t.Root == nil {
		return nil
	}

	type item struct {
		node   *HashmapNode
		prefix *BitString
	}

	var res []HashmapEntry
	stack := []item{{t.Root, &BitString{}}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.node.Kind == NodePruned {
			continue
		}

		key, err := it.prefix.Append(it.node.Label)
		if err != nil {
			continue
		}

		if it.node.Value != nil {
			res = append(res, HashmapEntry{Key: key, Value: it.node.Value, Extra: it.node.Extra})
		}

		switch it.node.Kind {
		case NodeFork:
			right, err1 := key.AppendBit(true)
			left, err2 := key.AppendBit(false)
			if err1 == nil && err2 == nil {
				// right first, so left is popped first
				stack = append(stack, item{it.node.Children[1], right}, item{it.node.Children[0], left})
			}
		case NodeCont:
			if next, err := key.AppendBit(it.node.Branch); err == nil {
				stack = append(stack, item{it.node.Children[0], next})
			}
		}
	}
	return res
}

// PrunedCells returns the pruned branch cells in place of subtrees, in key order.
func (t *HashmapTrie) PrunedCells() []*Cell {
	var res []*Cell
	var walk func(n *HashmapNode)
	walk = func(n *HashmapNode) {
		if n == nil {
			return
		}
		if n.Kind == NodePruned {
			res = append(res, n.Pruned)
			return
		}
		walk(n.Children[0])
		walk(n.Children[1])
	}
	walk(t.Root)
	return res
}

// Get finds a value by key in the parsed trie.
func (t *HashmapTrie) Get(key *BitString) (*Slice, error) {
	node, rem := t.Root, key
	for node != nil {
		if node.Kind == NodePruned {
			return nil, ErrPrunedBranch
		}
		if !rem.HasPrefix(node.Label) {
			return nil, ErrNoSuchKey
		}
		rem, _ = rem.Sub(node.Label.Len(), rem.Len()-node.Label.Len())

		if rem.Len() == 0 {
			if node.Value == nil {
				return nil, ErrNoSuchKey
			}
			return node.Value.Copy(), nil
		}

		bit, _ := rem.BitAt(0)
		rem, _ = rem.Sub(1, rem.Len()-1)
		switch node.Kind {
		case NodeFork:
			node = node.Children[boolIdx(bit)]
		case NodeCont:
			if bit != node.Branch {
				return nil, ErrNoSuchKey
			}
			node = node.Children[0]
		default:
			return nil, ErrNoSuchKey
		}
	}
	return nil, ErrNoSuchKey
}

func boolIdx(v bool) int {
	if v {
		return 1
	}
	return 0
}

// LookupE finds a value in a HashmapE slice without parsing the whole trie,
// the slice cursor is not moved.
func (h HashmapCodec) LookupE(s *Slice, key *BitString) (*Slice, error) {
	has, err := s.PreloadUInt(1)
	if err != nil {
		return nil, err
	}
	if has == 0 {
		return nil, ErrNoSuchKey
	}

	root, err := s.PreloadRefCell()
	if err != nil {
		return nil, err
	}
	if root.special {
		return nil, ErrPrunedBranch
	}
	return h.lookup(root.BeginParse(), key)
}

// Lookup finds a value in a Hashmap with the root edge inline in s.
func (h HashmapCodec) Lookup(s *Slice, key *BitString) (*Slice, error) {
	return h.lookup(s.Copy(), key)
}

func (h HashmapCodec) lookup(cs *Slice, key *BitString) (*Slice, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	if !h.has(HashmapVar|HashmapPfx) && key.Len() != h.KeySz {
		return nil, fmt.Errorf("%w: key has %d bits, dictionary uses %d", ErrNoSuchKey, key.Len(), h.KeySz)
	}

	n, rem := h.KeySz, key
	for {
		label, _, err := LoadLabel(cs, n)
		if err != nil {
			return nil, err
		}
		if !rem.HasPrefix(label) {
			return nil, ErrNoSuchKey
		}
		rem, _ = rem.Sub(label.Len(), rem.Len()-label.Len())
		m := n - label.Len()

		node := &HashmapNode{}
		kids, err := h.parseNode(cs, m, node)
		if err != nil {
			return nil, err
		}

		if rem.Len() == 0 {
			if node.Value == nil {
				return nil, ErrNoSuchKey
			}
			return node.Value, nil
		}

		bit, _ := rem.BitAt(0)
		rem, _ = rem.Sub(1, rem.Len()-1)

		var next *HashmapNode
		switch node.Kind {
		case NodeFork:
			next = node.Children[boolIdx(bit)]
		case NodeCont:
			if bit != node.Branch {
				return nil, ErrNoSuchKey
			}
			next = node.Children[0]
		default:
			return nil, ErrNoSuchKey
		}

		if next.Kind == NodePruned {
			return nil, ErrPrunedBranch
		}

		cs = nil
		for _, k := range kids {
			if k.node == next {
				cs = k.s
			}
		}
		if cs == nil {
			return nil, ErrNoSuchKey
		}
		n = m - 1
	}
}

// Store writes the trie as Hashmap with the root edge inline in b.
func (t *HashmapTrie) Store(b *Builder) error {
	if t.Root == nil {
		return fmt.Errorf("%w: empty Hashmap cannot be stored inline", ErrInvalidHashmap)
	}
	if t.Root.Kind == NodePruned {
		return fmt.Errorf("%w: inline root cannot be pruned", ErrInvalidHashmap)
	}
	if b.done != nil {
		return ErrBuilderFinalized
	}

	cells, err := t.buildChildren()
	if err != nil {
		return err
	}

	tmp := b.Copy()
	if err = t.Codec.writeNode(tmp, t.Root, t.Codec.KeySz, cells); err != nil {
		return err
	}
	*b = *tmp
	return nil
}

// StoreE writes the trie as HashmapE.
func (t *HashmapTrie) StoreE(b *Builder) error {
	if b.done != nil {
		return ErrBuilderFinalized
	}

	tmp := b.Copy()
	if t.Root == nil {
		if err := tmp.StoreBoolBit(false); err != nil {
			return err
		}
	} else {
		root, err := t.ToCell()
		if err != nil {
			return err
		}
		if err = tmp.StoreMaybeRef(root); err != nil {
			return err
		}
	}

	if t.Codec.has(HashmapAugmented) {
		if t.RootExtra == nil {
			return fmt.Errorf("%w: augmented HashmapE has no extra", ErrInvalidHashmap)
		}
		if err := tmp.StoreCellSlice(t.RootExtra); err != nil {
			return err
		}
	}
	*b = *tmp
	return nil
}

// ToCell returns the root edge cell, nil for an empty trie.
func (t *HashmapTrie) ToCell() (*Cell, error) {
	if t.Root == nil {
		return nil, nil
	}
	if t.Root.Kind == NodePruned {
		return t.Root.Pruned, nil
	}

	b := BeginCell()
	if err := t.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize(false)
}

// buildChildren serializes every non root node bottom up.
func (t *HashmapTrie) buildChildren() (map[*HashmapNode]*Cell, error) {
	type item struct {
		node *HashmapNode
		n    uint
	}

	// pre-order, then reversed: children are built before parents
	var order []item
	stack := []item{{t.Root, t.Codec.KeySz}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, it)

		if it.node.Kind == NodePruned || it.node.Label == nil {
			continue
		}
		if it.node.Label.Len() >= it.n && it.node.Kind != NodeLeaf {
			return nil, fmt.Errorf("%w: fork with no key bits left", ErrInvalidHashmap)
		}

		m := it.n - it.node.Label.Len()
		switch it.node.Kind {
		case NodeFork:
			for _, ch := range it.node.Children {
				if ch == nil {
					return nil, fmt.Errorf("%w: fork without child", ErrInvalidHashmap)
				}
				stack = append(stack, item{ch, m - 1})
			}
		case NodeCont:
			if it.node.Children[0] == nil {
				return nil, fmt.Errorf("%w: continuation without child", ErrInvalidHashmap)
			}
			stack = append(stack, item{it.node.Children[0], m - 1})
		}
	}

	cells := make(map[*HashmapNode]*Cell, len(order))
	for i := len(order) - 1; i > 0; i-- {
		it := order[i]
		if it.node.Kind == NodePruned {
			cells[it.node] = it.node.Pruned
			continue
		}

		b := BeginCell()
		if err := t.Codec.writeNode(b, it.node, it.n, cells); err != nil {
			return nil, err
		}

		c, err := b.Finalize(false)
		if err != nil {
			return nil, err
		}
		cells[it.node] = c
	}
	return cells, nil
}

func (h HashmapCodec) writeNode(b *Builder, node *HashmapNode, n uint, cells map[*HashmapNode]*Cell) error {
	if node.Label == nil {
		return fmt.Errorf("%w: node without label", ErrInvalidHashmap)
	}
	if err := StoreLabelAs(b, node.Label, n, node.LabelKind); err != nil {
		return fmt.Errorf("failed to store label: %w", err)
	}
	m := n - node.Label.Len()

	var err error
	switch {
	case h.has(HashmapPfx):
		err = b.StoreBoolBit(node.Kind == NodeFork)
	case h.has(HashmapVar):
		switch node.Kind {
		case NodeCont:
			err = b.StoreUInt(1, 1)
		case NodeFork:
			err = b.StoreUInt(0b01, 2)
		default:
			err = b.StoreUInt(0b00, 2)
		}
	default:
		if (m == 0) != (node.Kind == NodeLeaf) {
			return fmt.Errorf("%w: node kind does not match key bits left", ErrInvalidHashmap)
		}
	}
	if err != nil {
		return err
	}

	switch node.Kind {
	case NodeLeaf:
		if h.has(HashmapAugmented) {
			if err = storeNodeSlice(b, node.Extra, "extra"); err != nil {
				return err
			}
		}
		return storeNodeSlice(b, node.Value, "value")
	case NodeCont:
		if !h.has(HashmapVar) {
			return fmt.Errorf("%w: continuation node outside of VarHashmap", ErrInvalidHashmap)
		}
		if err = b.StoreBoolBit(node.Branch); err != nil {
			return err
		}
		if err = b.StoreRef(cells[node.Children[0]]); err != nil {
			return err
		}
	case NodeFork:
		for _, ch := range node.Children {
			if err = b.StoreRef(cells[ch]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: pruned node cannot be stored inline", ErrInvalidHashmap)
	}

	if h.has(HashmapAugmented) || node.Extra != nil {
		if err = storeNodeSlice(b, node.Extra, "extra"); err != nil {
			return err
		}
	}

	if node.Kind == NodeCont {
		return storeNodeSlice(b, node.Value, "value")
	}

	if h.has(HashmapVar) {
		if node.Value == nil {
			return b.StoreBoolBit(false)
		}
		if err = b.StoreBoolBit(true); err != nil {
			return err
		}
		return b.StoreCellSlice(node.Value)
	}
	return nil
}

func storeNodeSlice(b *Builder, s *Slice, what string) error {
	if s == nil {
		return fmt.Errorf("%w: node has no %s", ErrInvalidHashmap, what)
	}
	return b.StoreCellSlice(s)
}
