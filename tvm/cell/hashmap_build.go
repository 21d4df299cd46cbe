package cell

import (
	"fmt"
	"sort"
)

// HashmapItem is an input entry for building a trie.
type HashmapItem struct {
	Key   *BitString
	Value *Slice
	// Extra is used by augmented maps only.
	Extra *Slice
}

// ExtraFold combines extras of two subtrees into the extra of their fork.
type ExtraFold func(left, right *Slice) (*Slice, error)

// BuildHashmap builds a canonical trie, labels are cut at the longest
// common prefixes. VarHashmap and PfxHashmap keys may be shorter than KeySz.
func (h HashmapCodec) BuildHashmap(items []HashmapItem) (*HashmapTrie, error) {
	if h.has(HashmapAugmented) {
		return nil, fmt.Errorf("%w: use BuildHashmapAug for augmented maps", ErrInvalidHashmap)
	}
	return h.build(items, nil, nil)
}

// BuildHashmapAug builds an augmented trie, fork extras are folded from
// children, empty is the root extra of an empty map.
func (h HashmapCodec) BuildHashmapAug(items []HashmapItem, fold ExtraFold, empty *Slice) (*HashmapTrie, error) {
	if !h.has(HashmapAugmented) {
		return nil, fmt.Errorf("%w: map is not augmented", ErrInvalidHashmap)
	}
	if fold == nil {
		return nil, fmt.Errorf("%w: no extra fold", ErrInvalidHashmap)
	}
	return h.build(items, fold, empty)
}

func (h HashmapCodec) build(items []HashmapItem, fold ExtraFold, empty *Slice) (*HashmapTrie, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	varKeys := h.has(HashmapVar | HashmapPfx)
	if varKeys && fold != nil {
		return nil, fmt.Errorf("%w: augmented maps have fixed length keys", ErrInvalidHashmap)
	}

	sorted := make([]HashmapItem, len(items))
	copy(sorted, items)
	for _, it := range sorted {
		if it.Key == nil || it.Key.Len() > h.KeySz || (!varKeys && it.Key.Len() != h.KeySz) {
			return nil, fmt.Errorf("%w: key length should be %d", ErrInvalidHashmap, h.KeySz)
		}
		if it.Value == nil {
			return nil, fmt.Errorf("%w: nil value for key %s", ErrInvalidHashmap, it.Key)
		}
		if fold != nil && it.Extra == nil {
			return nil, fmt.Errorf("%w: nil extra for key %s", ErrInvalidHashmap, it.Key)
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key.Compare(sorted[j].Key) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Key.Equal(sorted[i].Key) {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrInvalidHashmap, sorted[i].Key)
		}
		if h.has(HashmapPfx) && sorted[i].Key.HasPrefix(sorted[i-1].Key) {
			return nil, fmt.Errorf("%w: key %s is a prefix of %s", ErrInvalidHashmap, sorted[i-1].Key, sorted[i].Key)
		}
	}

	t := &HashmapTrie{Codec: h, RootExtra: empty}
	if len(sorted) == 0 {
		return t, nil
	}

	root, err := buildNode(sorted, 0, fold)
	if err != nil {
		return nil, err
	}
	t.Root = root
	if fold != nil {
		t.RootExtra = root.Extra
	}
	return t, nil
}

// buildNode makes the edge for sorted items sharing the first off key bits.
// A key which ends at the split point becomes the value of the node.
func buildNode(items []HashmapItem, off uint, fold ExtraFold) (*HashmapNode, error) {
	first, last := items[0].Key, items[len(items)-1].Key

	rest, err := first.Sub(off, first.Len()-off)
	if err != nil {
		return nil, err
	}
	lastRest, err := last.Sub(off, last.Len()-off)
	if err != nil {
		return nil, err
	}

	common := rest.CommonPrefixLen(lastRest)
	label, err := rest.Sub(0, common)
	if err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return &HashmapNode{
			Label:     label,
			LabelKind: LabelAuto,
			Kind:      NodeLeaf,
			Value:     items[0].Value,
			Extra:     items[0].Extra,
		}, nil
	}

	split := off + common
	node := &HashmapNode{Label: label, LabelKind: LabelAuto, Kind: NodeFork}
	if first.Len() == split {
		// prefixes sort first
		node.Value = items[0].Value
		items = items[1:]
	}

	// keys are sorted, so the ones with 1 at split follow the ones with 0
	mid := sort.Search(len(items), func(i int) bool {
		bit, _ := items[i].Key.BitAt(split)
		return bit
	})

	if mid == 0 || mid == len(items) {
		node.Kind, node.Branch = NodeCont, mid == 0
		if node.Children[0], err = buildNode(items, split+1, fold); err != nil {
			return nil, err
		}
		return node, nil
	}

	for i, part := range [][]HashmapItem{items[:mid], items[mid:]} {
		if node.Children[i], err = buildNode(part, split+1, fold); err != nil {
			return nil, err
		}
	}

	if fold != nil {
		if node.Extra, err = fold(node.Children[0].Extra, node.Children[1].Extra); err != nil {
			return nil, fmt.Errorf("failed to fold extra: %w", err)
		}
	}
	return node, nil
}
