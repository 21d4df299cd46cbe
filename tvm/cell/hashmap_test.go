package cell

import (
	"bytes"
	"errors"
	"testing"
)

func u8(v uint64) *Slice {
	return BeginCell().MustStoreUInt(v, 8).EndCell().BeginParse()
}

func key16(v uint64) *BitString {
	return BeginCell().MustStoreUInt(v, 16).EndCell().Bits()
}

func skipUInt(sz uint) func(s *Slice) error {
	return func(s *Slice) error {
		return s.Advance(sz)
	}
}

func TestHashmapE_SingleZeroKey(t *testing.T) {
	h := HashmapCodec{KeySz: 32}
	trie, err := h.BuildHashmap([]HashmapItem{{Key: repeatBit(false, 32), Value: u8(0xAB)}})
	if err != nil {
		t.Fatal(err)
	}

	b := BeginCell()
	if err = trie.StoreE(b); err != nil {
		t.Fatal(err)
	}
	c := b.EndCell()
	if c.BitsSize() != 1 || c.RefsNum() != 1 {
		t.Fatal("incorrect HashmapE layout")
	}

	root, _ := c.PeekRef(0)
	// hml_same label of 2+1+6 bits and the value
	if root.BitsSize() != 9+8 {
		t.Fatal("incorrect root size", root.BitsSize())
	}
	rs := root.BeginParse()
	if rs.MustLoadUInt(2) != 0b11 || rs.MustLoadBoolBit() || rs.MustLoadUInt(6) != 32 || rs.MustLoadUInt(8) != 0xAB {
		t.Fatal("incorrect root bits", root.DumpBits())
	}

	v, err := h.LookupE(c.BeginParse(), repeatBit(false, 32))
	if err != nil {
		t.Fatal(err)
	}
	if v.MustLoadUInt(8) != 0xAB {
		t.Fatal("incorrect value")
	}

	if _, err = h.LookupE(c.BeginParse(), repeatBit(true, 32)); err != ErrNoSuchKey {
		t.Fatal("err incorrect, its:", err)
	}
	if _, err = h.LookupE(c.BeginParse(), repeatBit(false, 31)); !errors.Is(err, ErrNoSuchKey) {
		t.Fatal("key of wrong length found, err:", err)
	}

	empty, err := h.LoadE(BeginCell().MustStoreBoolBit(false).EndCell().BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if empty.Root != nil || len(empty.Entries()) != 0 {
		t.Fatal("empty map has entries")
	}
}

func TestHashmap_BuildCanonical(t *testing.T) {
	h := HashmapCodec{KeySz: 16}
	keys := []uint64{0x8000, 0x0003, 0x0001, 0x1234}

	var items []HashmapItem
	for i, k := range keys {
		items = append(items, HashmapItem{Key: key16(k), Value: u8(uint64(i))})
	}

	trie, err := h.BuildHashmap(items)
	if err != nil {
		t.Fatal(err)
	}
	if trie.Root.Label.Len() != 0 || trie.Root.Kind != NodeFork {
		t.Fatal("root should be a fork with empty label")
	}
	if trie.Root.Children[1].Kind != NodeLeaf || trie.Root.Children[1].Label.Len() != 15 {
		t.Fatal("incorrect right leaf")
	}

	c, err := trie.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := h.Load(c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}

	entries := loaded.Entries()
	want := []uint64{0x0001, 0x0003, 0x1234, 0x8000}
	if len(entries) != len(want) {
		t.Fatal("incorrect entries num", len(entries))
	}
	for i, e := range entries {
		if !e.Key.Equal(key16(want[i])) {
			t.Fatal("entries are not ordered", i, e.Key)
		}
	}

	for i, k := range keys {
		v, err := h.Lookup(c.BeginParse(), key16(k))
		if err != nil {
			t.Fatal(k, err)
		}
		if v.MustLoadUInt(8) != uint64(i) {
			t.Fatal("incorrect value for", k)
		}

		v, err = loaded.Get(key16(k))
		if err != nil || v.MustLoadUInt(8) != uint64(i) {
			t.Fatal("incorrect parsed value for", k, err)
		}
	}

	if _, err = h.Lookup(c.BeginParse(), key16(0x0002)); err != ErrNoSuchKey {
		t.Fatal("err incorrect, its:", err)
	}

	// same content gives the same cell regardless of input order
	rev := []HashmapItem{items[3], items[2], items[1], items[0]}
	trie2, err := h.BuildHashmap(rev)
	if err != nil {
		t.Fatal(err)
	}
	c2, _ := trie2.ToCell()
	if !bytes.Equal(c.Hash(), c2.Hash()) {
		t.Fatal("build is not canonical")
	}

	c3, _ := loaded.ToCell()
	if !bytes.Equal(c.Hash(), c3.Hash()) {
		t.Fatal("reserialized trie differs")
	}
}

func TestHashmap_BuildErrors(t *testing.T) {
	h := HashmapCodec{KeySz: 16}

	_, err := h.BuildHashmap([]HashmapItem{{Key: key16(1), Value: u8(1)}, {Key: key16(1), Value: u8(2)}})
	if !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("duplicate accepted, err:", err)
	}

	_, err = h.BuildHashmap([]HashmapItem{{Key: MustBitString("101"), Value: u8(1)}})
	if !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("short key accepted, err:", err)
	}

	_, err = h.BuildHashmap([]HashmapItem{{Key: key16(1)}})
	if !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("nil value accepted, err:", err)
	}

	_, err = HashmapCodec{KeySz: 16, Flags: HashmapAugmented}.Load(BeginCell().EndCell().BeginParse())
	if err != ErrMissingExtraSkip {
		t.Fatal("augmented map without extra skip, err:", err)
	}

	_, err = HashmapCodec{KeySz: 8, Flags: HashmapPfx}.BuildHashmap([]HashmapItem{
		{Key: MustBitString("01"), Value: u8(1)},
		{Key: MustBitString("011"), Value: u8(2)},
	})
	if !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("prefix key accepted in pfx map, err:", err)
	}

	_, err = HashmapCodec{KeySz: 4, Flags: HashmapVar}.BuildHashmap([]HashmapItem{{Key: MustBitString("10101"), Value: u8(1)}})
	if !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("too long var key accepted, err:", err)
	}

	empty, err := h.BuildHashmap(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c, err := empty.ToCell(); c != nil || err != nil {
		t.Fatal("empty trie should have no cell")
	}
	if err = empty.Store(BeginCell()); !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("empty Hashmap stored inline, err:", err)
	}
}

func TestHashmap_SkipInline(t *testing.T) {
	h := HashmapCodec{KeySz: 8, SkipValue: skipUInt(8)}
	trie, err := h.BuildHashmap([]HashmapItem{{Key: MustBitString("00000001"), Value: u8(7)}})
	if err != nil {
		t.Fatal(err)
	}

	b := BeginCell()
	if err = trie.Store(b); err != nil {
		t.Fatal(err)
	}
	b.MustStoreUInt(0x5A, 8)

	s := b.EndCell().BeginParse()
	if err = h.Skip(s); err != nil {
		t.Fatal(err)
	}
	if s.MustLoadUInt(8) != 0x5A || !s.IsEmpty() {
		t.Fatal("skip stopped at the wrong place")
	}

	// truncated map does not move the cursor
	bad := BeginCell().MustStoreUInt(0b10, 2).MustStoreUInt(8, 4).MustStoreUInt(1, 8).EndCell().BeginParse()
	left := bad.BitsLeft()
	if err = h.Skip(bad); err == nil {
		t.Fatal("truncated map skipped")
	}
	if bad.BitsLeft() != left {
		t.Fatal("slice moved on error")
	}
}

func TestHashmap_Augmented(t *testing.T) {
	h := HashmapCodec{KeySz: 8, Flags: HashmapAugmented, SkipExtra: skipUInt(16)}
	sum := func(l, r *Slice) (*Slice, error) {
		a, err := l.PreloadUInt(16)
		if err != nil {
			return nil, err
		}
		b, err := r.PreloadUInt(16)
		if err != nil {
			return nil, err
		}
		return BeginCell().MustStoreUInt(a+b, 16).EndCell().BeginParse(), nil
	}
	extra := func(v uint64) *Slice {
		return BeginCell().MustStoreUInt(v, 16).EndCell().BeginParse()
	}

	items := []HashmapItem{
		{Key: MustBitString("00000001"), Value: u8(1), Extra: extra(5)},
		{Key: MustBitString("00000010"), Value: u8(2), Extra: extra(7)},
		{Key: MustBitString("11001000"), Value: u8(3), Extra: extra(11)},
	}

	if _, err := h.BuildHashmap(items); !errors.Is(err, ErrInvalidHashmap) {
		t.Fatal("augmented map built without fold, err:", err)
	}

	trie, err := h.BuildHashmapAug(items, sum, extra(0))
	if err != nil {
		t.Fatal(err)
	}
	if trie.RootExtra.MustPreloadUInt(16) != 23 {
		t.Fatal("incorrect root extra")
	}

	b := BeginCell()
	if err = trie.StoreE(b); err != nil {
		t.Fatal(err)
	}
	c := b.EndCell()

	loaded, err := h.LoadE(c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RootExtra.MustPreloadUInt(16) != 23 {
		t.Fatal("incorrect loaded root extra")
	}

	entries := loaded.Entries()
	if len(entries) != 3 {
		t.Fatal("incorrect entries num", len(entries))
	}
	for i, e := range entries {
		if !e.Key.Equal(items[i].Key) ||
			e.Extra.MustPreloadUInt(16) != items[i].Extra.MustPreloadUInt(16) ||
			e.Value.MustPreloadUInt(8) != uint64(i+1) {
			t.Fatal("incorrect entry", i)
		}
	}

	v, err := h.LookupE(c.BeginParse(), MustBitString("11001000"))
	if err != nil {
		t.Fatal(err)
	}
	if v.MustLoadUInt(8) != 3 || !v.IsEmpty() {
		t.Fatal("incorrect looked up value")
	}

	emptyTrie, err := h.BuildHashmapAug(nil, sum, extra(0))
	if err != nil {
		t.Fatal(err)
	}
	eb := BeginCell()
	if err = emptyTrie.StoreE(eb); err != nil {
		t.Fatal(err)
	}
	if eb.BitsUsed() != 17 {
		t.Fatal("empty augmented map should keep its extra")
	}

	// the same cells read as a plain map
	plain := HashmapCodec{KeySz: 8}
	if _, err = plain.LoadE(c.BeginParse()); !errors.Is(err, ErrTrailingData) {
		t.Fatal("fork extra not detected, err:", err)
	}

	lenient, err := HashmapCodec{KeySz: 8, Flags: HashmapLenient}.LoadE(c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if len(lenient.Entries()) != 3 {
		t.Fatal("incorrect lenient entries num")
	}

	b = BeginCell()
	if err = lenient.StoreE(b); err != nil {
		t.Fatal(err)
	}
	got, _ := b.EndCell().PeekRef(0)
	orig, _ := c.PeekRef(0)
	if !bytes.Equal(got.Hash(), orig.Hash()) {
		t.Fatal("lenient trie changed on store")
	}
}

func TestHashmap_Var(t *testing.T) {
	h := HashmapCodec{KeySz: 8, Flags: HashmapVar}

	trie := &HashmapTrie{
		Codec: h,
		Root: &HashmapNode{
			Label: MustBitString("1"),
			Kind:  NodeFork,
			Value: u8(0x11),
			Children: [2]*HashmapNode{
				{Label: MustBitString(""), Kind: NodeLeaf, Value: u8(0x22)},
				{
					Label:  MustBitString("1"),
					Kind:   NodeCont,
					Branch: true,
					Value:  u8(0x33),
					Children: [2]*HashmapNode{
						{Label: MustBitString("0"), Kind: NodeLeaf, Value: u8(0x44)},
					},
				},
			},
		},
	}

	c, err := trie.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := h.Load(c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		key string
		val uint64
	}{{"1", 0x11}, {"10", 0x22}, {"111", 0x33}, {"11110", 0x44}}

	entries := loaded.Entries()
	if len(entries) != len(want) {
		t.Fatal("incorrect entries num", len(entries))
	}
	for i, w := range want {
		if entries[i].Key.String() != w.key || entries[i].Value.MustPreloadUInt(8) != w.val {
			t.Fatal("incorrect entry", i, entries[i].Key)
		}

		v, err := h.Lookup(c.BeginParse(), MustBitString(w.key))
		if err != nil {
			t.Fatal(w.key, err)
		}
		if v.MustLoadUInt(8) != w.val {
			t.Fatal("incorrect value of", w.key)
		}
	}

	for _, k := range []string{"11", "1111", "0", "1110"} {
		if _, err = h.Lookup(c.BeginParse(), MustBitString(k)); err != ErrNoSuchKey {
			t.Fatal(k, "err incorrect, its:", err)
		}
	}

	c2, err := loaded.ToCell()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Hash(), c2.Hash()) {
		t.Fatal("var map changed on reserialization")
	}

	var items []HashmapItem
	for i := len(want) - 1; i >= 0; i-- {
		items = append(items, HashmapItem{Key: MustBitString(want[i].key), Value: u8(want[i].val)})
	}
	built, err := h.BuildHashmap(items)
	if err != nil {
		t.Fatal(err)
	}
	c3, err := built.ToCell()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Hash(), c3.Hash()) {
		t.Fatal("built var map differs")
	}
}

func TestHashmap_Pfx(t *testing.T) {
	h := HashmapCodec{KeySz: 8, Flags: HashmapPfx}

	trie := &HashmapTrie{
		Codec: h,
		Root: &HashmapNode{
			Label: MustBitString("0"),
			Kind:  NodeFork,
			Children: [2]*HashmapNode{
				{Label: MustBitString("1"), Kind: NodeLeaf, Value: u8(1)},
				{
					Label: MustBitString(""),
					Kind:  NodeFork,
					Children: [2]*HashmapNode{
						{Label: MustBitString("0"), Kind: NodeLeaf, Value: u8(2)},
						{Label: MustBitString(""), Kind: NodeLeaf, Value: u8(3)},
					},
				},
			},
		},
	}

	c, err := trie.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := h.Load(c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}

	entries := loaded.Entries()
	keys := []string{"001", "0100", "011"}
	if len(entries) != len(keys) {
		t.Fatal("incorrect entries num", len(entries))
	}
	for i, k := range keys {
		if entries[i].Key.String() != k || entries[i].Value.MustPreloadUInt(8) != uint64(i+1) {
			t.Fatal("incorrect entry", i, entries[i].Key)
		}
	}

	// prefix of a key is not a key
	if _, err = h.Lookup(c.BeginParse(), MustBitString("01")); err != ErrNoSuchKey {
		t.Fatal("err incorrect, its:", err)
	}
	v, err := h.Lookup(c.BeginParse(), MustBitString("011"))
	if err != nil || v.MustLoadUInt(8) != 3 {
		t.Fatal("incorrect lookup", err)
	}

	built, err := h.BuildHashmap([]HashmapItem{
		{Key: MustBitString("011"), Value: u8(3)},
		{Key: MustBitString("001"), Value: u8(1)},
		{Key: MustBitString("0100"), Value: u8(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := built.ToCell()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Hash(), c2.Hash()) {
		t.Fatal("built pfx map differs")
	}
}

func TestHashmap_Pruned(t *testing.T) {
	h := HashmapCodec{KeySz: 16}
	var items []HashmapItem
	for i, k := range []uint64{0x0001, 0x0003, 0x8000} {
		items = append(items, HashmapItem{Key: key16(k), Value: u8(uint64(i))})
	}

	trie, err := h.BuildHashmap(items)
	if err != nil {
		t.Fatal(err)
	}
	c, err := trie.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	// keep only the left subtree
	sk := CreateProofSkeleton()
	sk.ProofRef(0).SetRecursive()
	proof, err := c.CreateProof(sk)
	if err != nil {
		t.Fatal(err)
	}

	body, err := UnwrapProof(proof, c.Hash())
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := h.Load(body.BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Root.Children[1].Kind != NodePruned {
		t.Fatal("right subtree should be pruned")
	}
	if len(loaded.Entries()) != 2 {
		t.Fatal("pruned subtree is not skipped")
	}
	if pr := loaded.PrunedCells(); len(pr) != 1 || pr[0].GetType() != PrunedCellType {
		t.Fatal("incorrect pruned cells", len(pr))
	}

	if _, err = h.Lookup(body.BeginParse(), key16(0x8000)); err != ErrPrunedBranch {
		t.Fatal("err incorrect, its:", err)
	}
	if _, err = loaded.Get(key16(0x8000)); err != ErrPrunedBranch {
		t.Fatal("err incorrect, its:", err)
	}
	if v, err := h.Lookup(body.BeginParse(), key16(0x0003)); err != nil || v.MustLoadUInt(8) != 1 {
		t.Fatal("incorrect lookup in kept subtree", err)
	}

	again, err := loaded.ToCell()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.Hash(0), c.Hash()) {
		t.Fatal("pruned trie has a different hash")
	}
}
