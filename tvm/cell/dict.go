package cell

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// Dictionary is HashmapE with fixed size keys and cell values.
type Dictionary struct {
	storage map[string]*HashmapKV
	keySz   uint

	// layout of a loaded dict, reused on store until it is changed
	trie *HashmapTrie
}

type HashmapKV struct {
	Key   *Cell
	Value *Cell
}

func NewDict(keySz uint) *Dictionary {
	return &Dictionary{
		storage: map[string]*HashmapKV{},
		keySz:   keySz,
	}
}

func (c *Slice) MustLoadDict(keySz uint) *Dictionary {
	d, err := c.LoadDict(keySz)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadDict loads HashmapE n ^Cell, subtrees hidden by pruned branches are left out.
func (c *Slice) LoadDict(keySz uint) (*Dictionary, error) {
	trie, err := HashmapCodec{KeySz: keySz, Flags: HashmapLenient}.LoadE(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load dict: %w", err)
	}
	return dictFromTrie(trie)
}

// LoadInlineDict loads a non empty Hashmap n ^Cell stored in place of its root.
func (c *Slice) LoadInlineDict(keySz uint) (*Dictionary, error) {
	trie, err := HashmapCodec{KeySz: keySz, Flags: HashmapLenient}.Load(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load dict: %w", err)
	}
	return dictFromTrie(trie)
}

// ToDict reads the slice as the root edge of a non empty Hashmap, the slice is not moved.
func (c *Slice) ToDict(keySz uint) (*Dictionary, error) {
	trie, err := HashmapCodec{KeySz: keySz, Flags: HashmapLenient}.Load(c.Copy())
	if err != nil {
		return nil, fmt.Errorf("failed to load dict: %w", err)
	}
	return dictFromTrie(trie)
}

func dictFromTrie(trie *HashmapTrie) (*Dictionary, error) {
	d := NewDict(trie.Codec.KeySz)
	for _, e := range trie.Entries() {
		key, err := BeginCell().storeBitStringCell(e.Key)
		if err != nil {
			return nil, err
		}

		val, err := e.Value.ToCell()
		if err != nil {
			return nil, fmt.Errorf("failed to convert value of key %s: %w", e.Key, err)
		}

		d.storage[hex.EncodeToString(e.Key.Bytes())] = &HashmapKV{
			Key:   key,
			Value: val,
		}
	}
	d.trie = trie
	return d, nil
}

func (b *Builder) storeBitStringCell(bs *BitString) (*Cell, error) {
	if err := b.StoreBitString(bs); err != nil {
		return nil, err
	}
	return b.Finalize(false)
}

func (d *Dictionary) keyBits(key *Cell) (*BitString, error) {
	if key.BitsSize() != d.keySz {
		return nil, fmt.Errorf("incorrect key size %d, dict uses %d", key.BitsSize(), d.keySz)
	}
	return key.BeginParse().LoadBitString(d.keySz)
}

func (d *Dictionary) Set(key, value *Cell) error {
	if value == nil {
		return ErrRefCannotBeNil
	}

	bs, err := d.keyBits(key)
	if err != nil {
		return err
	}

	d.storage[hex.EncodeToString(bs.Bytes())] = &HashmapKV{
		Key:   key,
		Value: value,
	}
	d.trie = nil
	return nil
}

func (d *Dictionary) Delete(key *Cell) error {
	bs, err := d.keyBits(key)
	if err != nil {
		return err
	}

	k := hex.EncodeToString(bs.Bytes())
	if _, ok := d.storage[k]; ok {
		delete(d.storage, k)
		d.trie = nil
	}
	return nil
}

// Get returns nil when there is no such key.
func (d *Dictionary) Get(key *Cell) *Cell {
	bs, err := d.keyBits(key)
	if err != nil {
		return nil
	}

	v := d.storage[hex.EncodeToString(bs.Bytes())]
	if v == nil {
		return nil
	}
	return v.Value
}

func (d *Dictionary) LoadValue(key *Cell) (*Slice, error) {
	v := d.Get(key)
	if v == nil {
		return nil, ErrNoSuchKey
	}
	return v.BeginParse(), nil
}

// All returns entries ordered by key.
func (d *Dictionary) All() []*HashmapKV {
	all := make([]*HashmapKV, 0, len(d.storage))
	keys := make([]string, 0, len(d.storage))
	for k := range d.storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		all = append(all, d.storage[k])
	}
	return all
}

func (d *Dictionary) Size() int {
	return len(d.storage)
}

func (d *Dictionary) IsEmpty() bool {
	return len(d.storage) == 0 && (d.trie == nil || d.trie.Root == nil)
}

func (d *Dictionary) KeySize() uint {
	return d.keySz
}

// Trie returns the trie the dict will be stored as.
func (d *Dictionary) Trie() (*HashmapTrie, error) {
	if d.trie != nil {
		return d.trie, nil
	}

	items := make([]HashmapItem, 0, len(d.storage))
	for _, kv := range d.All() {
		bs, err := d.keyBits(kv.Key)
		if err != nil {
			return nil, err
		}
		items = append(items, HashmapItem{Key: bs, Value: kv.Value.BeginParse()})
	}

	trie, err := HashmapCodec{KeySz: d.keySz, Flags: HashmapLenient}.BuildHashmap(items)
	if err != nil {
		return nil, fmt.Errorf("failed to build dict: %w", err)
	}
	return trie, nil
}

// ToCell returns the root cell, nil for an empty dict.
func (d *Dictionary) ToCell() (*Cell, error) {
	trie, err := d.Trie()
	if err != nil {
		return nil, err
	}
	return trie.ToCell()
}

func (b *Builder) MustStoreDict(dict *Dictionary) *Builder {
	err := b.StoreDict(dict)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreDict stores HashmapE, nil dict is stored as empty.
func (b *Builder) StoreDict(dict *Dictionary) error {
	if dict == nil {
		return b.StoreMaybeRef(nil)
	}

	c, err := dict.ToCell()
	if err != nil {
		return fmt.Errorf("failed to serialize dict: %w", err)
	}
	return b.StoreMaybeRef(c)
}
