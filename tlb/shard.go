package tlb

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/cellcodec/cellcodec/address"
)

var (
	ShardIdentType = Struct[ShardIdent]()

	// FutureSplitMergeType is fsm_none$0 | fsm_split$10 | fsm_merge$11.
	FutureSplitMergeType = Union("FutureSplitMerge", FutureSplitMergeNone{}, FutureSplit{}, FutureMerge{})
)

// ShardIdent is shard_ident$00 shard_pfx_bits:(#<= 60) workchain_id:int32 shard_prefix:uint64.
// ShardPrefix keeps the tag bit after the prefix, 0x8000000000000000 is the whole workchain.
type ShardIdent struct {
	_           Magic  `tlb:"$00"`
	PrefixBits  uint8  `tlb:"#<= 60"`
	WorkchainID int32  `tlb:"## 32"`
	ShardPrefix uint64 `tlb:"## 64"`
}

type FutureSplitMergeNone struct {
	_ Magic `tlb:"$0"`
}

type FutureSplit struct {
	_          Magic  `tlb:"$10"`
	SplitUtime uint32 `tlb:"## 32"`
	Interval   uint32 `tlb:"## 32"`
}

type FutureMerge struct {
	_          Magic  `tlb:"$11"`
	MergeUtime uint32 `tlb:"## 32"`
	Interval   uint32 `tlb:"## 32"`
}

// ShardID is a shard prefix with the tag bit, as in ShardIdent.ShardPrefix.
type ShardID uint64

// Validate checks that the prefix length matches the tag bit.
func (s ShardIdent) Validate() error {
	if s.ShardPrefix == 0 {
		return fmt.Errorf("shard prefix has no tag bit")
	}
	if n := 63 - bits.TrailingZeros64(s.ShardPrefix); n != int(s.PrefixBits) {
		return fmt.Errorf("shard prefix has %d bits, declared %d", n, s.PrefixBits)
	}
	return nil
}

func (s ShardIdent) GetShardID() ShardID {
	return ShardID(s.ShardPrefix)
}

// IsSibling reports whether both shards are children of one parent.
func (s ShardIdent) IsSibling(with ShardIdent) bool {
	return s.WorkchainID == with.WorkchainID && s.GetShardID().IsSibling(with.GetShardID())
}

// IsParent reports whether child is one split below s.
func (s ShardIdent) IsParent(child ShardIdent) bool {
	return s.WorkchainID == child.WorkchainID && s.GetShardID().IsParent(child.GetShardID())
}

// IsAncestor reports whether s contains the whole of the other shard.
func (s ShardIdent) IsAncestor(of ShardIdent) bool {
	return s.WorkchainID == of.WorkchainID && s.GetShardID().IsAncestor(of.GetShardID())
}

func (s ShardID) lowBit() uint64 {
	return uint64(s) & -uint64(s)
}

func (s ShardID) IsSibling(with ShardID) bool {
	lb := s.lowBit()
	return lb != 1<<63 && lb == with.lowBit() && uint64(s)^uint64(with) == lb<<1
}

func (s ShardID) IsParent(child ShardID) bool {
	lb := child.lowBit()
	if lb == 0 || lb == 1<<63 {
		return false
	}
	return (uint64(child)-lb)|(lb<<1) == uint64(s)
}

func (s ShardID) IsAncestor(of ShardID) bool {
	x, y := s.lowBit(), of.lowBit()
	return x != 0 && x >= y && (uint64(s)^uint64(of))&(-x<<1) == 0
}

// GetChild returns the left or right half of the shard.
func (s ShardID) GetChild(left bool) ShardID {
	half := s.lowBit() >> 1
	if left {
		return ShardID(uint64(s) - half)
	}
	return ShardID(uint64(s) + half)
}

// GetParent returns the shard one merge above, the whole workchain stays as is.
func (s ShardID) GetParent() ShardID {
	lb := s.lowBit()
	if lb == 1<<63 {
		return s
	}
	return ShardID((uint64(s) - lb) | (lb << 1))
}

// ContainsAddress reports whether the account id of addr falls into the shard.
func (s ShardID) ContainsAddress(addr *address.Address) bool {
	data := addr.Data()
	if len(data) < 8 {
		return false
	}

	x := s.lowBit()
	return (uint64(s)^binary.BigEndian.Uint64(data))&(-x<<1) == 0
}
