package tlb

import (
	"fmt"
	"math/big"

	"github.com/cellcodec/cellcodec/tvm/cell"
	"github.com/holiman/uint256"
)

// VarUIntegerCodec is var_uint$_ {n:#} len:(#< n) value:(uint (len * 8)) = VarUInteger n;
type VarUIntegerCodec struct {
	N uint
}

func VarUInteger(n uint) VarUIntegerCodec {
	return VarUIntegerCodec{N: n}
}

func (t VarUIntegerCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t VarUIntegerCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t VarUIntegerCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	ln, err := NatLess(uint64(t.N)).Unpack(s.Copy())
	if err != nil {
		return err
	}
	v, err := t.Unpack(s)
	if err != nil {
		return err
	}
	p.Open("var_uint")
	p.Field("len")
	p.Uint(ln)
	p.Field("value")
	p.Value(v.String())
	p.Close()
	return nil
}

func (t VarUIntegerCodec) String() string {
	return fmt.Sprintf("(VarUInteger %d)", t.N)
}

func (t VarUIntegerCodec) Unpack(s *cell.Slice) (*big.Int, error) {
	return s.LoadVarUInt(t.N)
}

func (t VarUIntegerCodec) Pack(b *cell.Builder, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t)
	}
	return b.StoreVarUInt(v, t.N)
}

// Unpack256 reads the value into a fixed width integer, n should be at most 33.
func (t VarUIntegerCodec) Unpack256(s *cell.Slice) (*uint256.Int, error) {
	return s.LoadVarUInt256(t.N)
}

func (t VarUIntegerCodec) Pack256(b *cell.Builder, v *uint256.Int) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t)
	}
	return b.StoreVarUInt(v.ToBig(), t.N)
}

// VarIntegerCodec is var_int$_ {n:#} len:(#< n) value:(int (len * 8)) = VarInteger n;
type VarIntegerCodec struct {
	N uint
}

func VarInteger(n uint) VarIntegerCodec {
	return VarIntegerCodec{N: n}
}

func (t VarIntegerCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t VarIntegerCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t VarIntegerCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	ln, err := NatLess(uint64(t.N)).Unpack(s.Copy())
	if err != nil {
		return err
	}
	v, err := t.Unpack(s)
	if err != nil {
		return err
	}
	p.Open("var_int")
	p.Field("len")
	p.Uint(ln)
	p.Field("value")
	p.Value(v.String())
	p.Close()
	return nil
}

func (t VarIntegerCodec) String() string {
	return fmt.Sprintf("(VarInteger %d)", t.N)
}

func (t VarIntegerCodec) Unpack(s *cell.Slice) (*big.Int, error) {
	return s.LoadVarInt(t.N)
}

func (t VarIntegerCodec) Pack(b *cell.Builder, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t)
	}
	return b.StoreVarInt(v, t.N)
}
