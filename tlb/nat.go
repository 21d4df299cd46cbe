package tlb

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// BoolCodec is bool_false$0 = Bool; bool_true$1 = Bool;
type BoolCodec struct{}

var BoolType = BoolCodec{}

func (BoolCodec) CheckTag(s *cell.Slice) int {
	v, err := s.PreloadUInt(1)
	if err != nil {
		return -1
	}
	return int(v)
}

func (BoolCodec) Skip(s *cell.Slice) error {
	return s.Advance(1)
}

func (BoolCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := s.LoadBoolBit()
	if err != nil {
		return err
	}
	if v {
		p.Value("bool_true")
	} else {
		p.Value("bool_false")
	}
	return nil
}

func (BoolCodec) String() string {
	return "Bool"
}

func (BoolCodec) Unpack(s *cell.Slice) (bool, error) {
	return s.LoadBoolBit()
}

func (BoolCodec) Pack(b *cell.Builder, v bool) error {
	return b.StoreBoolBit(v)
}

// UnpackTrue reads bool_true, any other constructor is an error.
func (t BoolCodec) UnpackTrue(s *cell.Slice) error {
	return t.unpackCons(s, 1)
}

// UnpackFalse reads bool_false, any other constructor is an error.
func (t BoolCodec) UnpackFalse(s *cell.Slice) error {
	return t.unpackCons(s, 0)
}

func (t BoolCodec) unpackCons(s *cell.Slice, tag int) error {
	if got := t.CheckTag(s); got != tag {
		if got < 0 {
			return cell.ErrUnderrun
		}
		return fmt.Errorf("%w: Bool tag %d, expected %d", ErrUnknownConstructor, got, tag)
	}
	return s.Advance(1)
}

// UnaryCodec is unary_zero$0 = Unary ~0; unary_succ$1 {n:#} x:(Unary ~n) = Unary ~(n + 1);
type UnaryCodec struct{}

var UnaryType = UnaryCodec{}

func (UnaryCodec) CheckTag(s *cell.Slice) int {
	v, err := s.PreloadUInt(1)
	if err != nil {
		return -1
	}
	return int(v)
}

func (t UnaryCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t UnaryCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	n, err := t.Unpack(s)
	if err != nil {
		return err
	}
	for i := uint(0); i < n; i++ {
		p.Open("unary_succ")
		p.Field("x")
	}
	p.Value("unary_zero")
	for i := uint(0); i < n; i++ {
		p.Close()
	}
	return nil
}

func (UnaryCodec) String() string {
	return "Unary"
}

// Unpack returns the number of unary_succ constructors.
func (UnaryCodec) Unpack(s *cell.Slice) (uint, error) {
	n := s.CountLeading(true)
	if n >= s.BitsLeft() {
		return 0, fmt.Errorf("%w: unary value is not terminated", cell.ErrUnderrun)
	}
	if err := s.Advance(n + 1); err != nil {
		return 0, err
	}
	return n, nil
}

func (UnaryCodec) Pack(b *cell.Builder, n uint) error {
	if n+1 > b.BitsLeft() {
		return cell.ErrNotFit1023
	}
	if err := b.StoreSame(true, n); err != nil {
		return err
	}
	return b.StoreBoolBit(false)
}

type natKind uint8

const (
	natWidth natKind = iota
	natLess
	natLeq
)

// NatCodec is one of (## n), (#< n) and (#<= n).
type NatCodec struct {
	kind  natKind
	bound uint64
}

// NatWidth is (## n), n <= 64. Nat is (## 32).
func NatWidth(n uint) NatCodec {
	return NatCodec{kind: natWidth, bound: uint64(n)}
}

// NatLess is (#< n), stored in bitlen(n-1) bits.
func NatLess(n uint64) NatCodec {
	return NatCodec{kind: natLess, bound: n}
}

// NatLeq is (#<= n), stored in bitlen(n) bits.
func NatLeq(n uint64) NatCodec {
	return NatCodec{kind: natLeq, bound: n}
}

var NatType = NatWidth(32)

// Width returns the number of bits the value takes.
func (t NatCodec) Width() uint {
	switch t.kind {
	case natLess:
		if t.bound == 0 {
			return 0
		}
		return uint(bits.Len64(t.bound - 1))
	case natLeq:
		return uint(bits.Len64(t.bound))
	}
	return uint(t.bound)
}

func (t NatCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t NatCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t NatCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := t.Unpack(s)
	if err != nil {
		return err
	}
	p.Uint(v)
	return nil
}

func (t NatCodec) String() string {
	switch t.kind {
	case natLess:
		return fmt.Sprintf("(#< %d)", t.bound)
	case natLeq:
		return fmt.Sprintf("(#<= %d)", t.bound)
	}
	if t.bound == 32 {
		return "#"
	}
	return fmt.Sprintf("(## %d)", t.bound)
}

func (t NatCodec) Unpack(s *cell.Slice) (uint64, error) {
	switch t.kind {
	case natLess:
		return s.LoadUIntLess(t.bound)
	case natLeq:
		return s.LoadUIntLeq(t.bound)
	}
	return s.LoadUInt(uint(t.bound))
}

func (t NatCodec) Pack(b *cell.Builder, v uint64) error {
	switch t.kind {
	case natLess:
		return b.StoreUIntLess(t.bound, v)
	case natLeq:
		return b.StoreUIntLeq(t.bound, v)
	}
	return b.StoreUInt(v, uint(t.bound))
}

// IntCodec is intN or uintN up to 257 and 256 bits.
type IntCodec struct {
	Bits   uint
	Signed bool
}

func Int(n uint) IntCodec {
	return IntCodec{Bits: n, Signed: true}
}

func UInt(n uint) IntCodec {
	return IntCodec{Bits: n}
}

func (t IntCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t IntCodec) Skip(s *cell.Slice) error {
	if t.Signed && t.Bits > 257 || !t.Signed && t.Bits > 256 {
		return cell.ErrTooBigSize
	}
	return s.Advance(t.Bits)
}

func (t IntCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := t.Unpack(s)
	if err != nil {
		return err
	}
	p.Value(v.String())
	return nil
}

func (t IntCodec) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Bits)
	}
	return fmt.Sprintf("uint%d", t.Bits)
}

func (t IntCodec) Unpack(s *cell.Slice) (*big.Int, error) {
	if t.Signed {
		return s.LoadBigInt(t.Bits)
	}
	return s.LoadBigUInt(t.Bits)
}

func (t IntCodec) Pack(b *cell.Builder, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t)
	}
	if t.Signed {
		return b.StoreBigInt(v, t.Bits)
	}
	return b.StoreBigUInt(v, t.Bits)
}

// BitsCodec is bitsN.
type BitsCodec struct {
	N uint
}

func Bits(n uint) BitsCodec {
	return BitsCodec{N: n}
}

// BitType is Bit, the same as bits1.
var BitType = Bits(1)

func (t BitsCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t BitsCodec) Skip(s *cell.Slice) error {
	return s.Advance(t.N)
}

func (t BitsCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := s.LoadBitString(t.N)
	if err != nil {
		return err
	}
	p.Bits(v)
	return nil
}

func (t BitsCodec) String() string {
	return fmt.Sprintf("bits%d", t.N)
}

func (t BitsCodec) Unpack(s *cell.Slice) (*cell.BitString, error) {
	return s.LoadBitString(t.N)
}

func (t BitsCodec) Pack(b *cell.Builder, v *cell.BitString) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t)
	}
	return b.StoreBitStringChecked(v, t.N)
}

// AnyCodec takes everything left in the slice, bits and refs.
type AnyCodec struct{}

var AnyType = AnyCodec{}

func (AnyCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (AnyCodec) Skip(s *cell.Slice) error {
	if err := s.Advance(s.BitsLeft()); err != nil {
		return err
	}
	return s.AdvanceRefs(s.RefsNum())
}

func (t AnyCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := t.Unpack(s)
	if err != nil {
		return err
	}
	p.Raw(v)
	return nil
}

func (AnyCodec) String() string {
	return "Any"
}

func (AnyCodec) Unpack(s *cell.Slice) (*cell.Slice, error) {
	return s.LoadSubslice(s.BitsLeft(), s.RefsNum())
}

func (AnyCodec) Pack(b *cell.Builder, v *cell.Slice) error {
	if v == nil {
		return fmt.Errorf("no value of Any")
	}
	return b.StoreCellSlice(v)
}

// CellRefCodec is ^Cell, a reference to any cell.
type CellRefCodec struct{}

var CellRefType = CellRefCodec{}

func (CellRefCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (CellRefCodec) Skip(s *cell.Slice) error {
	return s.AdvanceRefs(1)
}

func (CellRefCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	c, err := s.LoadRefCell()
	if err != nil {
		return err
	}
	p.Value("^")
	p.Raw(c.BeginParse())
	return nil
}

func (CellRefCodec) String() string {
	return "^Cell"
}

func (CellRefCodec) Unpack(s *cell.Slice) (*cell.Cell, error) {
	return s.LoadRefCell()
}

func (CellRefCodec) Pack(b *cell.Builder, c *cell.Cell) error {
	return b.StoreRef(c)
}
