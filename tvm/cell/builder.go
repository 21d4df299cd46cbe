package cell

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/cellcodec/cellcodec/address"
)

// Builder accumulates bits and refs of a future cell. Every store either
// appends completely or fails without touching the builder.
type Builder struct {
	bitsSz uint
	data   [128]byte

	// store it as slice of pointers to make indexing logic cleaner on parse,
	// from outside it should always come as object to not have problems
	refs []*Cell

	done *Cell
}

func BeginCell() *Builder {
	return &Builder{}
}

func (b *Builder) checkBits(sz uint) error {
	if b.done != nil {
		return ErrBuilderFinalized
	}
	if b.bitsSz+sz > maxCellBits {
		return fmt.Errorf("%w: has %d bits, need %d more", ErrNotFit1023, b.bitsSz, sz)
	}
	return nil
}

// CanExtendBy reports whether sz bits and refs more refs fit.
func (b *Builder) CanExtendBy(sz uint, refs int) bool {
	return b.done == nil && b.bitsSz+sz <= maxCellBits && len(b.refs)+refs <= maxCellRefs
}

func (b *Builder) appendBits(v uint64, sz uint) {
	storeBits(b.data[:], b.bitsSz, v, sz)
	b.bitsSz += sz
}

func (b *Builder) MustStoreUInt(value uint64, sz uint) *Builder {
	err := b.StoreUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreUInt stores value in sz bits, it fails if value does not fit.
func (b *Builder) StoreUInt(value uint64, sz uint) error {
	if sz > 64 {
		return b.StoreBigUInt(new(big.Int).SetUint64(value), sz)
	}
	if sz < 64 && value>>sz != 0 {
		return fmt.Errorf("%w: %d does not fit into %d bits", ErrRangeViolation, value, sz)
	}
	if err := b.checkBits(sz); err != nil {
		return err
	}
	b.appendBits(value, sz)
	return nil
}

func (b *Builder) MustStoreInt(value int64, sz uint) *Builder {
	err := b.StoreInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreInt stores signed value in sz bits two's complement,
// it fails if value does not fit.
func (b *Builder) StoreInt(value int64, sz uint) error {
	if sz > 64 {
		return b.StoreBigInt(big.NewInt(value), sz)
	}
	if sz == 0 {
		if value != 0 {
			return fmt.Errorf("%w: %d does not fit into 0 bits", ErrRangeViolation, value)
		}
		return nil
	}
	if sz < 64 {
		if lim := int64(1) << (sz - 1); value < -lim || value >= lim {
			return fmt.Errorf("%w: %d does not fit into %d bits", ErrRangeViolation, value, sz)
		}
	}
	if err := b.checkBits(sz); err != nil {
		return err
	}
	b.appendBits(uint64(value), sz)
	return nil
}

// StoreLong stores the low sz bits of value, without range checks.
func (b *Builder) StoreLong(value int64, sz uint) error {
	if sz > 64 {
		return fmt.Errorf("%w: %d bits for int64", ErrTooBigSize, sz)
	}
	if err := b.checkBits(sz); err != nil {
		return err
	}
	b.appendBits(uint64(value), sz)
	return nil
}

// StoreUIntLess stores value < bound using bitlen(bound-1) bits.
func (b *Builder) StoreUIntLess(bound, value uint64) error {
	if value >= bound {
		return fmt.Errorf("%w: %d is not less than %d", ErrRangeViolation, value, bound)
	}
	return b.StoreUInt(value, uint(bits.Len64(bound-1)))
}

// StoreUIntLeq stores value <= bound using bitlen(bound) bits.
func (b *Builder) StoreUIntLeq(bound, value uint64) error {
	if value > bound {
		return fmt.Errorf("%w: %d is greater than %d", ErrRangeViolation, value, bound)
	}
	return b.StoreUInt(value, uint(bits.Len64(bound)))
}

func (b *Builder) MustStoreBoolBit(value bool) *Builder {
	err := b.StoreBoolBit(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBoolBit(value bool) error {
	var i uint64
	if value {
		i = 1
	}
	return b.StoreUInt(i, 1)
}

// StoreSame stores sz copies of bit v.
func (b *Builder) StoreSame(v bool, sz uint) error {
	if err := b.checkBits(sz); err != nil {
		return err
	}
	for i := uint(0); i < sz; i++ {
		setBit(b.data[:], b.bitsSz+i, v)
	}
	b.bitsSz += sz
	return nil
}

func (b *Builder) MustStoreBigUInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigUInt(value *big.Int, sz uint) error {
	if value.Sign() == -1 {
		return ErrNegative
	}

	if sz > 256 {
		return ErrTooBigSize
	}

	if uint(value.BitLen()) > sz {
		return fmt.Errorf("%w: %d bits value into %d bits", ErrRangeViolation, value.BitLen(), sz)
	}

	return b.storeBig(value, sz)
}

// storeBig stores the low sz bits of a non negative value.
func (b *Builder) storeBig(value *big.Int, sz uint) error {
	if err := b.checkBits(sz); err != nil {
		return err
	}

	buf := value.FillBytes(make([]byte, (sz+7)/8+1))
	// bits of interest are at the tail of buf
	copyBits(b.data[:], b.bitsSz, buf, uint(len(buf))*8-sz, sz)
	b.bitsSz += sz
	return nil
}

func (b *Builder) MustStoreBigInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigInt(value *big.Int, sz uint) error {
	if sz > 257 {
		return ErrTooBigSize
	}

	if sz == 0 {
		if value.Sign() != 0 {
			return fmt.Errorf("%w: non zero value into 0 bits", ErrRangeViolation)
		}
		return nil
	}

	lim := new(big.Int).Lsh(big.NewInt(1), sz-1)
	if value.Cmp(lim) >= 0 || value.Cmp(new(big.Int).Neg(lim)) < 0 {
		return fmt.Errorf("%w: %s does not fit into %d bits", ErrRangeViolation, value.String(), sz)
	}

	if value.Sign() == -1 {
		// two's complement: 2^sz + value
		value = new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), sz), value)
	}

	return b.storeBig(value, sz)
}

// StoreUInt256 stores the low sz <= 256 bits of value, fails if it does not fit.
func (b *Builder) StoreUInt256(value *uint256.Int, sz uint) error {
	if sz > 256 {
		return ErrTooBigSize
	}
	if uint(value.BitLen()) > sz {
		return fmt.Errorf("%w: %d bits value into %d bits", ErrRangeViolation, value.BitLen(), sz)
	}
	if err := b.checkBits(sz); err != nil {
		return err
	}

	buf := value.Bytes32()
	copyBits(b.data[:], b.bitsSz, buf[:], 256-sz, sz)
	b.bitsSz += sz
	return nil
}

func (b *Builder) MustStoreCoins(value uint64) *Builder {
	err := b.StoreCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreCoins(value uint64) error {
	return b.StoreBigCoins(new(big.Int).SetUint64(value))
}

func (b *Builder) MustStoreBigCoins(value *big.Int) *Builder {
	err := b.StoreBigCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreBigCoins stores Grams, it is VarUInteger 16.
func (b *Builder) StoreBigCoins(value *big.Int) error {
	return b.StoreVarUInt(value, 16)
}

func (b *Builder) MustStoreVarUInt(value uint64, n uint) *Builder {
	err := b.StoreVarUInt(new(big.Int).SetUint64(value), n)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreVarUInt stores VarUInteger n: byte length as (#< n), then the value.
func (b *Builder) StoreVarUInt(value *big.Int, n uint) error {
	if value.Sign() == -1 {
		return ErrNegative
	}

	ln := uint((value.BitLen() + 7) >> 3)
	if n == 0 || ln >= n {
		return fmt.Errorf("%w: %d bytes value for VarUInteger %d", ErrRangeViolation, ln, n)
	}

	lenBits := uint(bits.Len(n - 1))
	if err := b.checkBits(lenBits + ln*8); err != nil {
		return err
	}

	b.appendBits(uint64(ln), lenBits)
	return b.storeBig(value, ln*8)
}

// StoreVarInt stores VarInteger n: byte length as (#< n), then a signed value.
func (b *Builder) StoreVarInt(value *big.Int, n uint) error {
	ln := uint(0)
	if value.Sign() != 0 {
		// smallest byte count holding value in two's complement
		ln = uint(value.BitLen()/8) + 1
		if value.Sign() < 0 {
			abs := new(big.Int).Neg(value)
			abs.Sub(abs, big.NewInt(1))
			ln = uint(abs.BitLen()/8) + 1
		}
	}
	if n == 0 || ln >= n || ln*8 > 257 {
		return fmt.Errorf("%w: %d bytes value for VarInteger %d", ErrRangeViolation, ln, n)
	}

	lenBits := uint(bits.Len(n - 1))
	if err := b.checkBits(lenBits + ln*8); err != nil {
		return err
	}
	b.appendBits(uint64(ln), lenBits)
	return b.StoreBigInt(value, ln*8)
}

func (b *Builder) MustStoreAddr(addr *address.Address) *Builder {
	err := b.StoreAddr(addr)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreAddr stores MsgAddress, nil is addr_none.
func (b *Builder) StoreAddr(addr *address.Address) error {
	if addr == nil {
		return b.StoreUInt(0, 2)
	}

	if b.done != nil {
		return ErrBuilderFinalized
	}

	tmp := b.Copy()
	if err := tmp.storeAddr(addr); err != nil {
		return err
	}
	*b = *tmp
	return nil
}

func (b *Builder) storeAddr(addr *address.Address) error {
	switch addr.Type() {
	case address.NoneAddress:
		return b.StoreUInt(0, 2)
	case address.ExtAddress:
		if err := b.StoreUInt(0b01, 2); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(addr.BitsLen()), 9); err != nil {
			return err
		}
		return b.StoreSlice(addr.Data(), addr.BitsLen())
	case address.StdAddress, address.VarAddress:
	default:
		return fmt.Errorf("unknown address type %d", addr.Type())
	}

	isStd := addr.Type() == address.StdAddress
	tag := uint64(0b11)
	if isStd {
		tag = 0b10
	}
	if err := b.StoreUInt(tag, 2); err != nil {
		return err
	}

	if ac := addr.Anycast(); ac != nil {
		if err := b.StoreBoolBit(true); err != nil {
			return err
		}
		if err := b.StoreUIntLeq(30, uint64(ac.Depth)); err != nil {
			return err
		}
		if err := b.StoreSlice(ac.RewritePrefix, ac.Depth); err != nil {
			return err
		}
	} else if err := b.StoreBoolBit(false); err != nil {
		return err
	}

	if isStd {
		if err := b.StoreInt(int64(addr.Workchain()), 8); err != nil {
			return err
		}
		return b.StoreSlice(addr.Data(), 256)
	}

	if err := b.StoreUInt(uint64(addr.BitsLen()), 9); err != nil {
		return err
	}
	if err := b.StoreInt(int64(addr.Workchain()), 32); err != nil {
		return err
	}
	return b.StoreSlice(addr.Data(), addr.BitsLen())
}

func (b *Builder) MustStoreRef(ref *Cell) *Builder {
	err := b.StoreRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreRef(ref *Cell) error {
	if b.done != nil {
		return ErrBuilderFinalized
	}

	if len(b.refs) >= maxCellRefs {
		return ErrTooMuchRefs
	}

	if ref == nil {
		return ErrRefCannotBeNil
	}

	b.refs = append(b.refs, ref)

	return nil
}

func (b *Builder) MustStoreMaybeRef(ref *Cell) *Builder {
	err := b.StoreMaybeRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreMaybeRef(ref *Cell) error {
	if ref == nil {
		return b.StoreBoolBit(false)
	}

	if !b.CanExtendBy(1, 1) {
		if b.done != nil {
			return ErrBuilderFinalized
		}
		return ErrCellOverflow
	}

	b.appendBits(1, 1)
	b.refs = append(b.refs, ref)
	return nil
}

func (b *Builder) MustStoreSlice(bytes []byte, sz uint) *Builder {
	err := b.StoreSlice(bytes, sz)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreSlice stores first sz bits of bytes.
func (b *Builder) StoreSlice(bytes []byte, sz uint) error {
	if uint(len(bytes))*8 < sz {
		return errNotEnoughBits(uint(len(bytes))*8, sz)
	}

	if err := b.checkBits(sz); err != nil {
		return err
	}

	copyBits(b.data[:], b.bitsSz, bytes, 0, sz)
	b.bitsSz += sz

	return nil
}

func (b *Builder) MustStoreBitString(bs *BitString) *Builder {
	err := b.StoreBitString(bs)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBitString(bs *BitString) error {
	return b.StoreSlice(bs.data, bs.sz)
}

// StoreBitStringChecked stores bs only if it has exactly expected bits.
func (b *Builder) StoreBitStringChecked(bs *BitString, expected uint) error {
	if bs.sz != expected {
		return fmt.Errorf("%w: bit string has %d bits, expected %d", ErrRangeViolation, bs.sz, expected)
	}
	return b.StoreBitString(bs)
}

func (b *Builder) MustStoreBuilder(builder *Builder) *Builder {
	err := b.StoreBuilder(builder)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBuilder(builder *Builder) error {
	return b.storeParts(builder.data[:], 0, builder.bitsSz, builder.refs)
}

// StoreCellSlice appends everything left in the slice, bits and refs.
func (b *Builder) StoreCellSlice(s *Slice) error {
	return b.storeParts(s.cell.data, s.bitsSt, s.BitsLeft(), s.cell.refs[s.refsSt:s.refsEnd])
}

func (b *Builder) storeParts(data []byte, off, sz uint, refs []*Cell) error {
	if err := b.checkBits(sz); err != nil {
		return err
	}
	if len(b.refs)+len(refs) > maxCellRefs {
		return ErrTooMuchRefs
	}

	copyBits(b.data[:], b.bitsSz, data, off, sz)
	b.bitsSz += sz
	b.refs = append(b.refs, refs...)
	return nil
}

func (b *Builder) RefsUsed() int {
	return len(b.refs)
}

func (b *Builder) BitsUsed() uint {
	return b.bitsSz
}

func (b *Builder) BitsLeft() uint {
	return maxCellBits - b.bitsSz
}

func (b *Builder) RefsLeft() int {
	return maxCellRefs - len(b.refs)
}

// Copy returns an independent builder with the same content.
func (b *Builder) Copy() *Builder {
	return &Builder{
		bitsSz: b.bitsSz,
		data:   b.data,
		refs:   append([]*Cell{}, b.refs...),
	}
}

// Finalize consumes the builder and produces a cell,
// next calls return the same cell.
func (b *Builder) Finalize(special bool) (*Cell, error) {
	if b.done != nil {
		if b.done.special != special {
			return nil, ErrBuilderFinalized
		}
		return b.done, nil
	}

	c, err := newCell(special, b.data[:], b.bitsSz, b.refs)
	if err != nil {
		return nil, err
	}
	b.done = c
	return c, nil
}

// EndCell finalizes an ordinary cell. It panics only when
// the tree depth limit of 1024 is exceeded.
func (b *Builder) EndCell() *Cell {
	c, err := b.Finalize(false)
	if err != nil {
		panic(err)
	}
	return c
}

// EndCellSpecial finalizes a special cell, validating its layout.
func (b *Builder) EndCellSpecial() (*Cell, error) {
	return b.Finalize(true)
}

// ToSlice finalizes the builder and starts parsing it.
func (b *Builder) ToSlice() *Slice {
	return b.EndCell().BeginParse()
}
