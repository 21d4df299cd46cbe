package cell

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/cellcodec/cellcodec/address"
)

// Slice is a read cursor over a window of cell bits and refs.
// It never modifies the cell, copies of a slice are independent cursors.
type Slice struct {
	cell *Cell

	bitsSt, bitsEnd uint
	refsSt, refsEnd int
}

func (c *Slice) need(sz uint) error {
	if left := c.BitsLeft(); left < sz {
		return errNotEnoughBits(left, sz)
	}
	return nil
}

func (c *Slice) MustLoadRef() *Slice {
	r, err := c.LoadRef()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadRef() (*Slice, error) {
	ref, err := c.LoadRefCell()
	if err != nil {
		return nil, err
	}
	return ref.BeginParse(), nil
}

func (c *Slice) PreloadRef() (*Slice, error) {
	ref, err := c.PreloadRefCell()
	if err != nil {
		return nil, err
	}
	return ref.BeginParse(), nil
}

func (c *Slice) MustLoadRefCell() *Cell {
	r, err := c.LoadRefCell()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadRefCell() (*Cell, error) {
	ref, err := c.PreloadRefCell()
	if err != nil {
		return nil, err
	}
	c.refsSt++
	return ref, nil
}

func (c *Slice) PreloadRefCell() (*Cell, error) {
	if c.refsSt >= c.refsEnd {
		return nil, ErrNoMoreRefs
	}
	return c.cell.refs[c.refsSt], nil
}

func (c *Slice) MustLoadMaybeRef() *Slice {
	r, err := c.LoadMaybeRef()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadMaybeRef loads Maybe ^Cell, nil slice means nothing.
func (c *Slice) LoadMaybeRef() (*Slice, error) {
	has, err := c.PreloadUInt(1)
	if err != nil {
		return nil, err
	}

	if has == 0 {
		c.bitsSt++
		return nil, nil
	}

	ref, err := c.PreloadRefCell()
	if err != nil {
		return nil, err
	}
	c.bitsSt++
	c.refsSt++

	return ref.BeginParse(), nil
}

func (c *Slice) RefsNum() int {
	return c.refsEnd - c.refsSt
}

func (c *Slice) BitsLeft() uint {
	return c.bitsEnd - c.bitsSt
}

// IsEmpty reports whether both bits and refs are fully consumed.
func (c *Slice) IsEmpty() bool {
	return c.BitsLeft() == 0 && c.RefsNum() == 0
}

// EnsureEmpty fails with ErrTrailingData if something is left.
func (c *Slice) EnsureEmpty() error {
	if !c.IsEmpty() {
		return fmt.Errorf("%w: %d bits and %d refs", ErrTrailingData, c.BitsLeft(), c.RefsNum())
	}
	return nil
}

func (c *Slice) Advance(sz uint) error {
	if err := c.need(sz); err != nil {
		return err
	}
	c.bitsSt += sz
	return nil
}

func (c *Slice) AdvanceRefs(n int) error {
	if n < 0 || c.RefsNum() < n {
		return ErrNoMoreRefs
	}
	c.refsSt += n
	return nil
}

func (c *Slice) MustLoadCoins() uint64 {
	r, err := c.LoadCoins()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadCoins() (uint64, error) {
	value, err := c.LoadBigCoins()
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: coins value does not fit uint64", ErrRangeViolation)
	}
	return value.Uint64(), nil
}

func (c *Slice) MustLoadBigCoins() *big.Int {
	r, err := c.LoadBigCoins()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBigCoins() (*big.Int, error) {
	// varInt 16 https://github.com/ton-blockchain/ton/blob/24dc184a2ea67f9c47042b4104bbb4d82289fac1/crypto/block/block-parse.cpp#L319
	return c.LoadVarUInt(16)
}

func (c *Slice) MustLoadUInt(sz uint) uint64 {
	res, err := c.LoadUInt(sz)
	if err != nil {
		panic(err)
	}
	return res
}

func (c *Slice) MustPreloadUInt(sz uint) uint64 {
	res, err := c.PreloadUInt(sz)
	if err != nil {
		panic(err)
	}
	return res
}

// LoadUInt loads up to 64 bits as unsigned integer.
func (c *Slice) LoadUInt(sz uint) (uint64, error) {
	res, err := c.PreloadUInt(sz)
	if err != nil {
		return 0, err
	}
	c.bitsSt += sz
	return res, nil
}

func (c *Slice) PreloadUInt(sz uint) (uint64, error) {
	if sz > 64 {
		return 0, fmt.Errorf("%w: %d bits for uint64", ErrTooBigSize, sz)
	}
	if err := c.need(sz); err != nil {
		return 0, err
	}
	return loadBits(c.cell.data, c.bitsSt, sz), nil
}

// PreloadUIntExt is PreloadUInt that pads missing bits with zeros.
func (c *Slice) PreloadUIntExt(sz uint) (uint64, error) {
	if sz > 64 {
		return 0, fmt.Errorf("%w: %d bits for uint64", ErrTooBigSize, sz)
	}
	left := c.BitsLeft()
	if left >= sz {
		return loadBits(c.cell.data, c.bitsSt, sz), nil
	}
	return loadBits(c.cell.data, c.bitsSt, left) << (sz - left), nil
}

func (c *Slice) MustLoadInt(sz uint) int64 {
	res, err := c.LoadInt(sz)
	if err != nil {
		panic(err)
	}
	return res
}

// LoadInt loads up to 64 bits as two's complement signed integer.
func (c *Slice) LoadInt(sz uint) (int64, error) {
	res, err := c.PreloadInt(sz)
	if err != nil {
		return 0, err
	}
	c.bitsSt += sz
	return res, nil
}

func (c *Slice) PreloadInt(sz uint) (int64, error) {
	u, err := c.PreloadUInt(sz)
	if err != nil {
		return 0, err
	}
	if sz == 0 || sz == 64 {
		return int64(u), nil
	}
	// sign extend
	shift := 64 - sz
	return int64(u<<shift) >> shift, nil
}

// LoadUIntLess loads a value strictly less than bound,
// encoded in bitlen(bound-1) bits.
func (c *Slice) LoadUIntLess(bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, fmt.Errorf("%w: no values are less than 0", ErrRangeViolation)
	}

	sz := uint(bits.Len64(bound - 1))
	v, err := c.PreloadUInt(sz)
	if err != nil {
		return 0, err
	}
	if v >= bound {
		return 0, fmt.Errorf("%w: %d is not less than %d", ErrRangeViolation, v, bound)
	}
	c.bitsSt += sz
	return v, nil
}

// LoadUIntLeq loads a value not greater than bound, encoded in bitlen(bound) bits.
func (c *Slice) LoadUIntLeq(bound uint64) (uint64, error) {
	sz := uint(bits.Len64(bound))
	v, err := c.PreloadUInt(sz)
	if err != nil {
		return 0, err
	}
	if v > bound {
		return 0, fmt.Errorf("%w: %d is greater than %d", ErrRangeViolation, v, bound)
	}
	c.bitsSt += sz
	return v, nil
}

// BSelect prefetches sz <= 6 bits as n and returns the number of set bits
// of mask at positions 0..n, minus one. It is used to map a tag to
// a constructor index when only some tag values are valid.
func (c *Slice) BSelect(sz uint, mask uint64) (int, error) {
	if sz > 6 {
		return -1, fmt.Errorf("%w: bselect supports up to 6 bits", ErrTooBigSize)
	}
	n, err := c.PreloadUInt(sz)
	if err != nil {
		return -1, err
	}
	return bselect(n, mask), nil
}

// BSelectExt is BSelect which zero extends a too short slice.
func (c *Slice) BSelectExt(sz uint, mask uint64) (int, error) {
	if sz > 6 {
		return -1, fmt.Errorf("%w: bselect supports up to 6 bits", ErrTooBigSize)
	}
	n, err := c.PreloadUIntExt(sz)
	if err != nil {
		return -1, err
	}
	return bselect(n, mask), nil
}

func bselect(n, mask uint64) int {
	return bits.OnesCount64(mask&((2<<n)-1)) - 1
}

// CountLeading returns how many bits equal to v go in a row from the cursor.
func (c *Slice) CountLeading(v bool) uint {
	var n uint
	for i := c.bitsSt; i < c.bitsEnd && getBit(c.cell.data, i) == v; i++ {
		n++
	}
	return n
}

func (c *Slice) MustLoadBoolBit() bool {
	r, err := c.LoadBoolBit()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBoolBit() (bool, error) {
	res, err := c.LoadUInt(1)
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (c *Slice) MustLoadBigUInt(sz uint) *big.Int {
	r, err := c.LoadBigUInt(sz)
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) MustPreloadBigUInt(sz uint) *big.Int {
	r, err := c.PreloadBigUInt(sz)
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBigUInt(sz uint) (*big.Int, error) {
	if sz > 256 {
		return nil, ErrTooBigSize
	}
	return c.loadBigNumber(sz)
}

func (c *Slice) PreloadBigUInt(sz uint) (*big.Int, error) {
	if sz > 256 {
		return nil, ErrTooBigSize
	}
	return c.preloadBigNumber(sz)
}

func (c *Slice) loadBigNumber(sz uint) (*big.Int, error) {
	res, err := c.preloadBigNumber(sz)
	if err != nil {
		return nil, err
	}
	c.bitsSt += sz
	return res, nil
}

func (c *Slice) preloadBigNumber(sz uint) (*big.Int, error) {
	if err := c.need(sz); err != nil {
		return nil, err
	}

	// right align bits in a buffer
	buf := make([]byte, (sz+7)/8)
	copyBits(buf, uint(len(buf))*8-sz, c.cell.data, c.bitsSt, sz)
	return new(big.Int).SetBytes(buf), nil
}

func (c *Slice) MustLoadBigInt(sz uint) *big.Int {
	r, err := c.LoadBigInt(sz)
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBigInt(sz uint) (*big.Int, error) {
	if sz > 257 {
		return nil, ErrTooBigSize
	}

	u, err := c.loadBigNumber(sz)
	if err != nil {
		return nil, err
	}

	if sz > 0 && u.Bit(int(sz-1)) == 1 {
		// negative, subtract 2^sz
		u.Sub(u, new(big.Int).Lsh(big.NewInt(1), sz))
	}
	return u, nil
}

// LoadUInt256 loads up to 256 bits into a fixed width integer.
func (c *Slice) LoadUInt256(sz uint) (*uint256.Int, error) {
	if sz > 256 {
		return nil, ErrTooBigSize
	}
	if err := c.need(sz); err != nil {
		return nil, err
	}

	var buf [32]byte
	copyBits(buf[:], 256-sz, c.cell.data, c.bitsSt, sz)
	c.bitsSt += sz
	return new(uint256.Int).SetBytes32(buf[:]), nil
}

func (c *Slice) MustLoadVarUInt(sz uint) *big.Int {
	r, err := c.LoadVarUInt(sz)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadVarUInt loads VarUInteger n. The cursor moves only on success.
func (c *Slice) LoadVarUInt(n uint) (*big.Int, error) {
	ln, payload, err := c.varIntBounds(n)
	if err != nil {
		return nil, err
	}

	tmp := *c
	tmp.bitsSt += ln
	value, err := tmp.loadBigNumber(payload)
	if err != nil {
		return nil, err
	}
	*c = tmp
	return value, nil
}

// LoadVarUInt256 loads VarUInteger n with n <= 33 into a fixed width integer.
func (c *Slice) LoadVarUInt256(n uint) (*uint256.Int, error) {
	ln, payload, err := c.varIntBounds(n)
	if err != nil {
		return nil, err
	}

	tmp := *c
	tmp.bitsSt += ln
	value, err := tmp.LoadUInt256(payload)
	if err != nil {
		return nil, err
	}
	*c = tmp
	return value, nil
}

// LoadVarInt loads VarInteger n. The cursor moves only on success.
func (c *Slice) LoadVarInt(n uint) (*big.Int, error) {
	ln, payload, err := c.varIntBounds(n)
	if err != nil {
		return nil, err
	}

	tmp := *c
	tmp.bitsSt += ln
	value, err := tmp.LoadBigInt(payload)
	if err != nil {
		return nil, err
	}
	*c = tmp
	return value, nil
}

// varIntBounds returns sizes of the length prefix and of the payload.
func (c *Slice) varIntBounds(n uint) (uint, uint, error) {
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: VarInteger 0 has no values", ErrRangeViolation)
	}
	lenBits := uint(bits.Len(n - 1))
	ln, err := c.PreloadUInt(lenBits)
	if err != nil {
		return 0, 0, err
	}
	if ln >= uint64(n) {
		return 0, 0, fmt.Errorf("%w: length %d of VarInteger %d", ErrRangeViolation, ln, n)
	}
	return lenBits, uint(ln) * 8, nil
}

func (c *Slice) MustLoadSlice(sz uint) []byte {
	s, err := c.LoadSlice(sz)
	if err != nil {
		panic(err)
	}
	return s
}

func (c *Slice) MustPreloadSlice(sz uint) []byte {
	s, err := c.PreloadSlice(sz)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadSlice loads sz bits as left aligned bytes.
func (c *Slice) LoadSlice(sz uint) ([]byte, error) {
	res, err := c.PreloadSlice(sz)
	if err != nil {
		return nil, err
	}
	c.bitsSt += sz
	return res, nil
}

func (c *Slice) PreloadSlice(sz uint) ([]byte, error) {
	if err := c.need(sz); err != nil {
		return nil, err
	}
	return extractBits(c.cell.data, c.bitsSt, sz), nil
}

func (c *Slice) LoadBitString(sz uint) (*BitString, error) {
	res, err := c.PreloadBitString(sz)
	if err != nil {
		return nil, err
	}
	c.bitsSt += sz
	return res, nil
}

func (c *Slice) PreloadBitString(sz uint) (*BitString, error) {
	data, err := c.PreloadSlice(sz)
	if err != nil {
		return nil, err
	}
	return &BitString{sz: sz, data: data}, nil
}

// LoadSubslice cuts the next sz bits and refs refs as a separate slice
// over the same cell, without copying.
func (c *Slice) LoadSubslice(sz uint, refs int) (*Slice, error) {
	sub, err := c.PreloadSubslice(sz, refs)
	if err != nil {
		return nil, err
	}
	c.bitsSt += sz
	c.refsSt += refs
	return sub, nil
}

func (c *Slice) PreloadSubslice(sz uint, refs int) (*Slice, error) {
	if err := c.need(sz); err != nil {
		return nil, err
	}
	if refs < 0 || c.RefsNum() < refs {
		return nil, ErrNoMoreRefs
	}
	return &Slice{
		cell:    c.cell,
		bitsSt:  c.bitsSt,
		bitsEnd: c.bitsSt + sz,
		refsSt:  c.refsSt,
		refsEnd: c.refsSt + refs,
	}, nil
}

// Consumed returns the part of src which was read to reach c.
// Both slices must be cursors over the same cell window.
func (c *Slice) Consumed(src *Slice) (*Slice, error) {
	if src.cell != c.cell || src.bitsSt > c.bitsSt || src.refsSt > c.refsSt {
		return nil, fmt.Errorf("slice is not derived from the source")
	}
	return src.PreloadSubslice(c.bitsSt-src.bitsSt, c.refsSt-src.refsSt)
}

func (c *Slice) MustLoadAddr() *address.Address {
	a, err := c.LoadAddr()
	if err != nil {
		panic(err)
	}
	return a
}

// LoadAddr loads MsgAddress, the cursor moves only on success.
func (c *Slice) LoadAddr() (*address.Address, error) {
	tmp := *c
	a, err := tmp.loadAddr()
	if err != nil {
		return nil, err
	}
	*c = tmp
	return a, nil
}

func (c *Slice) loadAddr() (*address.Address, error) {
	typ, err := c.LoadUInt(2)
	if err != nil {
		return nil, err
	}

	switch typ {
	case 0b00:
		return address.NewAddressNone(), nil
	case 0b01:
		ln, err := c.LoadUInt(9)
		if err != nil {
			return nil, fmt.Errorf("failed to load len: %w", err)
		}

		data, err := c.LoadSlice(uint(ln))
		if err != nil {
			return nil, fmt.Errorf("failed to load addr data: %w", err)
		}
		return address.NewAddressExt(0, uint(ln), data), nil
	}

	isAnycast, err := c.LoadBoolBit()
	if err != nil {
		return nil, fmt.Errorf("failed to load anycast bit: %w", err)
	}

	var anycast *address.Anycast
	if isAnycast {
		depth, err := c.LoadUIntLeq(30)
		if err != nil {
			return nil, fmt.Errorf("failed to load anycast depth: %w", err)
		}
		if depth < 1 {
			return nil, fmt.Errorf("%w: anycast depth should be at least 1", ErrRangeViolation)
		}

		pfx, err := c.LoadSlice(uint(depth))
		if err != nil {
			return nil, fmt.Errorf("failed to load anycast prefix: %w", err)
		}
		anycast = &address.Anycast{Depth: uint(depth), RewritePrefix: pfx}
	}

	var a *address.Address
	if typ == 0b10 {
		workchain, err := c.LoadInt(8)
		if err != nil {
			return nil, fmt.Errorf("failed to load workchain: %w", err)
		}

		data, err := c.LoadSlice(256)
		if err != nil {
			return nil, fmt.Errorf("failed to load addr data: %w", err)
		}
		a = address.NewAddress(0, byte(workchain), data)
	} else {
		ln, err := c.LoadUInt(9)
		if err != nil {
			return nil, fmt.Errorf("failed to load len: %w", err)
		}

		workchain, err := c.LoadInt(32)
		if err != nil {
			return nil, fmt.Errorf("failed to load workchain: %w", err)
		}

		data, err := c.LoadSlice(uint(ln))
		if err != nil {
			return nil, fmt.Errorf("failed to load addr data: %w", err)
		}
		a = address.NewAddressVar(0, int32(workchain), uint(ln), data)
	}

	if anycast != nil {
		a = a.WithAnycast(anycast)
	}
	return a, nil
}

func (c *Slice) IsSpecial() bool {
	return c.cell.special
}

// Cell returns the underlying cell of the cursor.
func (c *Slice) Cell() *Cell {
	return c.cell
}

// RestBits returns the size and bytes of the unread bits, without moving.
func (c *Slice) RestBits() (uint, []byte, error) {
	left := c.BitsLeft()
	data, err := c.PreloadSlice(left)
	return left, data, err
}

func (c *Slice) Copy() *Slice {
	cp := *c
	return &cp
}

// ToBuilder copies the rest of the slice into a new builder.
func (c *Slice) ToBuilder() *Builder {
	b := BeginCell()
	// rest always fits an empty builder
	_ = b.StoreCellSlice(c)
	return b
}

func (c *Slice) MustToCell() *Cell {
	cl, err := c.ToCell()
	if err != nil {
		panic(err)
	}
	return cl
}

// ToCell returns the rest of the slice as a cell, the whole
// underlying cell is returned when the cursor was not moved.
func (c *Slice) ToCell() (*Cell, error) {
	if c.bitsSt == 0 && c.refsSt == 0 && c.bitsEnd == c.cell.bitsSz && c.refsEnd == len(c.cell.refs) {
		return c.cell, nil
	}
	return c.ToBuilder().Finalize(false)
}
