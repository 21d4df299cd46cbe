package cell

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

var data1024, _ = hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000003000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000000000000000000000000000000000000030000000000000000000000000000000000000000000000000000000000000003")

func TestCell(t *testing.T) {
	c := BeginCell()

	bs := []byte{11, 22, 33}

	err := c.StoreUInt(1, 1)
	if err != nil {
		t.Fatal(err)
		return
	}

	err = c.StoreSlice(bs, 24)
	if err != nil {
		t.Fatal(err)
		return
	}

	amount := uint64(777)
	c2 := BeginCell().MustStoreCoins(amount).EndCell()

	err = c.StoreRef(c2)
	if err != nil {
		t.Fatal(err)
		return
	}

	u38val := uint64(0xAABBCCF)

	err = c.StoreUInt(u38val, 40)
	if err != nil {
		t.Fatal(err)
		return
	}

	boc := c.EndCell().ToBOC()

	cl, err := FromBOC(boc)
	if err != nil {
		t.Fatal(err)
		return
	}

	lc := cl.BeginParse()

	i, err := lc.LoadUInt(1)
	if err != nil {
		t.Fatal(err)
		return
	}

	if i != 1 {
		t.Fatal("1 bit not eq 1")
		return
	}

	bl, err := lc.LoadSlice(24)
	if err != nil {
		t.Fatal(err)
		return
	}

	if !bytes.Equal(bs, bl) {
		t.Fatal("slices not eq:\n" + hex.EncodeToString(bs) + "\n" + hex.EncodeToString(bl))
		return
	}

	u38, err := lc.LoadUInt(40)
	if err != nil {
		t.Fatal(err)
		return
	}

	if u38 != u38val {
		t.Fatal("uint38 not eq")
		return
	}

	ref, err := lc.LoadRef()
	if err != nil {
		t.Fatal(err)
		return
	}

	amt, err := ref.LoadCoins()
	if err != nil {
		t.Fatal(err)
		return
	}

	if amt != amount {
		t.Fatal("coins ref not eq")
		return
	}
}

func TestCell24(t *testing.T) {
	c := BeginCell()

	bs := []byte{11, 22, 33}

	err := c.StoreSlice(bs, 24)
	if err != nil {
		t.Fatal(err)
		return
	}

	lc := c.EndCell().BeginParse()

	res, err := lc.LoadSlice(24)
	if err != nil {
		t.Fatal(err)
		return
	}

	if !bytes.Equal(bs, res) {
		t.Fatal("slices not eq:\n" + hex.EncodeToString(bs) + "\n" + hex.EncodeToString(res))
		return
	}
}

func TestCell25(t *testing.T) {
	c := BeginCell()

	bs := []byte{11, 22, 33, 0x80}

	err := c.StoreSlice(bs, 25)
	if err != nil {
		t.Fatal(err)
		return
	}

	lc := c.EndCell().BeginParse()

	res, err := lc.LoadSlice(25)
	if err != nil {
		t.Fatal(err)
		return
	}

	if !bytes.Equal(bs, res) {
		t.Fatal("slices not eq:\n" + hex.EncodeToString(bs) + "\n" + hex.EncodeToString(res))
		return
	}
}

func TestCellReadSmall(t *testing.T) {
	c := BeginCell()

	bs := []byte{0b10101010, 0x00, 0x00}

	err := c.StoreSlice(bs, 24)
	if err != nil {
		t.Fatal(err)
		return
	}

	lc := c.EndCell().BeginParse()

	for i := 0; i < 8; i++ {
		res, err := lc.LoadUInt(1)
		if err != nil {
			t.Fatal(err)
			return
		}

		if (res != 1 && i%2 == 0) || (res != 0 && i%2 == 1) {
			t.Fatal("not eq " + fmt.Sprint(i*2))
			return
		}
	}

	res, err := lc.LoadUInt(1)
	if err != nil {
		t.Fatal(err)
		return
	}

	if res != 0 {
		t.Fatal("not 0")
		return
	}
}

func TestCellReadEmpty(t *testing.T) {
	c := BeginCell().EndCell().BeginParse()
	sz, _, err := c.RestBits()
	if err != nil {
		t.Fatal(err)
		return
	}

	if sz != 0 {
		t.Fatal("not 0")
		return
	}
}

func TestBuilder_MustStoreUInt(t *testing.T) {
	val := BeginCell().MustStoreUInt(516783, 23).EndCell().BeginParse().MustLoadUInt(23)
	if val != 516783 {
		t.Fatal("incorrect", val)
	}

	val = BeginCell().MustStoreUInt(2, 64).EndCell().BeginParse().MustLoadUInt(64)
	if val != 2 {
		t.Fatal("incorrect2", val)
	}

	val = BeginCell().MustStoreUInt(0xFFFFFF, 24).EndCell().BeginParse().MustLoadUInt(24)
	if val != 0xFFFFFF {
		t.Fatal("incorrect3", val)
	}

	val = BeginCell().MustStoreUInt(0xFFFFFF, 24).EndCell().BeginParse().MustLoadUInt(20)
	if val != 0xFFFFF {
		t.Fatal("incorrect4", val)
	}

	val = BeginCell().MustStoreUInt(2, 2).EndCell().BeginParse().MustLoadUInt(2)
	if val != 2 {
		t.Fatal("incorrect5", val)
	}

	val = BeginCell().MustStoreUInt(1, 1).EndCell().BeginParse().MustLoadUInt(1)
	if val != 1 {
		t.Fatal("incorrect6", val)
	}

	bval := BeginCell().MustStoreUInt(123456789, 70).EndCell().BeginParse().MustLoadBigUInt(70)
	if bval.Uint64() != 123456789 {
		t.Fatal("incorrect7", bval)
	}

	err := BeginCell().StoreUInt(0xFFFFFFFFFFFFFFFF, 60)
	if !errors.Is(err, ErrRangeViolation) {
		t.Fatal("incorrect8, err:", err)
	}
}

func TestBuilder_StoreIntRange(t *testing.T) {
	b := BeginCell()

	if err := b.StoreInt(-5, 3); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("-5 fits into 3 bits:", err)
	}
	if err := b.StoreInt(4, 3); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("4 fits into 3 bits:", err)
	}
	if err := b.StoreInt(-4, 3); err != nil {
		t.Fatal(err)
	}
	if err := b.StoreLong(-1, 5); err != nil {
		t.Fatal(err)
	}

	if b.BitsUsed() != 8 {
		t.Fatal("failed store moved builder, bits:", b.BitsUsed())
	}

	s := b.EndCell().BeginParse()
	if v := s.MustLoadInt(3); v != -4 {
		t.Fatal("incorrect int", v)
	}
	if v := s.MustLoadUInt(5); v != 0b11111 {
		t.Fatal("incorrect long", v)
	}
}

func TestBuilder_StoreUIntBounds(t *testing.T) {
	b := BeginCell()

	if err := b.StoreUIntLess(5, 5); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("5 < 5:", err)
	}
	if err := b.StoreUIntLeq(5, 6); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("6 <= 5:", err)
	}

	// #< 5 takes 3 bits, #<= 4 takes 3 bits, #<= 0 takes none
	b.MustStoreUInt(0, 0)
	if err := b.StoreUIntLess(5, 4); err != nil {
		t.Fatal(err)
	}
	if err := b.StoreUIntLeq(4, 4); err != nil {
		t.Fatal(err)
	}
	if err := b.StoreUIntLeq(0, 0); err != nil {
		t.Fatal(err)
	}
	if b.BitsUsed() != 6 {
		t.Fatal("incorrect bits used", b.BitsUsed())
	}

	s := b.EndCell().BeginParse()
	if v, err := s.LoadUIntLess(5); err != nil || v != 4 {
		t.Fatal("incorrect less", v, err)
	}
	if v, err := s.LoadUIntLeq(4); err != nil || v != 4 {
		t.Fatal("incorrect leq", v, err)
	}
	if v, err := s.LoadUIntLeq(0); err != nil || v != 0 {
		t.Fatal("incorrect leq 0", v, err)
	}

	s = BeginCell().MustStoreUInt(7, 3).EndCell().BeginParse()
	if _, err := s.LoadUIntLess(5); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("7 loaded as #< 5:", err)
	}
	if s.BitsLeft() != 3 {
		t.Fatal("failed load moved slice")
	}
}

func TestBuilder_StoreBigInt(t *testing.T) {
	c := BeginCell()

	err := c.StoreBigInt(new(big.Int), 300)
	if err != ErrTooBigSize {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreBigInt(new(big.Int).Lsh(big.NewInt(1), 257), 256)
	if !errors.Is(err, ErrRangeViolation) {
		t.Fatal("err incorrect, its:", err)
	}

	c.MustStoreBigInt(new(big.Int).SetInt64(-3), 256)

	data := hex.EncodeToString(c.EndCell().BeginParse().MustLoadSlice(256))
	if data != "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffd" {
		t.Fatal("value incorrect, its:", data)
	}
}

func TestBuilder_StoreBigUInt(t *testing.T) {
	c := BeginCell()

	err := c.StoreBigUInt(new(big.Int), 300)
	if err != ErrTooBigSize {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreBigUInt(new(big.Int).Lsh(big.NewInt(1), 257), 256)
	if !errors.Is(err, ErrRangeViolation) {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreBigUInt(big.NewInt(-1), 256)
	if err != ErrNegative {
		t.Fatal("err incorrect, its:", err)
	}

	c.MustStoreBigUInt(new(big.Int).SetInt64(3), 256)

	data := hex.EncodeToString(c.EndCell().BeginParse().MustLoadSlice(256))
	if data != "0000000000000000000000000000000000000000000000000000000000000003" {
		t.Fatal("value incorrect, its:", data)
	}
}

func TestBuilder_StoreUInt256(t *testing.T) {
	v := uint256.NewInt(0).Lsh(uint256.NewInt(1), 200)
	v.AddUint64(v, 77)

	c := BeginCell().MustStoreUInt(1, 1)
	if err := c.StoreUInt256(v, 201); err != nil {
		t.Fatal(err)
	}
	if err := c.StoreUInt256(v, 200); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("err incorrect, its:", err)
	}

	s := c.EndCell().BeginParse()
	s.MustLoadUInt(1)

	got, err := s.LoadUInt256(201)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Eq(v) {
		t.Fatal("value incorrect, its:", got.Hex())
	}
}

func TestBuilder_StoreVarUInt(t *testing.T) {
	c := BeginCell()

	if err := c.StoreVarUInt(new(big.Int).Lsh(big.NewInt(1), 120), 16); !errors.Is(err, ErrRangeViolation) {
		t.Fatal("16 bytes value stored as VarUInteger 16:", err)
	}
	if err := c.StoreVarUInt(big.NewInt(0x1234), 32); err != nil {
		t.Fatal(err)
	}
	if err := c.StoreVarInt(big.NewInt(-129), 16); err != nil {
		t.Fatal(err)
	}

	// 5 bits length for VarUInteger 32, 2 bytes of value
	if c.BitsUsed() != 5+16+4+16 {
		t.Fatal("incorrect size", c.BitsUsed())
	}

	s := c.EndCell().BeginParse()
	if v, err := s.LoadVarUInt(32); err != nil || v.Uint64() != 0x1234 {
		t.Fatal("incorrect var uint", v, err)
	}
	if v, err := s.LoadVarInt(16); err != nil || v.Int64() != -129 {
		t.Fatal("incorrect var int", v, err)
	}
}

func TestBuilder_StoreSlice(t *testing.T) {
	c := BeginCell()

	err := c.StoreSlice([]byte{}, 1023)
	if !errors.Is(err, ErrUnderrun) {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreSlice(data1024, 1024)
	if !errors.Is(err, ErrNotFit1023) || !errors.Is(err, ErrCellOverflow) {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreSlice(data1024, 1023)
	if err != nil {
		t.Fatal("err incorrect, its:", err)
	}
}

func TestBuilder_StoreRef(t *testing.T) {
	c := BeginCell()

	err := c.StoreRef(nil)
	if err != ErrRefCannotBeNil {
		t.Fatal("err incorrect, its:", err)
	}

	for i := 0; i < 4; i++ {
		err = c.StoreRef(BeginCell().EndCell())
		if err != nil {
			t.Fatal("err incorrect, its:", err)
		}
	}

	err = c.StoreRef(BeginCell().EndCell())
	if err != ErrTooMuchRefs {
		t.Fatal("err incorrect, its:", err)
	}
}

func TestBuilder_OverflowKeepsState(t *testing.T) {
	b := BeginCell().MustStoreSlice(data1024, 300)

	for i := 0; i < 5; i++ {
		err := b.StoreRef(BeginCell().MustStoreUInt(uint64(i), 8).EndCell())
		if i < 4 && err != nil {
			t.Fatal("ref", i, err)
		}
		if i == 4 && !errors.Is(err, ErrCellOverflow) {
			t.Fatal("5th ref stored:", err)
		}
	}

	if b.RefsUsed() != 4 || b.BitsUsed() != 300 {
		t.Fatal("incorrect state after overflow", b.RefsUsed(), b.BitsUsed())
	}

	c := b.EndCell()
	if c.RefsNum() != 4 || c.BitsSize() != 300 {
		t.Fatal("incorrect cell", c.RefsNum(), c.BitsSize())
	}
}

func TestBuilder_StoreBuilder(t *testing.T) {
	c := BeginCell().MustStoreSlice(data1024, 1015).MustStoreRef(BeginCell().EndCell())
	b1bad := BeginCell().MustStoreSlice([]byte{0xAA, 0xBB}, 16).MustStoreRef(BeginCell().EndCell())
	b2bad := BeginCell().MustStoreSlice([]byte{0xAA}, 8).MustStoreRef(BeginCell().EndCell()).MustStoreRef(BeginCell().EndCell()).MustStoreRef(BeginCell().EndCell()).MustStoreRef(BeginCell().EndCell())
	b3 := BeginCell().MustStoreSlice([]byte{0xAA}, 8).MustStoreRef(BeginCell().EndCell()).MustStoreRef(BeginCell().EndCell()).MustStoreRef(BeginCell().EndCell())

	err := c.StoreBuilder(b1bad)
	if !errors.Is(err, ErrNotFit1023) {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreBuilder(b2bad)
	if err != ErrTooMuchRefs {
		t.Fatal("err incorrect, its:", err)
	}

	err = c.StoreBuilder(b3)
	if err != nil {
		t.Fatal("err incorrect, its:", err)
	}

	if val := c.RefsLeft(); val != 0 {
		t.Fatal("refs left incorrect, its:", val)
	}

	if val := c.BitsLeft(); val != 0 {
		t.Fatal("bits left incorrect, its:", val)
	}

	if val := c.BitsUsed(); val != 1023 {
		t.Fatal("bits used incorrect, its:", val)
	}

	if val := c.RefsUsed(); val != 4 {
		t.Fatal("refs used incorrect, its:", val)
	}
}

func TestBuilder_Finalize(t *testing.T) {
	b := BeginCell().MustStoreUInt(7, 3)

	c1, err := b.Finalize(false)
	if err != nil {
		t.Fatal(err)
	}

	c2 := b.EndCell()
	if c1 != c2 {
		t.Fatal("second finalize returned another cell")
	}

	if err = b.StoreUInt(1, 1); err != ErrBuilderFinalized {
		t.Fatal("store after finalize, err:", err)
	}
	if err = b.StoreRef(c1); err != ErrBuilderFinalized {
		t.Fatal("store ref after finalize, err:", err)
	}
}

func TestBuilder_SpecialCell(t *testing.T) {
	_, err := BeginCell().MustStoreUInt(uint64(PrunedCellType), 8).EndCellSpecial()
	if !errors.Is(err, ErrInvalidSpecialCell) {
		t.Fatal("short pruned branch created:", err)
	}

	_, err = BeginCell().MustStoreUInt(0x77, 8).EndCellSpecial()
	if !errors.Is(err, ErrInvalidSpecialCell) {
		t.Fatal("unknown special type created:", err)
	}

	lib, err := BeginCell().MustStoreUInt(uint64(LibraryCellType), 8).MustStoreSlice(make([]byte, 32), 256).EndCellSpecial()
	if err != nil {
		t.Fatal(err)
	}
	if lib.GetType() != LibraryCellType || lib.Level() != 0 {
		t.Fatal("incorrect library cell", lib.GetType(), lib.Level())
	}
}

func TestBuilder_Snake(t *testing.T) {
	data := make([]byte, 700)
	for i := range data {
		data[i] = byte(i)
	}

	c := BeginCell().MustStoreUInt(0, 32).MustStoreBinarySnake(data).EndCell()
	if c.BitsSize() != 1016 || c.RefsNum() != 1 {
		t.Fatal("incorrect head cell", c.BitsSize(), c.RefsNum())
	}

	s := c.BeginParse()
	s.MustLoadUInt(32)
	if got := s.MustLoadBinarySnake(); !bytes.Equal(got, data) {
		t.Fatal("snake data not eq")
	}
	if !s.IsEmpty() {
		t.Fatal("snake not consumed")
	}

	if _, err := BeginCell().MustStoreUInt(1, 3).EndCell().BeginParse().LoadBinarySnake(); err == nil {
		t.Fatal("partial byte loaded as snake")
	}
}

func TestBuilder_Copy(t *testing.T) {
	b := BeginCell().MustStoreUInt(0xAB, 8).MustStoreRef(BeginCell().EndCell())
	cp := b.Copy().MustStoreUInt(1, 1)

	if b.BitsUsed() != 8 || cp.BitsUsed() != 9 {
		t.Fatal("copy shares state", b.BitsUsed(), cp.BitsUsed())
	}

	if fmt.Sprint(b.EndCell().BeginParse().MustLoadUInt(8)) != "171" {
		t.Fatal("original changed")
	}
}
