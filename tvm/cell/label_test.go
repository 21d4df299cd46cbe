package cell

import (
	"errors"
	"testing"
)

func alternatingBits(n uint) *BitString {
	bs, _ := MakeBitString(n)
	for i := uint(0); i < n; i += 2 {
		_ = bs.SetBit(i, true)
	}
	return bs
}

func TestLabel_RoundTrip(t *testing.T) {
	kinds := []LabelKind{LabelAuto, LabelShort, LabelLong, LabelSame}

	for _, n := range []uint{0, 1, 2, 3, 7, 8, 31, 32, 63, 64, 255, 267, 1023} {
		for ln := uint(0); ln <= n; ln++ {
			for _, label := range []*BitString{repeatBit(true, ln), repeatBit(false, ln), alternatingBits(ln)} {
				for _, kind := range kinds {
					if _, same := label.IsAllSame(); kind == LabelSame && !same {
						continue
					}

					want := kind
					if want == LabelAuto {
						want = ChooseLabelKind(label, n)
					}

					b := BeginCell()
					err := StoreLabelAs(b, label, n, kind)
					if sz := LabelSize(label, n, kind); sz > maxCellBits {
						if !errors.Is(err, ErrNotFit1023) {
							t.Fatal(n, ln, kind, "oversized label stored, err:", err)
						}
						if b.BitsUsed() != 0 {
							t.Fatal(n, ln, kind, "builder changed on failure")
						}
						continue
					} else if err != nil {
						t.Fatal(n, ln, kind, err)
					} else if b.BitsUsed() != sz {
						t.Fatal(n, ln, kind, "incorrect size", b.BitsUsed(), sz)
					}

					s := b.EndCell().BeginParse()
					got, gotKind, err := LoadLabel(s, n)
					if err != nil {
						t.Fatal(n, ln, kind, err)
					}
					if !got.Equal(label) || gotKind != want {
						t.Fatal(n, ln, kind, "label changed:", got, gotKind)
					}
					if s.BitsLeft() != 0 {
						t.Fatal(n, ln, kind, "bits left after label")
					}
				}
			}
		}
	}
}

func TestLabel_ChooseShortest(t *testing.T) {
	for _, n := range []uint{1, 5, 16, 32, 256} {
		for ln := uint(0); ln <= n; ln++ {
			for _, label := range []*BitString{repeatBit(true, ln), alternatingBits(ln)} {
				best := LabelSize(label, n, LabelAuto)
				for _, kind := range []LabelKind{LabelShort, LabelLong, LabelSame} {
					if _, same := label.IsAllSame(); kind == LabelSame && !same {
						continue
					}
					if sz := LabelSize(label, n, kind); sz < best {
						t.Fatal(n, ln, kind, "shorter encoding exists", sz, best)
					}
				}
			}
		}
	}
}

func TestLabel_SameForZeroKey(t *testing.T) {
	// 32 zero bits: 11, bit 0, then 6 bits of length
	label := repeatBit(false, 32)
	if k := ChooseLabelKind(label, 32); k != LabelSame {
		t.Fatal("incorrect kind", k)
	}

	b := BeginCell()
	if err := StoreLabel(b, label, 32); err != nil {
		t.Fatal(err)
	}
	if b.BitsUsed() != 2+1+6 {
		t.Fatal("incorrect label size", b.BitsUsed())
	}

	s := b.EndCell().BeginParse()
	if s.MustLoadUInt(2) != 0b11 || s.MustLoadBoolBit() || s.MustLoadUInt(6) != 32 {
		t.Fatal("incorrect label bits")
	}
}

func TestLabel_Errors(t *testing.T) {
	// hml_short of 5 bits with only 3 key bits left
	s := BeginCell().MustStoreUInt(0b0111110, 7).MustStoreUInt(0, 5).EndCell().BeginParse()
	if _, _, err := LoadLabel(s, 3); !errors.Is(err, ErrLabelOverflow) {
		t.Fatal("short overflow not detected, err:", err)
	}
	if s.BitsLeft() != 12 {
		t.Fatal("slice moved on error")
	}

	// hml_long of 7 bits, 3 bit length for n = 4
	s = BeginCell().MustStoreUInt(0b10, 2).MustStoreUInt(7, 3).MustStoreUInt(0, 7).EndCell().BeginParse()
	if _, _, err := LoadLabel(s, 4); !errors.Is(err, ErrLabelOverflow) {
		t.Fatal("long overflow not detected, err:", err)
	}

	// hml_same with truncated length
	s = BeginCell().MustStoreUInt(0b110, 3).MustStoreUInt(1, 2).EndCell().BeginParse()
	if _, _, err := LoadLabel(s, 32); !errors.Is(err, ErrUnderrun) {
		t.Fatal("truncated label loaded, err:", err)
	}

	// unary length without terminator
	s = BeginCell().MustStoreUInt(0b0111, 4).EndCell().BeginParse()
	if _, _, err := LoadLabel(s, 8); !errors.Is(err, ErrUnderrun) {
		t.Fatal("unterminated label loaded, err:", err)
	}

	if err := StoreLabel(BeginCell(), repeatBit(true, 9), 8); !errors.Is(err, ErrLabelOverflow) {
		t.Fatal("too long label stored, err:", err)
	}
	if err := StoreLabelAs(BeginCell(), alternatingBits(4), 8, LabelSame); err == nil {
		t.Fatal("mixed bits stored as hml_same")
	}

	n, err := SkipLabel(BeginCell().MustStoreUInt(0b10, 2).MustStoreUInt(3, 4).MustStoreUInt(5, 3).EndCell().BeginParse(), 8)
	if err != nil || n != 3 {
		t.Fatal("incorrect skip", n, err)
	}
}
