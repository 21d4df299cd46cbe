package cell

import (
	"fmt"
	"math/bits"
)

// LabelKind is the encoding of a hashmap edge label.
type LabelKind uint8

const (
	// LabelAuto lets the encoder pick the shortest form.
	LabelAuto LabelKind = iota
	// LabelShort is hml_short$0: unary length and the bits.
	LabelShort
	// LabelLong is hml_long$10: binary length and the bits.
	LabelLong
	// LabelSame is hml_same$11: one bit repeated len times.
	LabelSame
)

func (k LabelKind) String() string {
	switch k {
	case LabelShort:
		return "hml_short"
	case LabelLong:
		return "hml_long"
	case LabelSame:
		return "hml_same"
	}
	return "auto"
}

// labelLenBits is the width of a binary label length for up to n key bits.
func labelLenBits(n uint) uint {
	return uint(bits.Len(n))
}

// LoadLabel reads an edge label for an edge with n key bits left.
func LoadLabel(s *Slice, n uint) (*BitString, LabelKind, error) {
	tmp := *s
	label, kind, err := tmp.loadLabel(n)
	if err != nil {
		return nil, LabelAuto, err
	}
	*s = tmp
	return label, kind, nil
}

func (c *Slice) loadLabel(n uint) (*BitString, LabelKind, error) {
	first, err := c.LoadBoolBit()
	if err != nil {
		return nil, LabelAuto, err
	}

	if !first {
		// hml_short, unary length then bits
		ln := c.CountLeading(true)
		if ln >= c.BitsLeft() {
			return nil, LabelAuto, errNotEnoughBits(c.BitsLeft(), ln+1)
		}
		if ln > n {
			return nil, LabelAuto, fmt.Errorf("%w: %d > %d", ErrLabelOverflow, ln, n)
		}
		c.bitsSt += ln + 1

		label, err := c.LoadBitString(ln)
		if err != nil {
			return nil, LabelAuto, err
		}
		return label, LabelShort, nil
	}

	same, err := c.LoadBoolBit()
	if err != nil {
		return nil, LabelAuto, err
	}

	if !same {
		ln, err := c.LoadUInt(labelLenBits(n))
		if err != nil {
			return nil, LabelAuto, err
		}
		if uint(ln) > n {
			return nil, LabelAuto, fmt.Errorf("%w: %d > %d", ErrLabelOverflow, ln, n)
		}

		label, err := c.LoadBitString(uint(ln))
		if err != nil {
			return nil, LabelAuto, err
		}
		return label, LabelLong, nil
	}

	v, err := c.LoadBoolBit()
	if err != nil {
		return nil, LabelAuto, err
	}

	ln, err := c.LoadUInt(labelLenBits(n))
	if err != nil {
		return nil, LabelAuto, err
	}
	if uint(ln) > n {
		return nil, LabelAuto, fmt.Errorf("%w: %d > %d", ErrLabelOverflow, ln, n)
	}
	return repeatBit(v, uint(ln)), LabelSame, nil
}

// SkipLabel advances over a label, returning only its length.
func SkipLabel(s *Slice, n uint) (uint, error) {
	label, _, err := LoadLabel(s, n)
	if err != nil {
		return 0, err
	}
	return label.Len(), nil
}

// ChooseLabelKind returns the shortest encoding of label for n key bits.
func ChooseLabelKind(label *BitString, n uint) LabelKind {
	ln := label.Len()
	k := labelLenBits(n)

	if _, same := label.IsAllSame(); same && ln > 1 && k < 2*ln-1 {
		return LabelSame
	}
	if k < ln {
		return LabelLong
	}
	return LabelShort
}

// LabelSize returns the number of bits label takes in the given encoding.
func LabelSize(label *BitString, n uint, kind LabelKind) uint {
	if kind == LabelAuto {
		kind = ChooseLabelKind(label, n)
	}

	switch kind {
	case LabelShort:
		return 2 + 2*label.Len()
	case LabelLong:
		return 2 + labelLenBits(n) + label.Len()
	}
	return 3 + labelLenBits(n)
}

// StoreLabel stores label in its shortest encoding.
func StoreLabel(b *Builder, label *BitString, n uint) error {
	return StoreLabelAs(b, label, n, LabelAuto)
}

// StoreLabelAs stores label with the given encoding. The builder is
// not modified when the label does not fit or cannot be encoded this way.
func StoreLabelAs(b *Builder, label *BitString, n uint, kind LabelKind) error {
	ln := label.Len()
	if ln > n {
		return fmt.Errorf("%w: %d > %d", ErrLabelOverflow, ln, n)
	}

	if kind == LabelAuto {
		kind = ChooseLabelKind(label, n)
	}

	if err := b.checkBits(LabelSize(label, n, kind)); err != nil {
		return err
	}

	k := labelLenBits(n)
	switch kind {
	case LabelShort:
		b.appendBits(0, 1)
		for i := uint(0); i < ln; i++ {
			b.appendBits(1, 1)
		}
		b.appendBits(0, 1)
		copyBits(b.data[:], b.bitsSz, label.data, 0, ln)
		b.bitsSz += ln
	case LabelLong:
		b.appendBits(0b10, 2)
		b.appendBits(uint64(ln), k)
		copyBits(b.data[:], b.bitsSz, label.data, 0, ln)
		b.bitsSz += ln
	case LabelSame:
		v, same := label.IsAllSame()
		if !same {
			return fmt.Errorf("label %s has different bits, cannot be stored as %s", label, kind)
		}
		b.appendBits(0b11, 2)
		if v {
			b.appendBits(1, 1)
		} else {
			b.appendBits(0, 1)
		}
		b.appendBits(uint64(ln), k)
	default:
		return fmt.Errorf("unknown label kind %d", kind)
	}
	return nil
}
