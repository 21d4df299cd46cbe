package cell

import (
	"bytes"
	"fmt"
	"strings"
)

const maxCellBits = 1023
const maxCellRefs = 4

// BitString is a bounded bit sequence, bits are stored MSB first.
type BitString struct {
	sz   uint
	data []byte
}

// MakeBitString allocates a zero-filled bit string of the given length.
func MakeBitString(capacity uint) (*BitString, error) {
	if capacity > maxCellBits {
		return nil, ErrCapacityExceeded
	}
	return &BitString{
		sz:   capacity,
		data: make([]byte, (capacity+7)/8),
	}, nil
}

// BitStringFromBytes copies the first sz bits of data.
func BitStringFromBytes(data []byte, sz uint) (*BitString, error) {
	if sz > maxCellBits {
		return nil, ErrCapacityExceeded
	}
	if uint(len(data))*8 < sz {
		return nil, errNotEnoughBits(uint(len(data))*8, sz)
	}
	return &BitString{
		sz:   sz,
		data: extractBits(data, 0, sz),
	}, nil
}

// BitStringFromString parses a string of '0' and '1'.
func BitStringFromString(s string) (*BitString, error) {
	bs, err := MakeBitString(uint(len(s)))
	if err != nil {
		return nil, err
	}
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			setBit(bs.data, uint(i), true)
		default:
			return nil, fmt.Errorf("unexpected symbol %q in bit string", c)
		}
	}
	return bs, nil
}

func MustBitString(s string) *BitString {
	bs, err := BitStringFromString(s)
	if err != nil {
		panic(err)
	}
	return bs
}

// repeatBit builds a string of n equal bits.
func repeatBit(v bool, n uint) *BitString {
	bs := &BitString{sz: n, data: make([]byte, (n+7)/8)}
	if v {
		for i := range bs.data {
			bs.data[i] = 0xFF
		}
		bs.clearTail()
	}
	return bs
}

func (s *BitString) clearTail() {
	if rem := s.sz % 8; rem != 0 {
		s.data[len(s.data)-1] &= 0xFF << (8 - rem)
	}
}

func (s *BitString) Len() uint {
	return s.sz
}

// Bytes returns a copy of the bits, the last byte is zero padded.
func (s *BitString) Bytes() []byte {
	return append([]byte{}, s.data...)
}

func (s *BitString) BitAt(i uint) (bool, error) {
	if i >= s.sz {
		return false, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, s.sz)
	}
	return getBit(s.data, i), nil
}

func (s *BitString) SetBit(i uint, v bool) error {
	if i >= s.sz {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, s.sz)
	}
	setBit(s.data, i, v)
	return nil
}

// Sub returns a copy of bits [offset, offset+ln).
func (s *BitString) Sub(offset, ln uint) (*BitString, error) {
	if offset+ln > s.sz || offset+ln < offset {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, offset, offset+ln, s.sz)
	}
	return &BitString{
		sz:   ln,
		data: extractBits(s.data, offset, ln),
	}, nil
}

// Append returns a new bit string with other's bits after s.
func (s *BitString) Append(other *BitString) (*BitString, error) {
	res, err := MakeBitString(s.sz + other.sz)
	if err != nil {
		return nil, err
	}
	copyBits(res.data, 0, s.data, 0, s.sz)
	copyBits(res.data, s.sz, other.data, 0, other.sz)
	return res, nil
}

// AppendBit returns a new bit string with v added to the end.
func (s *BitString) AppendBit(v bool) (*BitString, error) {
	res, err := MakeBitString(s.sz + 1)
	if err != nil {
		return nil, err
	}
	copyBits(res.data, 0, s.data, 0, s.sz)
	setBit(res.data, s.sz, v)
	return res, nil
}

// IsAllSame reports whether all bits are equal, and the bit value.
// Empty string is reported as all zeros.
func (s *BitString) IsAllSame() (bool, bool) {
	if s.sz == 0 {
		return false, true
	}
	first := getBit(s.data, 0)
	for i := uint(1); i < s.sz; i++ {
		if getBit(s.data, i) != first {
			return false, false
		}
	}
	return first, true
}

func (s *BitString) CommonPrefixLen(other *BitString) uint {
	n := s.sz
	if other.sz < n {
		n = other.sz
	}
	for i := uint(0); i < n; i++ {
		if getBit(s.data, i) != getBit(other.data, i) {
			return i
		}
	}
	return n
}

// HasPrefix reports whether p is a prefix of s.
func (s *BitString) HasPrefix(p *BitString) bool {
	return p.sz <= s.sz && s.CommonPrefixLen(p) == p.sz
}

func (s *BitString) Compare(other *BitString) int {
	n := s.CommonPrefixLen(other)
	switch {
	case n < s.sz && n < other.sz:
		if getBit(s.data, n) {
			return 1
		}
		return -1
	case s.sz < other.sz:
		return -1
	case s.sz > other.sz:
		return 1
	}
	return 0
}

func (s *BitString) Equal(other *BitString) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.sz == other.sz && bytes.Equal(s.data, other.data)
}

func (s *BitString) String() string {
	var sb strings.Builder
	sb.Grow(int(s.sz))
	for i := uint(0); i < s.sz; i++ {
		if getBit(s.data, i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
