package tlb

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// Printer renders values as (constructor field:value ...) trees.
type Printer struct {
	buf strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

func (p *Printer) Open(constructor string) {
	p.buf.WriteByte('(')
	p.buf.WriteString(constructor)
}

func (p *Printer) Field(name string) {
	p.buf.WriteByte(' ')
	p.buf.WriteString(name)
	p.buf.WriteByte(':')
}

func (p *Printer) Close() {
	p.buf.WriteByte(')')
}

// Value writes a literal.
func (p *Printer) Value(v string) {
	p.buf.WriteString(v)
}

func (p *Printer) Uint(v uint64) {
	p.buf.WriteString(strconv.FormatUint(v, 10))
}

func (p *Printer) Int(v int64) {
	p.buf.WriteString(strconv.FormatInt(v, 10))
}

func (p *Printer) Bytes(data []byte) {
	p.buf.WriteString("x{")
	p.buf.WriteString(strings.ToUpper(hex.EncodeToString(data)))
	p.buf.WriteByte('}')
}

// Bits writes x{HEX} with a _ completion tag for incomplete nibbles.
func (p *Printer) Bits(bs *cell.BitString) {
	p.buf.WriteString(bitsLiteral(bs))
}

// Raw writes the bits of s, refs follow as nested literals.
func (p *Printer) Raw(s *cell.Slice) {
	bs, _ := s.PreloadBitString(s.BitsLeft())
	if s.RefsNum() == 0 {
		p.Bits(bs)
		return
	}

	p.buf.WriteByte('(')
	p.Bits(bs)
	rs := s.Copy()
	for rs.RefsNum() > 0 {
		ref, err := rs.LoadRefCell()
		if err != nil {
			break
		}
		p.buf.WriteString(" ^")
		p.Raw(ref.BeginParse())
	}
	p.Close()
}

func (p *Printer) String() string {
	return p.buf.String()
}

func (p *Printer) Reset() {
	p.buf.Reset()
}

func bitsLiteral(bs *cell.BitString) string {
	n := bs.Len()
	data := bs.Bytes()

	digits := strings.ToUpper(hex.EncodeToString(data))
	if n%4 == 0 {
		return "x{" + digits[:n/4] + "}"
	}

	// append the completion tag and pad to a whole nibble
	padded, _ := cell.BitStringFromBytes(append(data, 0), n)
	padded, _ = padded.AppendBit(true)
	for padded.Len()%4 != 0 {
		padded, _ = padded.AppendBit(false)
	}
	digits = strings.ToUpper(hex.EncodeToString(padded.Bytes()))[:padded.Len()/4]
	return "x{" + digits + "_}"
}

// Print renders one value of t from s, the slice is moved past it.
func Print(t Type, s *cell.Slice) (string, error) {
	p := NewPrinter()
	if err := atomic(s, func(s *cell.Slice) error {
		return t.PrintSkip(p, s)
	}); err != nil {
		return "", fmt.Errorf("failed to print %s: %w", t, err)
	}
	return p.String(), nil
}

// PrintCell renders a cell which holds exactly one value of t.
func PrintCell(t Type, c *cell.Cell) (string, error) {
	s := c.BeginParse()
	str, err := Print(t, s)
	if err != nil {
		return "", err
	}
	if err = s.EnsureEmpty(); err != nil {
		return "", fmt.Errorf("after %s: %w", t, err)
	}
	return str, nil
}
