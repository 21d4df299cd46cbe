package tlb

import (
	"errors"
	"fmt"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

var (
	ErrUnknownConstructor = errors.New("unknown constructor")
	ErrUnknownType        = errors.New("unknown type")
)

// Type describes how a TL-B type is laid out in cells.
// Skip, PrintSkip and Unpack of a Codec consume exactly the same bits and refs.
type Type interface {
	// CheckTag returns the index of the constructor the slice starts with,
	// or -1 when none matches. It never moves the slice.
	CheckTag(s *cell.Slice) int
	// Skip validates the value and advances over it.
	Skip(s *cell.Slice) error
	// PrintSkip is Skip which also renders the value.
	PrintSkip(p *Printer, s *cell.Slice) error
	// String returns the type expression.
	String() string
}

// Codec is a Type with a Go representation R.
type Codec[R any] interface {
	Type
	Unpack(s *cell.Slice) (R, error)
	Pack(b *cell.Builder, v R) error
}

// special is implemented by types which are stored as special cells.
type special interface {
	Special() bool
}

func isSpecial(t Type) bool {
	sp, ok := t.(special)
	return ok && sp.Special()
}

// UnpackCell unpacks the whole cell, data left after the value is an error.
func UnpackCell[R any](t Codec[R], c *cell.Cell) (R, error) {
	var zero R

	s := c.BeginParse()
	v, err := t.Unpack(s)
	if err != nil {
		return zero, err
	}
	if err = s.EnsureEmpty(); err != nil {
		return zero, fmt.Errorf("after %s: %w", t, err)
	}
	return v, nil
}

// PackCell packs v into a new cell.
func PackCell[R any](t Codec[R], v R) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := t.Pack(b, v); err != nil {
		return nil, err
	}
	return b.Finalize(isSpecial(t))
}

// SkipCell validates that the cell holds exactly one value of t.
func SkipCell(t Type, c *cell.Cell) error {
	s := c.BeginParse()
	if err := t.Skip(s); err != nil {
		return err
	}
	if err := s.EnsureEmpty(); err != nil {
		return fmt.Errorf("after %s: %w", t, err)
	}
	return nil
}

// atomic runs fn on a copy of s and commits the cursor only on success.
func atomic(s *cell.Slice, fn func(s *cell.Slice) error) error {
	tmp := s.Copy()
	if err := fn(tmp); err != nil {
		return err
	}
	*s = *tmp
	return nil
}

func unpackAtomic[R any](s *cell.Slice, fn func(s *cell.Slice) (R, error)) (R, error) {
	tmp := s.Copy()
	v, err := fn(tmp)
	if err != nil {
		var zero R
		return zero, err
	}
	*s = *tmp
	return v, nil
}

func packAtomic(b *cell.Builder, fn func(b *cell.Builder) error) error {
	tmp := b.Copy()
	if err := fn(tmp); err != nil {
		return err
	}
	*b = *tmp
	return nil
}

// unpackRef loads a ref and unpacks the whole child cell with t.
func unpackRef[R any](t Codec[R], s *cell.Slice) (R, error) {
	var zero R

	ref, err := s.LoadRefCell()
	if err != nil {
		return zero, err
	}
	if ref.GetType() == cell.PrunedCellType {
		return zero, fmt.Errorf("%w: %s", cell.ErrPrunedBranch, t)
	}
	return UnpackCell(t, ref)
}

func packRef[R any](t Codec[R], b *cell.Builder, v R) error {
	c, err := PackCell(t, v)
	if err != nil {
		return err
	}
	return b.StoreRef(c)
}

// skipRef validates the child cell, pruned branches are taken as is.
func skipRef(t Type, s *cell.Slice) error {
	ref, err := s.LoadRefCell()
	if err != nil {
		return err
	}
	if ref.GetType() == cell.PrunedCellType {
		return nil
	}
	return SkipCell(t, ref)
}

func printRef(t Type, p *Printer, s *cell.Slice) error {
	ref, err := s.LoadRefCell()
	if err != nil {
		return err
	}
	if ref.GetType() == cell.PrunedCellType {
		printPruned(p, ref)
		return nil
	}

	rs := ref.BeginParse()
	if err = t.PrintSkip(p, rs); err != nil {
		return err
	}
	return rs.EnsureEmpty()
}

type dynamic struct {
	t Type
}

// Dynamic erases the Go representation of t: values are the raw slices
// which t spans. It lets types known only at run time be used as parameters.
func Dynamic(t Type) Codec[*cell.Slice] {
	if c, ok := t.(Codec[*cell.Slice]); ok {
		return c
	}
	return dynamic{t: t}
}

func (d dynamic) CheckTag(s *cell.Slice) int {
	return d.t.CheckTag(s)
}

func (d dynamic) Skip(s *cell.Slice) error {
	return d.t.Skip(s)
}

func (d dynamic) PrintSkip(p *Printer, s *cell.Slice) error {
	return d.t.PrintSkip(p, s)
}

func (d dynamic) String() string {
	return d.t.String()
}

func (d dynamic) Special() bool {
	return isSpecial(d.t)
}

func (d dynamic) Unpack(s *cell.Slice) (*cell.Slice, error) {
	return unpackAtomic(s, func(s *cell.Slice) (*cell.Slice, error) {
		start := s.Copy()
		if err := d.t.Skip(s); err != nil {
			return nil, err
		}
		return s.Consumed(start)
	})
}

func (d dynamic) Pack(b *cell.Builder, v *cell.Slice) error {
	if v == nil {
		return fmt.Errorf("no value of %s", d.t)
	}

	// the value must be exactly one t
	probe := v.Copy()
	if err := d.t.Skip(probe); err != nil {
		return err
	}
	if err := probe.EnsureEmpty(); err != nil {
		return fmt.Errorf("value of %s: %w", d.t, err)
	}
	return b.StoreCellSlice(v)
}
