package tlb

import (
	"fmt"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// MaybeCodec is nothing$0 {X:Type} = Maybe X; just$1 {X:Type} value:X = Maybe X;
// Nothing is unpacked as nil.
type MaybeCodec[R any] struct {
	X Codec[R]
}

func Maybe[R any](x Codec[R]) MaybeCodec[R] {
	return MaybeCodec[R]{X: x}
}

func (t MaybeCodec[R]) CheckTag(s *cell.Slice) int {
	return BoolType.CheckTag(s)
}

func (t MaybeCodec[R]) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		has, err := s.LoadBoolBit()
		if err != nil || !has {
			return err
		}
		return t.X.Skip(s)
	})
}

func (t MaybeCodec[R]) PrintSkip(p *Printer, s *cell.Slice) error {
	has, err := s.LoadBoolBit()
	if err != nil {
		return err
	}
	if !has {
		p.Value("nothing")
		return nil
	}

	p.Open("just")
	p.Field("value")
	if err = t.X.PrintSkip(p, s); err != nil {
		return err
	}
	p.Close()
	return nil
}

func (t MaybeCodec[R]) String() string {
	return "(Maybe " + t.X.String() + ")"
}

func (t MaybeCodec[R]) Unpack(s *cell.Slice) (*R, error) {
	return unpackAtomic(s, func(s *cell.Slice) (*R, error) {
		has, err := s.LoadBoolBit()
		if err != nil || !has {
			return nil, err
		}

		v, err := t.X.Unpack(s)
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
}

func (t MaybeCodec[R]) Pack(b *cell.Builder, v *R) error {
	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreBoolBit(v != nil); err != nil || v == nil {
			return err
		}
		return t.X.Pack(b, *v)
	})
}

// EitherValue holds Left or Right, as selected by IsRight.
type EitherValue[L, R any] struct {
	IsRight bool
	Left    L
	Right   R
}

// EitherCodec is left$0 {X:Type} {Y:Type} value:X = Either X Y;
// right$1 {X:Type} {Y:Type} value:Y = Either X Y;
type EitherCodec[L, R any] struct {
	X Codec[L]
	Y Codec[R]
}

func Either[L, R any](x Codec[L], y Codec[R]) EitherCodec[L, R] {
	return EitherCodec[L, R]{X: x, Y: y}
}

func (t EitherCodec[L, R]) CheckTag(s *cell.Slice) int {
	return BoolType.CheckTag(s)
}

func (t EitherCodec[L, R]) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		right, err := s.LoadBoolBit()
		if err != nil {
			return err
		}
		if right {
			return t.Y.Skip(s)
		}
		return t.X.Skip(s)
	})
}

func (t EitherCodec[L, R]) PrintSkip(p *Printer, s *cell.Slice) error {
	right, err := s.LoadBoolBit()
	if err != nil {
		return err
	}

	if right {
		p.Open("right")
		p.Field("value")
		err = t.Y.PrintSkip(p, s)
	} else {
		p.Open("left")
		p.Field("value")
		err = t.X.PrintSkip(p, s)
	}
	if err != nil {
		return err
	}
	p.Close()
	return nil
}

func (t EitherCodec[L, R]) String() string {
	return fmt.Sprintf("(Either %s %s)", t.X, t.Y)
}

func (t EitherCodec[L, R]) Unpack(s *cell.Slice) (EitherValue[L, R], error) {
	return unpackAtomic(s, func(s *cell.Slice) (EitherValue[L, R], error) {
		var v EitherValue[L, R]

		right, err := s.LoadBoolBit()
		if err != nil {
			return v, err
		}

		v.IsRight = right
		if right {
			v.Right, err = t.Y.Unpack(s)
		} else {
			v.Left, err = t.X.Unpack(s)
		}
		return v, err
	})
}

func (t EitherCodec[L, R]) Pack(b *cell.Builder, v EitherValue[L, R]) error {
	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreBoolBit(v.IsRight); err != nil {
			return err
		}
		if v.IsRight {
			return t.Y.Pack(b, v.Right)
		}
		return t.X.Pack(b, v.Left)
	})
}

// RefCodec is ^X, the value lives alone in a referenced cell.
type RefCodec[R any] struct {
	X Codec[R]
}

func Ref[R any](x Codec[R]) RefCodec[R] {
	return RefCodec[R]{X: x}
}

func (t RefCodec[R]) CheckTag(s *cell.Slice) int {
	if s.RefsNum() == 0 {
		return -1
	}
	return 0
}

func (t RefCodec[R]) Skip(s *cell.Slice) error {
	return skipRef(t.X, s)
}

func (t RefCodec[R]) PrintSkip(p *Printer, s *cell.Slice) error {
	return printRef(t.X, p, s)
}

func (t RefCodec[R]) String() string {
	return "^" + t.X.String()
}

func (t RefCodec[R]) Unpack(s *cell.Slice) (R, error) {
	return unpackRef(t.X, s)
}

func (t RefCodec[R]) Pack(b *cell.Builder, v R) error {
	return packRef(t.X, b, v)
}
