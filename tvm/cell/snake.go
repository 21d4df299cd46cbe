package cell

import (
	"fmt"
)

const snakeCellBytes = maxCellBits / 8

func (b *Builder) MustStoreStringSnake(str string) *Builder {
	err := b.StoreStringSnake(str)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreBinarySnake(data []byte) *Builder {
	err := b.StoreBinarySnake(data)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreStringSnake(str string) error {
	return b.StoreBinarySnake([]byte(str))
}

// StoreBinarySnake fills the builder with data and continues
// in a chain of refs, one ref per cell.
func (b *Builder) StoreBinarySnake(data []byte) error {
	if b.done != nil {
		return ErrBuilderFinalized
	}

	space := int(b.BitsLeft() / 8)
	if space > len(data) {
		space = len(data)
	}
	head, rest := data[:space], data[space:]

	// tail cells are built from the end, each one refers to the next
	var next *Cell
	for len(rest) > 0 {
		off := (len(rest) - 1) / snakeCellBytes * snakeCellBytes
		c := BeginCell()
		if err := c.StoreSlice(rest[off:], uint(len(rest)-off)*8); err != nil {
			return err
		}
		if next != nil {
			if err := c.StoreRef(next); err != nil {
				return err
			}
		}

		var err error
		if next, err = c.Finalize(false); err != nil {
			return err
		}
		rest = rest[:off]
	}

	if next != nil && b.RefsLeft() == 0 {
		return ErrTooMuchRefs
	}

	if err := b.StoreSlice(head, uint(len(head))*8); err != nil {
		return err
	}
	if next != nil {
		return b.StoreRef(next)
	}
	return nil
}

func (c *Slice) MustLoadStringSnake() string {
	a, err := c.LoadStringSnake()
	if err != nil {
		panic(err)
	}
	return a
}

func (c *Slice) MustLoadBinarySnake() []byte {
	a, err := c.LoadBinarySnake()
	if err != nil {
		panic(err)
	}
	return a
}

func (c *Slice) LoadStringSnake() (string, error) {
	a, err := c.LoadBinarySnake()
	if err != nil {
		return "", err
	}
	return string(a), nil
}

// LoadBinarySnake reads the rest of the slice and its chain of refs.
func (c *Slice) LoadBinarySnake() ([]byte, error) {
	var data []byte

	tmp := *c
	ref := &tmp
	for ref != nil {
		if ref.BitsLeft()%8 != 0 {
			return nil, fmt.Errorf("snake cell has %d bits, not whole bytes", ref.BitsLeft())
		}

		b, err := ref.LoadSlice(ref.BitsLeft())
		if err != nil {
			return nil, err
		}
		data = append(data, b...)

		if ref.RefsNum() > 1 {
			return nil, fmt.Errorf("more than one ref, it is not snake string")
		}

		if ref.RefsNum() == 1 {
			if ref, err = ref.LoadRef(); err != nil {
				return nil, err
			}
			continue
		}
		ref = nil
	}

	*c = tmp
	return data, nil
}
