package tlb

import (
	"strconv"
	"unicode/utf8"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// SnakeStringCodec takes whole bytes of the rest of the slice, continued
// in a chain of single refs.
type SnakeStringCodec struct{}

var SnakeStringType = SnakeStringCodec{}

func (SnakeStringCodec) CheckTag(s *cell.Slice) int {
	if s.BitsLeft()%8 != 0 || s.RefsNum() > 1 {
		return -1
	}
	return 0
}

func (SnakeStringCodec) Skip(s *cell.Slice) error {
	_, err := s.LoadBinarySnake()
	return err
}

// PrintSkip quotes valid UTF-8 text and prints other data as bytes.
func (SnakeStringCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	data, err := s.LoadBinarySnake()
	if err != nil {
		return err
	}

	if utf8.Valid(data) {
		p.Value(strconv.Quote(string(data)))
		return nil
	}
	p.Bytes(data)
	return nil
}

func (SnakeStringCodec) String() string {
	return "SnakeString"
}

func (SnakeStringCodec) Unpack(s *cell.Slice) (string, error) {
	return s.LoadStringSnake()
}

func (SnakeStringCodec) Pack(b *cell.Builder, v string) error {
	return packAtomic(b, func(b *cell.Builder) error {
		return b.StoreStringSnake(v)
	})
}
