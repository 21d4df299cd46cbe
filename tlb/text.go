package tlb

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

const MaxTextChunkSize = 127 - 2

// TextCodec is text$_ chunks:(## 8) rest:(TextChunks chunks) = Text;
// text_chunk$_ {n:#} len:(## 8) data:(bits (len * 8)) next:(TextChunkRef n) = TextChunks (n + 1);
// FirstChunk limits the bytes kept in the first cell when packing.
type TextCodec struct {
	FirstChunk uint8
}

var TextType = TextCodec{FirstChunk: MaxTextChunkSize}

func (TextCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t TextCodec) Skip(s *cell.Slice) error {
	_, _, err := t.load(s)
	return err
}

func (t TextCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	data, chunks, err := t.load(s)
	if err != nil {
		return err
	}

	p.Open("text")
	p.Field("chunks")
	p.Uint(chunks)
	p.Field("value")
	if utf8.Valid(data) {
		p.Value(strconv.Quote(string(data)))
	} else {
		p.Bytes(data)
	}
	p.Close()
	return nil
}

func (TextCodec) String() string {
	return "Text"
}

func (t TextCodec) Unpack(s *cell.Slice) (string, error) {
	data, _, err := t.load(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// load reads the chunks, the slice moves only past the head chunk and its ref.
func (TextCodec) load(s *cell.Slice) ([]byte, uint64, error) {
	var res []byte
	var num uint64

	err := atomic(s, func(s *cell.Slice) error {
		var err error
		if num, err = s.LoadUInt(8); err != nil {
			return fmt.Errorf("failed to load chunks num: %w", err)
		}

		loader := s
		for i := 0; i < int(num); i++ {
			ln, err := loader.LoadUInt(8)
			if err != nil {
				return fmt.Errorf("failed to load len of chunk %d: %w", i, err)
			}

			data, err := loader.LoadSlice(uint(ln * 8))
			if err != nil {
				return fmt.Errorf("failed to load data of chunk %d: %w", i, err)
			}
			res = append(res, data...)

			if i == int(num)-1 {
				if i > 0 {
					if err = loader.EnsureEmpty(); err != nil {
						return fmt.Errorf("after chunk %d: %w", i, err)
					}
				}
				break
			}

			ref, err := loader.LoadRefCell()
			if err != nil {
				return fmt.Errorf("failed to load next chunk of chunk %d: %w", i, err)
			}
			if ref.GetType() == cell.PrunedCellType {
				return fmt.Errorf("%w: chunk %d", cell.ErrPrunedBranch, i+1)
			}
			if i > 0 {
				if err = loader.EnsureEmpty(); err != nil {
					return fmt.Errorf("after chunk %d: %w", i, err)
				}
			}
			loader = ref.BeginParse()
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res, num, nil
}

func (t TextCodec) Pack(b *cell.Builder, v string) error {
	if len(v) == 0 {
		return b.StoreUInt(0, 8)
	}

	if t.FirstChunk > MaxTextChunkSize {
		return fmt.Errorf("too big first chunk size")
	}
	if t.FirstChunk == 0 {
		return fmt.Errorf("first chunk size should be > 0")
	}

	val := []byte(v)
	leftSz := len(val) - int(t.FirstChunk)
	chunksNum := 1
	if leftSz > 0 {
		chunksNum += leftSz / MaxTextChunkSize
		if leftSz%MaxTextChunkSize > 0 {
			chunksNum++
		}
	}

	if chunksNum > 255 {
		return fmt.Errorf("too big data")
	}

	var f func(depth int) *cell.Builder
	f = func(depth int) *cell.Builder {
		c := cell.BeginCell()
		sz := uint8(MaxTextChunkSize)
		if depth == 0 {
			sz = t.FirstChunk
		}
		if int(sz) > len(val) {
			sz = uint8(len(val))
		}

		c.MustStoreUInt(uint64(sz), 8)
		c.MustStoreSlice(val[:sz], uint(sz)*8)
		val = val[sz:]

		if depth != chunksNum-1 {
			c.MustStoreRef(f(depth + 1).EndCell())
		}
		return c
	}

	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreUInt(uint64(chunksNum), 8); err != nil {
			return err
		}
		return b.StoreBuilder(f(0))
	})
}
