package boc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

var (
	Magic          = []byte{0xB5, 0xEE, 0x9C, 0x72}
	MagicIdx       = []byte{0x68, 0xFF, 0x65, 0xF3}
	MagicIdxCrc32c = []byte{0xAC, 0xC3, 0xA7, 0x28}
)

var (
	ErrInvalidBOC       = errors.New("invalid boc")
	ErrChecksumMismatch = errors.New("boc checksum not matches")
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

type Flags struct {
	HasIndex     bool
	HasCrc32c    bool
	HasCacheBits bool
	// RefSize is the size of a cell index in bytes.
	RefSize int
}

// ParseFlags parses has_idx:1 has_crc32c:1 has_cache_bits:1 flags:2 size:3.
func ParseFlags(data byte) Flags {
	return Flags{
		HasIndex:     data&(1<<7) != 0,
		HasCrc32c:    data&(1<<6) != 0,
		HasCacheBits: data&(1<<5) != 0,
		RefSize:      int(data & 0b111),
	}
}

func (f Flags) Byte() byte {
	b := byte(f.RefSize & 0b111)
	if f.HasIndex {
		b |= 1 << 7
	}
	if f.HasCrc32c {
		b |= 1 << 6
	}
	if f.HasCacheBits {
		b |= 1 << 5
	}
	return b
}

type Header struct {
	Flags
	OffsetSize int

	CellsNum  int
	RootsNum  int
	AbsentNum int
	DataSize  uint64

	Roots []int
	// Index holds end offsets of cells when HasIndex is set.
	Index []uint64
}

// Parse reads the header and verifies the checksum, payload is
// the cells data.
func Parse(data []byte) (*Header, []byte, error) {
	if len(data) < 10 {
		return nil, nil, fmt.Errorf("%w: too short", ErrInvalidBOC)
	}

	r := NewReader(data)
	magic := r.MustReadBytes(4)

	flagsByte := r.MustReadByte()
	h := &Header{}
	switch {
	case bytes.Equal(magic, Magic):
		h.Flags = ParseFlags(flagsByte)
	case bytes.Equal(magic, MagicIdx), bytes.Equal(magic, MagicIdxCrc32c):
		h.Flags = Flags{
			HasIndex:  true,
			HasCrc32c: bytes.Equal(magic, MagicIdxCrc32c),
			RefSize:   int(flagsByte & 0b111),
		}
	default:
		return nil, nil, fmt.Errorf("%w: unknown magic %x", ErrInvalidBOC, magic)
	}

	if h.HasCacheBits && !h.HasIndex {
		return nil, nil, fmt.Errorf("%w: cache bits without index", ErrInvalidBOC)
	}
	if h.RefSize < 1 || h.RefSize > 4 {
		return nil, nil, fmt.Errorf("%w: ref size %d", ErrInvalidBOC, h.RefSize)
	}

	h.OffsetSize = int(r.MustReadByte())
	if h.OffsetSize < 1 || h.OffsetSize > 8 {
		return nil, nil, fmt.Errorf("%w: offset size %d", ErrInvalidBOC, h.OffsetSize)
	}

	if h.HasCrc32c {
		if len(data) < 4 {
			return nil, nil, fmt.Errorf("%w: no checksum", ErrInvalidBOC)
		}
		crc := crc32.Checksum(data[:len(data)-4], crcTable)
		if binary.LittleEndian.Uint32(data[len(data)-4:]) != crc {
			return nil, nil, ErrChecksumMismatch
		}
		r = NewReader(data[6 : len(data)-4])
	}

	var err error
	read := func(sz int) int {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = r.ReadUInt(sz)
		return int(v)
	}

	h.CellsNum = read(h.RefSize)
	h.RootsNum = read(h.RefSize)
	h.AbsentNum = read(h.RefSize)
	dataSize := read(h.OffsetSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrInvalidBOC, err)
	}
	h.DataSize = uint64(dataSize)

	if h.CellsNum <= 0 || h.RootsNum <= 0 || h.RootsNum > h.CellsNum {
		return nil, nil, fmt.Errorf("%w: %d roots of %d cells", ErrInvalidBOC, h.RootsNum, h.CellsNum)
	}
	if h.AbsentNum < 0 || h.AbsentNum > h.CellsNum {
		return nil, nil, fmt.Errorf("%w: absent cells num %d", ErrInvalidBOC, h.AbsentNum)
	}
	if h.DataSize > uint64(h.CellsNum)<<10 {
		return nil, nil, fmt.Errorf("%w: data size %d is too big", ErrInvalidBOC, h.DataSize)
	}

	if bytes.Equal(magic, Magic) {
		h.Roots = make([]int, h.RootsNum)
		for i := range h.Roots {
			h.Roots[i] = read(h.RefSize)
			if err == nil && h.Roots[i] >= h.CellsNum {
				return nil, nil, fmt.Errorf("%w: root index %d", ErrInvalidBOC, h.Roots[i])
			}
		}
	} else {
		if h.RootsNum != 1 {
			return nil, nil, fmt.Errorf("%w: indexed boc should have 1 root", ErrInvalidBOC)
		}
		h.Roots = []int{0}
	}

	if h.HasIndex {
		h.Index = make([]uint64, h.CellsNum)
		for i := range h.Index {
			h.Index[i] = uint64(read(h.OffsetSize))
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrInvalidBOC, err)
	}

	payload, err := r.ReadBytes(int(h.DataSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrInvalidBOC, err)
	}
	return h, payload, nil
}

// Serialize writes the header, payload and checksum if it is enabled.
func (h *Header) Serialize(payload []byte) []byte {
	data := make([]byte, 0, 16+len(payload)+h.RefSize*(len(h.Roots)+len(h.Index)))
	data = append(data, Magic...)
	data = append(data, h.Flags.Byte(), byte(h.OffsetSize))
	data = AppendUInt(data, uint64(h.CellsNum), h.RefSize)
	data = AppendUInt(data, uint64(len(h.Roots)), h.RefSize)
	data = AppendUInt(data, uint64(h.AbsentNum), h.RefSize)
	data = AppendUInt(data, uint64(len(payload)), h.OffsetSize)

	for _, root := range h.Roots {
		data = AppendUInt(data, uint64(root), h.RefSize)
	}
	if h.HasIndex {
		for _, off := range h.Index {
			data = AppendUInt(data, off, h.OffsetSize)
		}
	}
	data = append(data, payload...)

	if h.HasCrc32c {
		data = binary.LittleEndian.AppendUint32(data, crc32.Checksum(data, crcTable))
	}
	return data
}

// BytesFor returns how many bytes are needed to store v, at least 1.
func BytesFor(v uint64) int {
	n := 1
	for v >= 1<<(8*n) && n < 8 {
		n++
	}
	return n
}

// AppendUInt appends v as a big endian number of sz bytes.
func AppendUInt(data []byte, v uint64, sz int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(data, buf[8-sz:]...)
}
