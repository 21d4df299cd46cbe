package boc

import (
	"encoding/binary"
	"fmt"
)

type Reader struct {
	data []byte
}

var ErrNotEnoughData = func(has, need int) error {
	return fmt.Errorf("not enough data in reader, need %d, has %d", need, has)
}

func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
	}
}

func (r *Reader) ReadBytes(num int) ([]byte, error) {
	if num < 0 || len(r.data) < num {
		return nil, ErrNotEnoughData(len(r.data), num)
	}

	return r.MustReadBytes(num), nil
}

func (r *Reader) MustReadBytes(num int) []byte {
	ret := r.data[:num]
	r.data = r.data[num:]
	return ret
}

func (r *Reader) ReadByte() (byte, error) {
	if len(r.data) < 1 {
		return 0, ErrNotEnoughData(len(r.data), 1)
	}

	return r.MustReadByte(), nil
}

func (r *Reader) MustReadByte() byte {
	ret := r.data[0]
	r.data = r.data[1:]
	return ret
}

// ReadUInt reads a big endian number of sz bytes, up to 8.
func (r *Reader) ReadUInt(sz int) (uint64, error) {
	if sz > 8 {
		return 0, fmt.Errorf("too big number size %d", sz)
	}

	data, err := r.ReadBytes(sz)
	if err != nil {
		return 0, err
	}

	var tmp [8]byte
	copy(tmp[8-sz:], data)
	return binary.BigEndian.Uint64(tmp[:]), nil
}

func (r *Reader) LeftLen() int {
	return len(r.data)
}
