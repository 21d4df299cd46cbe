package cell

// bit helpers over MSB-first byte buffers, offsets are in bits

func getBit(data []byte, i uint) bool {
	return data[i/8]&(0x80>>(i%8)) != 0
}

func setBit(data []byte, i uint, v bool) {
	if v {
		data[i/8] |= 0x80 >> (i % 8)
	} else {
		data[i/8] &^= 0x80 >> (i % 8)
	}
}

// loadBits reads n <= 64 bits starting from off.
func loadBits(data []byte, off, n uint) uint64 {
	var res uint64
	for n > 0 {
		bitOff := off % 8
		take := 8 - bitOff
		if n < take {
			take = n
		}

		b := data[off/8] << bitOff
		res = res<<take | uint64(b>>(8-take))

		off += take
		n -= take
	}
	return res
}

// storeBits writes the low n <= 64 bits of v starting from off.
func storeBits(data []byte, off uint, v uint64, n uint) {
	for n > 0 {
		bitOff := off % 8
		avail := 8 - bitOff
		take := avail
		if n < take {
			take = n
		}

		lowMask := byte(0xFF) >> (8 - take)
		chunk := byte(v>>(n-take)) & lowMask
		shift := avail - take

		idx := off / 8
		data[idx] = data[idx]&^(lowMask<<shift) | chunk<<shift

		off += take
		n -= take
	}
}

func copyBits(dst []byte, dstOff uint, src []byte, srcOff, n uint) {
	if dstOff%8 == 0 && srcOff%8 == 0 {
		full := n / 8
		copy(dst[dstOff/8:], src[srcOff/8:srcOff/8+full])
		dstOff += full * 8
		srcOff += full * 8
		n -= full * 8
	}

	for n > 0 {
		take := n
		if take > 64 {
			take = 64
		}
		storeBits(dst, dstOff, loadBits(src, srcOff, take), take)
		dstOff += take
		srcOff += take
		n -= take
	}
}

// extractBits returns n bits from off as a new left aligned buffer.
func extractBits(data []byte, off, n uint) []byte {
	res := make([]byte, (n+7)/8)
	copyBits(res, 0, data, off, n)
	return res
}
