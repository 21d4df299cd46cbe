package address

// bit positions count from the least significant bit

func setBit(n *byte, pos uint) {
	*n |= 1 << pos
}

func hasBit(n byte, pos uint) bool {
	val := n & (1 << pos)
	return val > 0
}
