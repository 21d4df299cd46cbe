package cell

import "math/bits"

// LevelMask marks which of levels 1..3 carry a distinct hash.
type LevelMask struct {
	Mask byte
}

func (m LevelMask) GetLevel() int {
	return bits.Len8(m.Mask)
}

// getHashIndex is the number of significant levels above 0.
func (m LevelMask) getHashIndex() int {
	return bits.OnesCount8(m.Mask)
}

func (m LevelMask) apply(level int) LevelMask {
	return LevelMask{m.Mask & ((1 << level) - 1)}
}

func (m LevelMask) isSignificant(level int) bool {
	return level == 0 || (m.Mask>>(level-1))%2 != 0
}

func (m LevelMask) shiftRight() LevelMask {
	return LevelMask{m.Mask >> 1}
}
