package cell

import (
	"errors"
	"fmt"
)

var (
	// ErrUnderrun is returned when fewer bits or refs remain than requested.
	ErrUnderrun = errors.New("not enough data in slice")
	// ErrNoMoreRefs is an underrun on the reference list.
	ErrNoMoreRefs = fmt.Errorf("%w: no more refs exists", ErrUnderrun)

	ErrCapacityExceeded = errors.New("bit string capacity should not exceed 1023 bits")
	ErrCellOverflow     = errors.New("cell overflow")
	ErrOutOfRange       = errors.New("bit index out of range")

	// ErrRangeViolation is returned by range-checked stores and fetches
	// when the value does not satisfy its declared bound.
	ErrRangeViolation = errors.New("value out of range")
	ErrLabelOverflow  = errors.New("label length exceeds remaining key bits")
	ErrTrailingData   = errors.New("slice has unread bits or refs")

	ErrInvalidSpecialCell = errors.New("invalid special cell")
	ErrBuilderFinalized   = errors.New("builder is already finalized")
	ErrRefCannotBeNil     = errors.New("ref cannot be nil")
	ErrTooBigSize         = errors.New("too big size")
	ErrNegative           = errors.New("value should be non negative")
)

// ErrNotFit1023 is the bits flavour of ErrCellOverflow.
var ErrNotFit1023 = fmt.Errorf("%w: cell data size should fit into 1023 bits", ErrCellOverflow)

// ErrTooMuchRefs is the ref flavour of ErrCellOverflow.
var ErrTooMuchRefs = fmt.Errorf("%w: too much refs", ErrCellOverflow)

func errNotEnoughBits(has, need uint) error {
	return fmt.Errorf("%w: need %d bits, has %d", ErrUnderrun, need, has)
}
