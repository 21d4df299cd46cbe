package tlb

import (
	"github.com/cellcodec/cellcodec/address"
	"github.com/cellcodec/cellcodec/tvm/cell"
)

// StateInitType is _ split_depth:(Maybe (## 5)) special:(Maybe TickTock)
// code:(Maybe ^Cell) data:(Maybe ^Cell) library:(HashmapE 256 SimpleLib) = StateInit;
var StateInitType = Struct[StateInit]()

type TickTock struct {
	Tick bool `tlb:"bool"`
	Tock bool `tlb:"bool"`
}

type StateInit struct {
	Depth    *uint64          `tlb:"maybe ## 5"`
	TickTock *TickTock        `tlb:"maybe ."`
	Code     *cell.Cell       `tlb:"maybe ^"`
	Data     *cell.Cell       `tlb:"maybe ^"`
	Lib      *cell.Dictionary `tlb:"dict 256"`
}

// CalcAddress returns the address of an account deployed with this state.
func (s StateInit) CalcAddress(workchain int) (*address.Address, error) {
	c, err := PackCell(StateInitType, s)
	if err != nil {
		return nil, err
	}
	return address.NewAddress(0, byte(workchain), c.Hash()), nil
}
