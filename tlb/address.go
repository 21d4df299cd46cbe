package tlb

import (
	"fmt"

	"github.com/cellcodec/cellcodec/address"
	"github.com/cellcodec/cellcodec/tvm/cell"
)

// AnycastCodec is anycast_info$_ depth:(#<= 30) { depth >= 1 } rewrite_pfx:(bits depth) = Anycast;
type AnycastCodec struct{}

var AnycastType = AnycastCodec{}

func (AnycastCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (t AnycastCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t AnycastCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	ac, err := t.Unpack(s)
	if err != nil {
		return err
	}
	printAnycast(p, ac)
	return nil
}

func (AnycastCodec) String() string {
	return "Anycast"
}

func (AnycastCodec) Unpack(s *cell.Slice) (*address.Anycast, error) {
	return unpackAtomic(s, func(s *cell.Slice) (*address.Anycast, error) {
		depth, err := s.LoadUIntLeq(30)
		if err != nil {
			return nil, err
		}
		if depth < 1 {
			return nil, fmt.Errorf("%w: anycast depth should be at least 1", cell.ErrRangeViolation)
		}

		pfx, err := s.LoadSlice(uint(depth))
		if err != nil {
			return nil, err
		}
		return &address.Anycast{Depth: uint(depth), RewritePrefix: pfx}, nil
	})
}

func (AnycastCodec) Pack(b *cell.Builder, ac *address.Anycast) error {
	if ac == nil {
		return fmt.Errorf("no value of Anycast")
	}
	if ac.Depth < 1 {
		return fmt.Errorf("%w: anycast depth should be at least 1", cell.ErrRangeViolation)
	}
	return packAtomic(b, func(b *cell.Builder) error {
		if err := b.StoreUIntLeq(30, uint64(ac.Depth)); err != nil {
			return err
		}
		return b.StoreSlice(ac.RewritePrefix, ac.Depth)
	})
}

func printAnycast(p *Printer, ac *address.Anycast) {
	pfx, _ := cell.BitStringFromBytes(ac.RewritePrefix, ac.Depth)
	p.Open("anycast_info")
	p.Field("depth")
	p.Uint(uint64(ac.Depth))
	p.Field("rewrite_pfx")
	p.Bits(pfx)
	p.Close()
}

type addrKind uint8

const (
	addrAny addrKind = iota
	addrInt
	addrExt
)

// AddressCodec is MsgAddressInt, MsgAddressExt or their union MsgAddress.
type AddressCodec struct {
	kind addrKind
}

var (
	// MsgAddressIntType is addr_std$10 or addr_var$11.
	MsgAddressIntType = AddressCodec{kind: addrInt}
	// MsgAddressExtType is addr_none$00 or addr_extern$01.
	MsgAddressExtType = AddressCodec{kind: addrExt}
	// MsgAddressType is _ _:MsgAddressInt = MsgAddress; _ _:MsgAddressExt = MsgAddress;
	MsgAddressType = AddressCodec{kind: addrAny}
)

// CheckTag of MsgAddressInt: 0 addr_std, 1 addr_var; of MsgAddressExt:
// 0 addr_none, 1 addr_extern; of MsgAddress: 0 internal, 1 external.
func (t AddressCodec) CheckTag(s *cell.Slice) int {
	tag, err := s.PreloadUInt(2)
	if err != nil {
		return -1
	}

	isInt := tag&0b10 != 0
	switch t.kind {
	case addrInt:
		if !isInt {
			return -1
		}
		return int(tag & 1)
	case addrExt:
		if isInt {
			return -1
		}
		return int(tag)
	}
	if isInt {
		return 0
	}
	return 1
}

func (t AddressCodec) Skip(s *cell.Slice) error {
	_, err := t.Unpack(s)
	return err
}

func (t AddressCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	a, err := t.Unpack(s)
	if err != nil {
		return err
	}

	data, err := cell.BitStringFromBytes(a.Data(), a.BitsLen())
	if err != nil {
		return err
	}

	switch a.Type() {
	case address.NoneAddress:
		p.Value("addr_none")
		return nil
	case address.ExtAddress:
		p.Open("addr_extern")
		p.Field("len")
		p.Uint(uint64(a.BitsLen()))
		p.Field("external_address")
		p.Bits(data)
		p.Close()
		return nil
	case address.StdAddress:
		p.Open("addr_std")
	default:
		p.Open("addr_var")
	}

	p.Field("anycast")
	if ac := a.Anycast(); ac != nil {
		p.Open("just")
		p.Field("value")
		printAnycast(p, ac)
		p.Close()
	} else {
		p.Value("nothing")
	}

	if a.Type() == address.VarAddress {
		p.Field("addr_len")
		p.Uint(uint64(a.BitsLen()))
	}
	p.Field("workchain_id")
	p.Int(int64(a.Workchain()))
	p.Field("address")
	p.Bits(data)
	p.Close()
	return nil
}

func (t AddressCodec) String() string {
	switch t.kind {
	case addrInt:
		return "MsgAddressInt"
	case addrExt:
		return "MsgAddressExt"
	}
	return "MsgAddress"
}

func (t AddressCodec) Unpack(s *cell.Slice) (*address.Address, error) {
	if t.CheckTag(s) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConstructor, t)
	}
	return s.LoadAddr()
}

// Pack stores the address, nil is stored as addr_none where it is allowed.
func (t AddressCodec) Pack(b *cell.Builder, a *address.Address) error {
	if a == nil {
		a = address.NewAddressNone()
	}

	isInt := a.Type() == address.StdAddress || a.Type() == address.VarAddress
	if t.kind == addrInt && !isInt || t.kind == addrExt && isInt {
		return fmt.Errorf("%w: %s cannot hold %d address", ErrUnknownConstructor, t, a.Type())
	}
	return b.StoreAddr(a)
}
