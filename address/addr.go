package address

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/howeyc/crc16"
)

type AddrType int

const (
	NoneAddress AddrType = 0
	ExtAddress  AddrType = 1
	StdAddress  AddrType = 2
	VarAddress  AddrType = 3
)

var ErrInvalidAddress = errors.New("invalid address")

// Anycast is anycast_info: a prefix which replaces the first
// Depth bits of the address when routing.
type Anycast struct {
	Depth         uint
	RewritePrefix []byte
}

type Address struct {
	flags     flags
	addrType  AddrType
	workchain int32
	bitsLen   uint
	data      []byte
	anycast   *Anycast
}

// NewAddress creates std address, flags are in user-friendly form.
func NewAddress(flags byte, workchain byte, data []byte) *Address {
	return &Address{
		flags:     parseFlags(flags),
		addrType:  StdAddress,
		workchain: int32(int8(workchain)),
		bitsLen:   256,
		data:      data,
	}
}

func NewAddressExt(flags byte, bitsLen uint, data []byte) *Address {
	return &Address{
		flags:    parseFlags(flags),
		addrType: ExtAddress,
		bitsLen:  bitsLen,
		data:     data,
	}
}

func NewAddressVar(flags byte, workchain int32, bitsLen uint, data []byte) *Address {
	return &Address{
		flags:     parseFlags(flags),
		addrType:  VarAddress,
		workchain: workchain,
		bitsLen:   bitsLen,
		data:      data,
	}
}

func NewAddressNone() *Address {
	return &Address{
		addrType: NoneAddress,
	}
}

func MustParseAddr(addr string) *Address {
	a, err := ParseAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddr parses user-friendly std address: flags, workchain,
// 32 bytes of account id and crc16 checksum in url safe base64.
func ParseAddr(addr string) (*Address, error) {
	data, err := base64.URLEncoding.DecodeString(addr)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
	}

	if len(data) != 36 {
		return nil, fmt.Errorf("%w: incorrect length %d", ErrInvalidAddress, len(data))
	}

	if data[0]&0b00111111 != 0b00010001 {
		return nil, fmt.Errorf("%w: unknown flags %08b", ErrInvalidAddress, data[0])
	}

	checksum := binary.BigEndian.Uint16(data[34:])
	if crc16.Checksum(data[:34], crc16.CCITTFalseTable) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return NewAddress(data[0], data[1], data[2:34]), nil
}

func MustParseRawAddr(addr string) *Address {
	a, err := ParseRawAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseRawAddr parses workchain:hex form.
func ParseRawAddr(addr string) (*Address, error) {
	wcStr, hexStr, ok := strings.Cut(addr, ":")
	if !ok {
		return nil, fmt.Errorf("%w: no workchain separator", ErrInvalidAddress)
	}

	wc, err := strconv.ParseInt(wcStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: workchain: %v", ErrInvalidAddress, err)
	}

	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if len(data) != 32 || wc < -128 || wc > 127 {
		a := NewAddressVar(0, int32(wc), uint(len(data))*8, data)
		a.flags = flags{bounceable: true}
		return a, nil
	}

	return &Address{
		flags:     flags{bounceable: true},
		addrType:  StdAddress,
		workchain: int32(wc),
		bitsLen:   256,
		data:      data,
	}, nil
}

func (a *Address) String() string {
	switch a.addrType {
	case NoneAddress:
		return "NONE"
	case StdAddress:
		var address [36]byte
		copy(address[:34], a.prepareChecksumData())
		binary.BigEndian.PutUint16(address[34:], a.Checksum())
		return base64.RawURLEncoding.EncodeToString(address[:])
	case ExtAddress:
		return fmt.Sprintf("EXT:%d:%s", a.bitsLen, hex.EncodeToString(a.data))
	case VarAddress:
		return fmt.Sprintf("VAR:%d:%d:%s", a.workchain, a.bitsLen, hex.EncodeToString(a.data))
	}
	return "NOT_SUPPORTED"
}

// StringRaw returns workchain:hex form.
func (a *Address) StringRaw() string {
	return fmt.Sprintf("%d:%s", a.workchain, hex.EncodeToString(a.data))
}

func (a *Address) Dump() string {
	return fmt.Sprintf("human-readable address: %s isBounceable: %t, isTestnetOnly: %t, data.len: %d", a,
		a.IsBounceable(), a.IsTestnetOnly(), len(a.data))
}

func (a *Address) Checksum() uint16 {
	return crc16.Checksum(a.prepareChecksumData(), crc16.CCITTFalseTable)
}

func (a *Address) prepareChecksumData() []byte {
	var data [34]byte
	data[0] = a.FlagsToByte()
	data[1] = byte(a.workchain)
	copy(data[2:], a.data)
	return data[:]
}

func (a *Address) IsAddrNone() bool {
	return a.addrType == NoneAddress
}

func (a *Address) Type() AddrType {
	return a.addrType
}

func (a *Address) Workchain() int32 {
	return a.workchain
}

func (a *Address) BitsLen() uint {
	return a.bitsLen
}

func (a *Address) Data() []byte {
	return a.data
}

func (a *Address) Anycast() *Anycast {
	return a.anycast
}

// WithAnycast returns a copy of the address with anycast info attached.
func (a *Address) WithAnycast(ac *Anycast) *Address {
	cp := *a
	cp.anycast = ac
	return &cp
}

func (a *Address) Copy() *Address {
	cp := *a
	cp.data = append([]byte{}, a.data...)
	return &cp
}
