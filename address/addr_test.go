package address

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

var (
	dataA = []byte{186, 41, 94, 51, 179, 196, 201, 181, 38, 90, 164, 234, 209, 22, 106, 146, 147, 28, 233, 171, 234, 18, 10, 140, 94, 145, 4, 74, 18, 87, 248, 156}
	dataB = []byte{147, 13, 85, 51, 152, 10, 186, 17, 252, 216, 24, 69, 169, 84, 235, 245, 235, 42, 62, 31, 149, 112, 220, 29, 43, 146, 215, 34, 119, 63, 212, 44}
)

func TestAddress_Checksum(t *testing.T) {
	type fields struct {
		flags     flags
		workchain int32
		data      []byte
	}
	tests := []struct {
		name   string
		fields fields
		want   uint16
	}{
		{"1", fields{flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataA}, 11592},
		{"2", fields{flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataB}, 58659},
		{"3", fields{flags: flags{bounceable: false, testnet: false}, workchain: 0, data: dataA}, 28813},
		{"4", fields{flags: flags{bounceable: true, testnet: true}, workchain: 0, data: dataB}, 24233},
		{"5", fields{flags: flags{bounceable: true, testnet: true}, workchain: 1, data: dataB}, 54133},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Address{
				flags:     tt.fields.flags,
				workchain: tt.fields.workchain,
				data:      tt.fields.data,
			}
			if got := a.Checksum(); got != tt.want {
				t.Errorf("Checksum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddress_String(t *testing.T) {
	type fields struct {
		flags     flags
		workchain int32
		data      []byte
	}
	tests := []struct {
		name   string
		fields fields
		want   string
	}{
		{"1", fields{flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataA}, "EQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nC1I"},
		{"2", fields{flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataB}, "EQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULOUj"},
		{"3", fields{flags: flags{bounceable: false, testnet: false}, workchain: 0, data: dataA}, "UQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nHCN"},
		{"4", fields{flags: flags{bounceable: false, testnet: false}, workchain: 0, data: dataB}, "UQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULLjm"},
		{"5", fields{flags: flags{bounceable: true, testnet: true}, workchain: 0, data: dataA}, "kQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nJbC"},
		{"6", fields{flags: flags{bounceable: true, testnet: true}, workchain: 0, data: dataB}, "kQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULF6p"},
		{"7", fields{flags: flags{bounceable: false, testnet: true}, workchain: 0, data: dataA}, "0QC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nMsH"},
		{"8", fields{flags: flags{bounceable: false, testnet: true}, workchain: 0, data: dataB}, "0QCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULANs"},
		{"9", fields{flags: flags{bounceable: false, testnet: true}, workchain: 1, data: dataA}, "0QG6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nEbb"},
		{"10", fields{flags: flags{bounceable: false, testnet: true}, workchain: 1, data: dataB}, "0QGTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULI6w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Address{
				flags:     tt.fields.flags,
				addrType:  StdAddress,
				workchain: tt.fields.workchain,
				bitsLen:   256,
				data:      tt.fields.data,
			}
			if got := a.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}

			parsed, err := ParseAddr(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if parsed.Workchain() != tt.fields.workchain || !bytes.Equal(parsed.Data(), tt.fields.data) ||
				parsed.IsBounceable() != tt.fields.flags.bounceable || parsed.IsTestnetOnly() != tt.fields.flags.testnet {
				t.Errorf("ParseAddr() = %v, fields mismatch", parsed.Dump())
			}
		})
	}
}

func TestAddress_FlagsToByte(t *testing.T) {
	tests := []struct {
		name  string
		flags flags
		want  byte
	}{
		{"bounceable", flags{bounceable: true, testnet: false}, 0b00010001},
		{"non bounceable", flags{bounceable: false, testnet: false}, 0b01010001},
		{"bounceable testnet", flags{bounceable: true, testnet: true}, 0b10010001},
		{"non bounceable testnet", flags{bounceable: false, testnet: true}, 0b11010001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Address{flags: tt.flags}
			if got := a.FlagsToByte(); got != tt.want {
				t.Errorf("FlagsToByte() = %08b, want %08b", got, tt.want)
			}
			if got := parseFlags(tt.want); !reflect.DeepEqual(got, tt.flags) {
				t.Errorf("parseFlags() = %v, want %v", got, tt.flags)
			}
		})
	}
}

func TestAddress_SetFlags(t *testing.T) {
	a := MustParseAddr("EQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nC1I")
	a.SetBounce(false)
	a.SetTestnetOnly(true)

	if a.String() != "0QC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nMsH" {
		t.Fatal("flags not applied", a.String())
	}
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    *Address
		wantErr bool
	}{
		{"1", "EQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nC1I", &Address{addrType: StdAddress, bitsLen: 256, flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataA}, false},
		{"2", "EQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULOUj", &Address{addrType: StdAddress, bitsLen: 256, flags: flags{bounceable: true, testnet: false}, workchain: 0, data: dataB}, false},
		{"err flags", "AQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULOUj", nil, true},
		{"err checksum", "EQCTDVUzmAq6EfzYGEWpVOv16yo-H5Vw3B0rktcidz_ULOUB", nil, true},
		{"err length", "EQCTDVUzmAq6EfzYGEWpVOv16yo", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddr(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAddr() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("ParseAddr() error = %v, should be ErrInvalidAddress", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAddr() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustParseRawAddr(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		workchain int32
		typ       AddrType
	}{
		{"1", "0:1212121212121212121212121212121212121212121212121212121212121212", 0, StdAddress},
		{"2", "-1:1212121212121212121212121212121212121212121212121212121212121212", -1, StdAddress},
		{"3", "127:1212121212121212121212121212121212121212121212121212121212121212", 127, StdAddress},
		{"4", "-127:1212121212121212121212121212121212121212121212121212121212121212", -127, StdAddress},
		{"var", "1000:12121212", 1000, VarAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseRawAddr(tt.args)
			if got.Workchain() != tt.workchain || got.Type() != tt.typ {
				t.Errorf("MustParseRawAddr() = %v:%v, want %v:%v", got.Workchain(), got.Type(), tt.workchain, tt.typ)
			}
			if got.StringRaw() != tt.args {
				t.Errorf("StringRaw() = %v, want %v", got.StringRaw(), tt.args)
			}
		})
	}
}

func TestAddress_WithAnycast(t *testing.T) {
	a := MustParseAddr("EQC6KV4zs8TJtSZapOrRFmqSkxzpq-oSCoxekQRKElf4nC1I")
	b := a.WithAnycast(&Anycast{Depth: 5, RewritePrefix: []byte{0b10101000}})

	if a.Anycast() != nil {
		t.Fatal("original address should stay without anycast")
	}
	if b.Anycast() == nil || b.Anycast().Depth != 5 {
		t.Fatal("anycast not attached")
	}
	if b.String() != a.String() {
		t.Fatal("anycast should not affect user-friendly form")
	}
}

func TestAddress_StringOtherTypes(t *testing.T) {
	if NewAddressNone().String() != "NONE" {
		t.Fatal("bad none address")
	}
	if got := NewAddressExt(0, 16, []byte{0xAB, 0xCD}).String(); got != "EXT:16:abcd" {
		t.Fatal("bad ext address", got)
	}
	if got := NewAddressVar(0, -5, 8, []byte{0x01}).String(); got != "VAR:-5:8:01" {
		t.Fatal("bad var address", got)
	}
	if got := (&Address{addrType: 5}).String(); got != "NOT_SUPPORTED" {
		t.Fatal("bad unknown address", got)
	}
}
