package tlb

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

const tonDecimals = 9

var errInvalidAmount = errors.New("invalid amount")

// Coins is a non negative amount of nanounits, shown with a fixed number
// of decimals. It is serialized as Grams.
type Coins struct {
	decimals int
	val      *big.Int
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// String formats the amount without trailing zeroes, 1500000000 with 9 decimals is 1.5.
func (g Coins) String() string {
	if g.val == nil || g.val.Sign() == 0 {
		return "0"
	}
	if g.decimals == 0 {
		return g.val.String()
	}

	hi, lo := new(big.Int).QuoRem(g.val, pow10(g.decimals), new(big.Int))
	if lo.Sign() == 0 {
		return hi.String()
	}

	frac := lo.String()
	frac = strings.Repeat("0", g.decimals-len(frac)) + frac
	return hi.String() + "." + strings.TrimRight(frac, "0")
}

func (g Coins) Nano() *big.Int {
	if g.val == nil {
		return big.NewInt(0)
	}
	return g.val
}

func MustFromDecimal(val string, decimals int) Coins {
	v, err := FromDecimal(val, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

func MustFromTON(val string) Coins {
	return MustFromDecimal(val, tonDecimals)
}

func MustFromNano(val *big.Int, decimals int) Coins {
	v, err := FromNano(val, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// FromNano takes the amount in nanounits, it should fit Grams.
func FromNano(val *big.Int, decimals int) (Coins, error) {
	if val == nil || val.Sign() < 0 {
		return Coins{}, fmt.Errorf("%w: %v", errInvalidAmount, val)
	}
	if (val.BitLen()+7)>>3 >= 16 {
		return Coins{}, fmt.Errorf("%w: %s does not fit Grams", cell.ErrRangeViolation, val)
	}

	return Coins{
		decimals: decimals,
		val:      new(big.Int).Set(val),
	}, nil
}

func FromTON(val string) (Coins, error) {
	return FromDecimal(val, tonDecimals)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FromDecimal parses "int[.frac]", digits of frac after decimals are dropped.
func FromDecimal(val string, decimals int) (Coins, error) {
	if decimals < 0 || decimals >= 128 {
		return Coins{}, fmt.Errorf("%w: %d decimals", errInvalidAmount, decimals)
	}

	whole, frac, dot := strings.Cut(val, ".")
	if !isDigits(whole) || (dot && !isDigits(frac)) {
		return Coins{}, fmt.Errorf("%w: %q", errInvalidAmount, val)
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	nano, _ := new(big.Int).SetString(whole+frac, 10)
	return FromNano(nano, decimals)
}

func (g *Coins) LoadFromCell(loader *cell.Slice) error {
	c, err := GramsType.Unpack(loader)
	if err != nil {
		return err
	}
	*g = c
	return nil
}

func (g Coins) ToCell() (*cell.Cell, error) {
	return PackCell[Coins](GramsType, g)
}

// MarshalJSON writes nanounits as a string.
func (g Coins) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(g.Nano().String())), nil
}

func (g *Coins) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil || !isDigits(str) {
		return fmt.Errorf("%w: %s", errInvalidAmount, data)
	}

	val, _ := new(big.Int).SetString(str, 10)
	c, err := FromNano(val, tonDecimals)
	if err != nil {
		return err
	}
	*g = c
	return nil
}

// GramsCodec is nanograms$_ amount:(VarUInteger 16) = Grams;
type GramsCodec struct{}

var GramsType = GramsCodec{}

func (GramsCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (GramsCodec) Skip(s *cell.Slice) error {
	return VarUInteger(16).Skip(s)
}

func (GramsCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	p.Open("nanograms")
	p.Field("amount")
	if err := VarUInteger(16).PrintSkip(p, s); err != nil {
		return err
	}
	p.Close()
	return nil
}

func (GramsCodec) String() string {
	return "Grams"
}

func (GramsCodec) Unpack(s *cell.Slice) (Coins, error) {
	v, err := VarUInteger(16).Unpack(s)
	if err != nil {
		return Coins{}, err
	}
	return Coins{decimals: tonDecimals, val: v}, nil
}

func (GramsCodec) Pack(b *cell.Builder, v Coins) error {
	return VarUInteger(16).Pack(b, v.Nano())
}
