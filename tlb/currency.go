package tlb

import (
	"fmt"
	"math/big"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

// ExtraCurrenciesType is the dict of extra_currencies$_ dict:(HashmapE 32 (VarUInteger 32)).
var ExtraCurrenciesType = HashmapE[*big.Int](32, VarUInteger(32))

// CurrencyCollectionType is currencies$_ grams:Grams other:ExtraCurrencyCollection = CurrencyCollection;
var CurrencyCollectionType = CurrencyCollectionCodec{}

type CurrencyCollection struct {
	Coins           Coins            `tlb:"."`
	ExtraCurrencies *cell.Dictionary `tlb:"dict 32"`
}

// Validate checks that every extra currency holds exactly one VarUInteger 32.
func (c CurrencyCollection) Validate() error {
	if c.ExtraCurrencies == nil {
		return nil
	}
	if c.ExtraCurrencies.KeySize() != 32 {
		return fmt.Errorf("extra currencies key size is %d, not 32", c.ExtraCurrencies.KeySize())
	}

	for _, kv := range c.ExtraCurrencies.All() {
		s := kv.Value.BeginParse()
		if err := VarUInteger(32).Skip(s); err != nil {
			return fmt.Errorf("extra currency %s: %w", kv.Key.BeginParse().MustLoadBigUInt(32), err)
		}
		if err := s.EnsureEmpty(); err != nil {
			return fmt.Errorf("extra currency %s: %w", kv.Key.BeginParse().MustLoadBigUInt(32), err)
		}
	}
	return nil
}

type CurrencyCollectionCodec struct{}

func (CurrencyCollectionCodec) CheckTag(s *cell.Slice) int {
	return 0
}

func (CurrencyCollectionCodec) Skip(s *cell.Slice) error {
	return atomic(s, func(s *cell.Slice) error {
		if err := GramsType.Skip(s); err != nil {
			return err
		}
		return ExtraCurrenciesType.Skip(s)
	})
}

func (CurrencyCollectionCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	p.Open("currencies")
	p.Field("grams")
	if err := GramsType.PrintSkip(p, s); err != nil {
		return err
	}
	p.Field("other")
	p.Open("extra_currencies")
	p.Field("dict")
	if err := ExtraCurrenciesType.PrintSkip(p, s); err != nil {
		return err
	}
	p.Close()
	p.Close()
	return nil
}

func (CurrencyCollectionCodec) String() string {
	return "CurrencyCollection"
}

func (CurrencyCollectionCodec) Unpack(s *cell.Slice) (CurrencyCollection, error) {
	return unpackAtomic(s, func(s *cell.Slice) (CurrencyCollection, error) {
		var cc CurrencyCollection
		if err := LoadFromCell(&cc, s); err != nil {
			return CurrencyCollection{}, err
		}
		if err := cc.Validate(); err != nil {
			return CurrencyCollection{}, err
		}
		return cc, nil
	})
}

func (CurrencyCollectionCodec) Pack(b *cell.Builder, v CurrencyCollection) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return packAtomic(b, func(b *cell.Builder) error {
		if err := GramsType.Pack(b, v.Coins); err != nil {
			return err
		}
		return b.StoreDict(v.ExtraCurrencies)
	})
}
