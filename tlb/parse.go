package tlb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

var builtinTypes = map[string]TypeBuilder{
	"Bool":               fixed(BoolType),
	"Unary":              fixed(UnaryType),
	"#":                  fixed(NatType),
	"Bit":                fixed(BitType),
	"Cell":               fixed(AnyType),
	"Any":                fixed(AnyType),
	"Grams":              fixed(GramsType),
	"Coins":              fixed(GramsType),
	"Anycast":            fixed(AnycastType),
	"MsgAddressInt":      fixed(MsgAddressIntType),
	"MsgAddressExt":      fixed(MsgAddressExtType),
	"MsgAddress":         fixed(MsgAddressType),
	"CurrencyCollection": fixed(CurrencyCollectionType),
	"ShardIdent":         fixed(ShardIdentType),
	"FutureSplitMerge":   fixed(FutureSplitMergeType),
	"SnakeString":        fixed(SnakeStringType),
	"Text":               fixed(TextType),
	"StateInit":          fixed(StateInitType),

	"##": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 64)
		if err != nil {
			return nil, err
		}
		return NatWidth(uint(n[0])), nil
	},
	"#<": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 1<<32)
		if err != nil {
			return nil, err
		}
		return NatLess(n[0]), nil
	},
	"#<=": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 1<<32)
		if err != nil {
			return nil, err
		}
		return NatLeq(n[0]), nil
	},
	"int": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 257)
		if err != nil {
			return nil, err
		}
		return Int(uint(n[0])), nil
	},
	"uint": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 256)
		if err != nil {
			return nil, err
		}
		return UInt(uint(n[0])), nil
	},
	"bits": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 1023)
		if err != nil {
			return nil, err
		}
		return Bits(uint(n[0])), nil
	},
	"VarUInteger": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 33)
		if err != nil {
			return nil, err
		}
		return VarUInteger(uint(n[0])), nil
	},
	"VarInteger": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 33)
		if err != nil {
			return nil, err
		}
		return VarInteger(uint(n[0])), nil
	},
	"HmLabel": func(args []Arg) (Type, error) {
		n, err := numArgs(args, 1023)
		if err != nil {
			return nil, err
		}
		return HmLabel(uint(n[0])), nil
	},
	"Maybe": func(args []Arg) (Type, error) {
		ts, err := typeArgs(args, 1)
		if err != nil {
			return nil, err
		}
		return Maybe(Dynamic(ts[0])), nil
	},
	"Either": func(args []Arg) (Type, error) {
		ts, err := typeArgs(args, 2)
		if err != nil {
			return nil, err
		}
		return Either(Dynamic(ts[0]), Dynamic(ts[1])), nil
	},
	"BinTree": func(args []Arg) (Type, error) {
		ts, err := typeArgs(args, 1)
		if err != nil {
			return nil, err
		}
		return BinTreeOf(Dynamic(ts[0])), nil
	},
	"HashmapNode": func(args []Arg) (Type, error) {
		n, x, err := mapArgs(args)
		if err != nil {
			return nil, err
		}
		return HashmapNode(n, x), nil
	},
	"Hashmap":     mapBuilder(Hashmap[*cell.Slice]),
	"HashmapE":    mapBuilder(HashmapE[*cell.Slice]),
	"VarHashmap":  mapBuilder(VarHashmap[*cell.Slice]),
	"VarHashmapE": mapBuilder(VarHashmapE[*cell.Slice]),
	"PfxHashmap":  mapBuilder(PfxHashmap[*cell.Slice]),
	"PfxHashmapE": mapBuilder(PfxHashmapE[*cell.Slice]),
	"HashmapAug":  augBuilder(false),
	"HashmapAugE": augBuilder(true),
	"HASH_UPDATE": hashUpdate,
	"HashUpdate":  hashUpdate,
	"MERKLE_PROOF": func(args []Arg) (Type, error) {
		ts, err := typeArgs(args, 1)
		if err != nil {
			return nil, err
		}
		return MerkleProofOf(Dynamic(ts[0])), nil
	},
	"MERKLE_UPDATE": func(args []Arg) (Type, error) {
		ts, err := typeArgs(args, 1)
		if err != nil {
			return nil, err
		}
		return MerkleUpdateOf(Dynamic(ts[0])), nil
	},
}

func hashUpdate(args []Arg) (Type, error) {
	if _, err := typeArgs(args, 1); err != nil {
		return nil, err
	}
	return HashUpdateType, nil
}

func mapBuilder(mk func(n uint, x Codec[*cell.Slice]) HashmapType[*cell.Slice]) TypeBuilder {
	return func(args []Arg) (Type, error) {
		n, x, err := mapArgs(args)
		if err != nil {
			return nil, err
		}
		return mk(n, x), nil
	}
}

// augBuilder makes maps without an extra fold, they can be read but built only from a parsed trie.
func augBuilder(e bool) TypeBuilder {
	return func(args []Arg) (Type, error) {
		if len(args) != 3 || args[0].Type != nil || args[1].Type == nil || args[2].Type == nil {
			return nil, fmt.Errorf("expected key size, value and extra types, got %d arguments", len(args))
		}
		if args[0].Num > 1023 {
			return nil, fmt.Errorf("key size %d is too big", args[0].Num)
		}
		if e {
			return HashmapAugE(uint(args[0].Num), Dynamic(args[1].Type), args[2].Type, nil), nil
		}
		return HashmapAug(uint(args[0].Num), Dynamic(args[1].Type), args[2].Type, nil), nil
	}
}

func mapArgs(args []Arg) (uint, Codec[*cell.Slice], error) {
	if len(args) != 2 || args[0].Type != nil || args[1].Type == nil {
		return 0, nil, fmt.Errorf("expected key size and value type, got %d arguments", len(args))
	}
	if args[0].Num > 1023 {
		return 0, nil, fmt.Errorf("key size %d is too big", args[0].Num)
	}
	return uint(args[0].Num), Dynamic(args[1].Type), nil
}

func numArgs(args []Arg, max uint64) ([]uint64, error) {
	if len(args) != 1 || args[0].Type != nil {
		return nil, fmt.Errorf("expected one number, got %d arguments", len(args))
	}
	if args[0].Num > max {
		return nil, fmt.Errorf("%d is more than %d", args[0].Num, max)
	}
	return []uint64{args[0].Num}, nil
}

func typeArgs(args []Arg, n int) ([]Type, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d type arguments, got %d", n, len(args))
	}
	ts := make([]Type, n)
	for i, a := range args {
		if a.Type == nil {
			return nil, fmt.Errorf("argument %d should be a type, got %d", i+1, a.Num)
		}
		ts[i] = a.Type
	}
	return ts, nil
}

// ParseType resolves a type expression like "HashmapE 32 (VarUInteger 32)".
// Names are looked up in the built in types, then in RegisterType and
// then in registered structs. Parameters are used through Dynamic.
func ParseType(expr string) (Type, error) {
	p := &typeParser{toks: tokenize(expr)}
	if len(p.toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrUnknownType)
	}

	t, err := p.application()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrUnknownType, p.toks[p.pos], expr)
	}
	return t, nil
}

// MustParseType is ParseType for static expressions.
func MustParseType(expr string) Type {
	t, err := ParseType(expr)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	toks []string
	pos  int
}

func tokenize(expr string) []string {
	var toks []string
	start := -1
	flush := func(i int) {
		if start >= 0 {
			toks = append(toks, expr[start:i])
			start = -1
		}
	}

	for i, r := range expr {
		switch {
		case r == '(' || r == ')' || r == '^':
			flush(i)
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n':
			flush(i)
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(expr))
	return toks
}

func (p *typeParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

// application is a name with its arguments, or a single atom.
func (p *typeParser) application() (Type, error) {
	if tok := p.peek(); tok == "(" || tok == "^" {
		return p.atom()
	}
	name := p.next()

	var args []Arg
	for {
		switch tok := p.peek(); {
		case tok == "" || tok == ")":
			return resolve(name, args)
		case isNumber(tok):
			n, err := strconv.ParseUint(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrUnknownType, tok)
			}
			p.pos++
			args = append(args, Arg{Num: n})
		default:
			t, err := p.atom()
			if err != nil {
				return nil, err
			}
			args = append(args, Arg{Type: t})
		}
	}
}

// atom is a parenthesized expression, a ref or a name without arguments.
func (p *typeParser) atom() (Type, error) {
	switch tok := p.next(); tok {
	case "":
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrUnknownType)
	case "(":
		t, err := p.application()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("%w: missing )", ErrUnknownType)
		}
		return t, nil
	case ")":
		return nil, fmt.Errorf("%w: unexpected )", ErrUnknownType)
	case "^":
		t, err := p.atom()
		if err != nil {
			return nil, err
		}
		if t == AnyType {
			return CellRefType, nil
		}
		return Ref(Dynamic(t)), nil
	default:
		return resolve(tok, nil)
	}
}

func resolve(name string, args []Arg) (Type, error) {
	if t, ok := sizedName(name); ok {
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: %s takes no arguments", ErrUnknownType, name)
		}
		return t, nil
	}

	b, ok := builtinTypes[name]
	if !ok {
		b, ok = lookupNamed(name)
	}
	if !ok {
		if st, found := lookupRegistered(name); found {
			b, ok = fixed(structType{typ: st}), true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}

	t, err := b(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownType, name, err)
	}
	return t, nil
}

// sizedName resolves int32, uint64, bits256 and similar.
func sizedName(name string) (Type, bool) {
	for _, pfx := range []string{"uint", "int", "bits"} {
		if !strings.HasPrefix(name, pfx) || len(name) == len(pfx) || !isNumber(name[len(pfx):]) {
			continue
		}

		n, err := strconv.ParseUint(name[len(pfx):], 10, 16)
		if err != nil {
			return nil, false
		}
		t, err := builtinTypes[pfx]([]Arg{{Num: n}})
		if err != nil {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
