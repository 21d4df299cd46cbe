package tlb

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cellcodec/cellcodec/address"
	"github.com/cellcodec/cellcodec/tvm/cell"
)

type Magic struct{}

type manualLoader interface {
	LoadFromCell(loader *cell.Slice) error
}

type manualStore interface {
	ToCell() (*cell.Cell, error)
}

var cellType = reflect.TypeOf(&cell.Cell{})

// LoadFromCell fills the struct pointed by v according to its tlb tags:
//
//	## N          integer of N bits, to any int or uint kind when N <= 64, to *big.Int up to 257
//	#< N, #<= N   unsigned integer less than N or not greater than N, in the minimal number of bits
//	unary         Unary number
//	^             the rest of the tag applies to a ref, *cell.Cell takes the ref as is
//	.             inner struct or *cell.Cell with the rest of the slice
//	dict [inline] N    HashmapE N ^Cell, or a non empty Hashmap inline
//	bits N        N bits to []byte
//	bool          one bit
//	var uint N, var int N   VarUInteger N and VarInteger N to *big.Int
//	type EXPR     a value of the type expression (see ParseType) to *cell.Slice
//	addr          MsgAddress to *address.Address
//	maybe         presence bit before the rest of the tag, for pointers, slices and interfaces
//	either X Y    bit 0 selects X and bit 1 selects Y
//	?Field        the field is present only when the bool Field declared before is true
//	[A,B]         interface field holding one of registered structs, selected by magic
//
// A Magic field checks the constructor tag, #HEX or $BIN:
//
//	_ Magic `tlb:"#deadbeef"`
//	_ Magic `tlb:"$1101"`
func LoadFromCell(v any, loader *cell.Slice, skipMagic ...bool) error {
	return loadFromCell(v, loader, false, len(skipMagic) > 0 && skipMagic[0])
}

// LoadFromCellAsProof is LoadFromCell which leaves fields behind pruned refs empty.
func LoadFromCellAsProof(v any, loader *cell.Slice, skipMagic ...bool) error {
	return loadFromCell(v, loader, true, len(skipMagic) > 0 && skipMagic[0])
}

// scalar reads and writes one tagged field value. Values are returned in
// their natural type and converted to the field type by assign.
type scalar struct {
	load  func(s *cell.Slice) (any, error)
	store func(b *cell.Builder, v reflect.Value) error
}

// term is what is left of a tag after maybe and either.
type term struct {
	ref     bool
	nested  bool
	allowed []string
	scalar  *scalar
}

type fieldLayout struct {
	index  int
	name   string
	typ    reflect.Type
	cond   string
	maybe  bool
	either bool
	terms  []term

	isMagic   bool
	magicVal  uint64
	magicBits uint
}

var layouts sync.Map // reflect.Type -> []fieldLayout

func structLayout(t reflect.Type) []fieldLayout {
	if l, ok := layouts.Load(t); ok {
		return l.([]fieldLayout)
	}

	var fields []fieldLayout
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.TrimSpace(f.Tag.Get("tlb"))
		if tag == "-" || tag == "" {
			continue
		}
		fields = append(fields, parseField(t, i, f, strings.Fields(tag)))
	}

	l, _ := layouts.LoadOrStore(t, fields)
	return l.([]fieldLayout)
}

// parseField panics on malformed tags, they are errors in the program, not in data.
func parseField(st reflect.Type, i int, f reflect.StructField, settings []string) fieldLayout {
	fl := fieldLayout{index: i, name: f.Name, typ: f.Type}

	if f.Type == magicType {
		fl.isMagic = true
		fl.magicVal, fl.magicBits = parseMagic(settings[0])
		return fl
	}

	if strings.HasPrefix(settings[0], "?") {
		fl.cond = settings[0][1:]
		if cf, ok := st.FieldByName(fl.cond); !ok || cf.Type.Kind() != reflect.Bool || cf.Index[0] >= i {
			panic(fmt.Sprintf("condition of field '%s' should be a bool field declared before it", f.Name))
		}
		settings = settings[1:]
	}

	if len(settings) > 0 && settings[0] == "maybe" {
		switch f.Type.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice:
		default:
			panic(fmt.Sprintf("maybe flag can only be applied to interface, slice or pointer, field %s", f.Name))
		}
		fl.maybe = true
		settings = settings[1:]
	}

	elem := f.Type
	if elem.Kind() == reflect.Pointer && elem.Elem().Kind() != reflect.Struct {
		// to same process both pointers and types
		elem = elem.Elem()
	}

	if len(settings) > 0 && settings[0] == "either" {
		if len(settings) != 3 {
			panic("either tag should have 2 args")
		}
		fl.either = true
		fl.terms = []term{
			parseTerm(f, elem, settings[1:2]),
			parseTerm(f, elem, settings[2:3]),
		}
		return fl
	}

	fl.terms = []term{parseTerm(f, elem, settings)}
	return fl
}

func parseTerm(f reflect.StructField, elem reflect.Type, settings []string) term {
	var t term
	if len(settings) > 0 && settings[0] == "^" {
		t.ref = true
		settings = settings[1:]
	}

	if f.Type.Kind() == reflect.Interface {
		allowed := strings.Join(settings, "")
		if !strings.HasPrefix(allowed, "[") || !strings.HasSuffix(allowed, "]") {
			panic("corrupted allowed list tag, should be [a,b,c], got " + allowed)
		}
		t.allowed = strings.Split(allowed[1:len(allowed)-1], ",")
		return t
	}

	if len(settings) == 0 || settings[0] == "." {
		t.nested = true
		return t
	}

	t.scalar = parseScalar(f, elem, settings)
	return t
}

func tagNum(settings []string, i int, max uint64) uint64 {
	if len(settings) <= i {
		panic("missing number in tag " + strings.Join(settings, " "))
	}
	n, err := strconv.ParseUint(settings[i], 10, 64)
	if err != nil || n > max {
		panic("corrupted number in tag " + strings.Join(settings, " "))
	}
	return n
}

func parseScalar(f reflect.StructField, elem reflect.Type, settings []string) *scalar {
	switch settings[0] {
	case "##":
		return widthScalar(f, elem, uint(tagNum(settings, 1, 257)))
	case "#<", "#<=":
		var c NatCodec
		if settings[0] == "#<" {
			c = NatLess(tagNum(settings, 1, 1<<32))
		} else {
			c = NatLeq(tagNum(settings, 1, 1<<32))
		}
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return c.Unpack(s)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return c.Pack(b, v.Uint())
			},
		}
	case "unary":
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return UnaryType.Unpack(s)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return UnaryType.Pack(b, uint(v.Uint()))
			},
		}
	case "type":
		t, err := ParseType(strings.Join(settings[1:], " "))
		if err != nil {
			panic(fmt.Sprintf("corrupted type in tag of field '%s': %s", f.Name, err))
		}
		c := Dynamic(t)
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return c.Unpack(s)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return c.Pack(b, v.Interface().(*cell.Slice))
			},
		}
	case "addr":
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadAddr()
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreAddr(v.Interface().(*address.Address))
			},
		}
	case "bool":
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadBoolBit()
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreBoolBit(v.Bool())
			},
		}
	case "bits":
		n := uint(tagNum(settings, 1, 1023))
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadSlice(n)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreSlice(v.Bytes(), n)
			},
		}
	case "dict":
		return dictScalar(settings)
	case "var":
		if len(settings) != 3 {
			panic("var tag should be 'var uint N' or 'var int N'")
		}
		n := uint(tagNum(settings, 2, 33))
		var c Codec[*big.Int]
		switch settings[1] {
		case "uint":
			c = VarUInteger(n)
		case "int":
			c = VarInteger(n)
		default:
			panic("var of type " + settings[1] + " is not supported")
		}
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return c.Unpack(s)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return c.Pack(b, v.Interface().(*big.Int))
			},
		}
	}

	panic(fmt.Sprintf("cannot map field '%s' with tag '%s'", f.Name, strings.Join(settings, " ")))
}

func widthScalar(f reflect.StructField, elem reflect.Type, n uint) *scalar {
	if elem == bigIntType {
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadBigInt(n)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreBigInt(v.Interface().(*big.Int), n)
			},
		}
	}
	if n > 64 {
		panic(fmt.Sprintf("field '%s' of %d bits should be *big.Int", f.Name, n))
	}

	switch elem.Kind() {
	case reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8, reflect.Int:
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadInt(n)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreInt(v.Int(), n)
			},
		}
	case reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8, reflect.Uint:
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadUInt(n)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreUInt(v.Uint(), n)
			},
		}
	}
	panic("unexpected field type for tag ## - " + elem.String())
}

func dictScalar(settings []string) *scalar {
	inline := len(settings) > 1 && settings[1] == "inline"
	if inline {
		settings = settings[1:]
	}
	n := uint(tagNum(settings, 1, 1023))

	if !inline {
		return &scalar{
			load: func(s *cell.Slice) (any, error) {
				return s.LoadDict(n)
			},
			store: func(b *cell.Builder, v reflect.Value) error {
				return b.StoreDict(v.Interface().(*cell.Dictionary))
			},
		}
	}

	return &scalar{
		load: func(s *cell.Slice) (any, error) {
			return s.LoadInlineDict(n)
		},
		store: func(b *cell.Builder, v reflect.Value) error {
			d, _ := v.Interface().(*cell.Dictionary)
			if d == nil || d.IsEmpty() {
				return fmt.Errorf("inline dict cannot be empty")
			}
			root, err := d.ToCell()
			if err != nil {
				return err
			}
			return b.StoreBuilder(root.ToBuilder())
		},
	}
}

// parseMagic returns the tag value and its width.
func parseMagic(tag string) (uint64, uint) {
	var sz, base int
	switch {
	case strings.HasPrefix(tag, "#"):
		base = 16
		sz = (len(tag) - 1) * 4
	case strings.HasPrefix(tag, "$"):
		base = 2
		sz = len(tag) - 1
	default:
		panic("unknown magic value type in tag: " + tag)
	}

	if sz > 64 {
		panic("too big magic value type in tag")
	}

	magic, err := strconv.ParseUint(tag[1:], base, 64)
	if err != nil && sz > 0 {
		panic("corrupted magic value in tag")
	}
	return magic, uint(sz)
}

func checkMagic(tag string, loader *cell.Slice) bool {
	val, sz := parseMagic(tag)
	ldMagic, err := loader.LoadUInt(sz)
	if err != nil {
		return false
	}
	return ldMagic == val
}

// assign sets a loaded value to the field, wrapping or unwrapping a pointer when needed.
func assign(dst, val reflect.Value) {
	t := dst.Type()
	if t.Kind() == reflect.Pointer && val.Kind() != reflect.Pointer {
		p := reflect.New(t.Elem())
		p.Elem().Set(val.Convert(t.Elem()))
		dst.Set(p)
		return
	}
	if t.Kind() != reflect.Pointer && val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	if val.Type() != t {
		val = val.Convert(t)
	}
	dst.Set(val)
}

func loadFromCell(v any, slice *cell.Slice, skipProofBranches, skipMagic bool) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("v should be a pointer and not nil")
	}
	rv = rv.Elem()

	if ld, ok := v.(manualLoader); ok {
		err := ld.LoadFromCell(slice)
		if err != nil {
			return fmt.Errorf("failed to load from cell for %s, using manual loader, err: %w", rv.Type().Name(), err)
		}
		return nil
	}

	for _, fl := range structLayout(rv.Type()) {
		if fl.isMagic {
			// it can be skipped if parsed before in parent type, to determine child type
			if skipMagic {
				continue
			}
			ld, err := slice.LoadUInt(fl.magicBits)
			if err != nil || ld != fl.magicVal {
				return fmt.Errorf("%w: magic is not correct for %s", ErrUnknownConstructor, rv.Type().String())
			}
			continue
		}

		if fl.cond != "" && !rv.FieldByName(fl.cond).Bool() {
			continue
		}

		if fl.maybe {
			has, err := slice.LoadBoolBit()
			if err != nil {
				return fmt.Errorf("failed to load maybe for %s, err: %w", fl.name, err)
			}
			if !has {
				continue
			}
		}

		t := fl.terms[0]
		if fl.either {
			second, err := slice.LoadBoolBit()
			if err != nil {
				return fmt.Errorf("failed to load either for %s, err: %w", fl.name, err)
			}
			if second {
				t = fl.terms[1]
			}
		}

		if err := loadTerm(rv.Field(fl.index), fl, t, slice, skipProofBranches); err != nil {
			return err
		}
	}
	return nil
}

func loadTerm(dst reflect.Value, fl fieldLayout, t term, loader *cell.Slice, skipProofBranches bool) error {
	if t.ref {
		ref, err := loader.LoadRefCell()
		if err != nil {
			return fmt.Errorf("failed to load ref for %s, err: %w", fl.name, err)
		}
		if skipProofBranches && ref.GetType() == cell.PrunedCellType {
			return nil
		}
		loader = ref.BeginParse()
	}

	if t.scalar != nil {
		x, err := t.scalar.load(loader)
		if err != nil {
			return fmt.Errorf("failed to load %s, err: %w", fl.name, err)
		}
		assign(dst, reflect.ValueOf(x))
		return nil
	}

	typ := fl.typ
	if t.allowed != nil {
		var found bool
		for _, name := range t.allowed {
			rt, ok := lookupRegistered(name)
			if !ok {
				panic("unregistered type " + name)
			}
			if checkMagic(rt.Field(0).Tag.Get("tlb"), loader.Copy()) {
				typ, found = rt, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: no allowed type of %s matches", ErrUnknownConstructor, fl.name)
		}
	}

	val, err := structLoad(typ, loader, false, skipProofBranches)
	if err != nil {
		return fmt.Errorf("failed to load struct for %s, err: %w", fl.name, err)
	}
	assign(dst, val)
	return nil
}

// ToCell packs the struct v according to its tlb tags, see LoadFromCell.
func ToCell(v any) (*cell.Cell, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("v should not be nil")
		}
		rv = rv.Elem()
	}

	if ld, ok := v.(manualStore); ok {
		c, err := ld.ToCell()
		if err != nil {
			return nil, fmt.Errorf("failed to store to cell for %s, using manual storer, err: %w", reflect.TypeOf(v).PkgPath(), err)
		}
		return c, nil
	}

	root := cell.BeginCell()
	for _, fl := range structLayout(rv.Type()) {
		if fl.isMagic {
			if err := root.StoreUInt(fl.magicVal, fl.magicBits); err != nil {
				return nil, fmt.Errorf("failed to store magic: %w", err)
			}
			continue
		}

		if fl.cond != "" && !rv.FieldByName(fl.cond).Bool() {
			continue
		}

		fieldVal := rv.Field(fl.index)
		if fl.maybe {
			if err := root.StoreBoolBit(!fieldVal.IsNil()); err != nil {
				return nil, fmt.Errorf("cannot store maybe bit: %w", err)
			}
			if fieldVal.IsNil() {
				continue
			}
		}

		t := fl.terms[0]
		if fl.either {
			// the second alternative is stored only when it is a ref
			second := fl.terms[1].ref
			if err := root.StoreBoolBit(second); err != nil {
				return nil, fmt.Errorf("cannot store either bit: %w", err)
			}
			if second {
				t = fl.terms[1]
			}
		}

		if fl.typ.Kind() == reflect.Pointer && fl.typ.Elem().Kind() != reflect.Struct {
			fieldVal = fieldVal.Elem()
		}

		if err := storeTerm(root, fieldVal, fl, t); err != nil {
			return nil, err
		}
	}

	return root.EndCell(), nil
}

func storeTerm(root *cell.Builder, fieldVal reflect.Value, fl fieldLayout, t term) error {
	builder := root
	if t.ref {
		builder = cell.BeginCell()
	}

	switch {
	case t.scalar != nil:
		if err := t.scalar.store(builder, fieldVal); err != nil {
			return fmt.Errorf("failed to store %s, err: %w", fl.name, err)
		}
	default:
		if t.allowed != nil {
			if fieldVal.IsNil() {
				return fmt.Errorf("no value of %s", fl.name)
			}
			name := fieldVal.Elem().Type().Name()
			found := false
			for _, a := range t.allowed {
				if a == name {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: %s is not allowed in %s", ErrUnknownConstructor, name, fl.name)
			}
		}

		c, err := structStore(fieldVal, fl.name)
		if err != nil {
			return err
		}
		if err = builder.StoreBuilder(c.ToBuilder()); err != nil {
			return fmt.Errorf("failed to store cell to builder for %s, err: %w", fl.name, err)
		}
	}

	if t.ref {
		if err := root.StoreRef(builder.EndCell()); err != nil {
			return fmt.Errorf("failed to store cell to ref for %s, err: %w", fl.name, err)
		}
	}
	return nil
}

func structLoad(field reflect.Type, loader *cell.Slice, skipMagic, skipProofBranches bool) (reflect.Value, error) {
	if cellType == field {
		c, err := loader.ToCell()
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert slice to cell: %w", err)
		}
		return reflect.ValueOf(c), nil
	}

	newTyp := field
	if newTyp.Kind() == reflect.Pointer {
		newTyp = newTyp.Elem()
	}

	nVal := reflect.New(newTyp)
	if err := loadFromCell(nVal.Interface(), loader, skipProofBranches, skipMagic); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to load from cell for %s, err: %w", field.Name(), err)
	}

	if field.Kind() != reflect.Pointer {
		nVal = nVal.Elem()
	}
	return nVal, nil
}

func structStore(field reflect.Value, name string) (*cell.Cell, error) {
	if field.Type() == cellType {
		if field.IsNil() {
			return cell.BeginCell().EndCell(), nil
		}
		return field.Interface().(*cell.Cell), nil
	}

	c, err := ToCell(field.Interface())
	if err != nil {
		return nil, fmt.Errorf("failed to store to cell for %s, err: %w", name, err)
	}
	return c, nil
}
