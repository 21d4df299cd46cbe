package tlb

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"unicode"

	"github.com/cellcodec/cellcodec/address"
	"github.com/cellcodec/cellcodec/tvm/cell"
)

// validator is implemented by records with constraints the tags can't express.
type validator interface {
	Validate() error
}

// structType maps a tagged struct through LoadFromCell and ToCell.
type structType struct {
	typ reflect.Type
}

func (t structType) magic() (string, bool) {
	if t.typ.NumField() == 0 || t.typ.Field(0).Type != magicType {
		return "", false
	}
	return t.typ.Field(0).Tag.Get("tlb"), true
}

func (t structType) CheckTag(s *cell.Slice) int {
	if tag, ok := t.magic(); ok && !checkMagic(tag, s.Copy()) {
		return -1
	}
	return 0
}

func (t structType) Skip(s *cell.Slice) error {
	_, err := t.unpack(s)
	return err
}

func (t structType) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := t.unpack(s)
	if err != nil {
		return err
	}
	printStruct(p, v.Elem())
	return nil
}

func (t structType) String() string {
	return t.typ.Name()
}

// unpack returns a pointer to the loaded struct.
func (t structType) unpack(s *cell.Slice) (reflect.Value, error) {
	v := reflect.New(t.typ)
	err := atomic(s, func(s *cell.Slice) error {
		if err := LoadFromCell(v.Interface(), s); err != nil {
			return err
		}
		if vd, ok := v.Interface().(validator); ok {
			return vd.Validate()
		}
		return nil
	})
	if err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (t structType) pack(b *cell.Builder, v any) error {
	if vd, ok := v.(validator); ok {
		if err := vd.Validate(); err != nil {
			return err
		}
	}

	c, err := ToCell(v)
	if err != nil {
		return err
	}
	return b.StoreBuilder(c.ToBuilder())
}

// StructCodec uses tlb tags of T as its layout.
type StructCodec[T any] struct {
	structType
}

// Struct makes a codec of a tagged struct type T.
func Struct[T any]() StructCodec[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		panic("tlb struct codec needs a struct type")
	}
	return StructCodec[T]{structType{typ: t}}
}

func (t StructCodec[T]) Unpack(s *cell.Slice) (T, error) {
	v, err := t.unpack(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.Elem().Interface().(T), nil
}

func (t StructCodec[T]) Pack(b *cell.Builder, v T) error {
	return t.pack(b, &v)
}

// UnionCodec selects one of registered structs by magic.
type UnionCodec struct {
	name     string
	variants []structType
}

// Union registers variants and returns a type which accepts any of them.
func Union(name string, variants ...any) UnionCodec {
	u := UnionCodec{name: name}
	for _, v := range variants {
		Register(v)
		u.variants = append(u.variants, structType{typ: reflect.TypeOf(v)})
	}
	return u
}

func (t UnionCodec) CheckTag(s *cell.Slice) int {
	for i, v := range t.variants {
		if v.CheckTag(s) == 0 {
			return i
		}
	}
	return -1
}

func (t UnionCodec) variant(s *cell.Slice) (structType, error) {
	i := t.CheckTag(s)
	if i < 0 {
		return structType{}, fmt.Errorf("%w: %s", ErrUnknownConstructor, t.name)
	}
	return t.variants[i], nil
}

func (t UnionCodec) Skip(s *cell.Slice) error {
	v, err := t.variant(s)
	if err != nil {
		return err
	}
	return v.Skip(s)
}

func (t UnionCodec) PrintSkip(p *Printer, s *cell.Slice) error {
	v, err := t.variant(s)
	if err != nil {
		return err
	}
	return v.PrintSkip(p, s)
}

func (t UnionCodec) String() string {
	return t.name
}

// Unpack returns the variant struct by value.
func (t UnionCodec) Unpack(s *cell.Slice) (any, error) {
	v, err := t.variant(s)
	if err != nil {
		return nil, err
	}

	rv, err := v.unpack(s)
	if err != nil {
		return nil, err
	}
	return rv.Elem().Interface(), nil
}

func (t UnionCodec) Pack(b *cell.Builder, v any) error {
	if v == nil {
		return fmt.Errorf("no value of %s", t.name)
	}

	typ := reflect.TypeOf(v)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	for _, vr := range t.variants {
		if vr.typ == typ {
			return vr.pack(b, v)
		}
	}
	return fmt.Errorf("%w: %s is not a variant of %s", ErrUnknownConstructor, typ.Name(), t.name)
}

var (
	bigIntType  = reflect.TypeOf(&big.Int{})
	addressType = reflect.TypeOf(&address.Address{})
	dictType    = reflect.TypeOf(&cell.Dictionary{})
	sliceType   = reflect.TypeOf(&cell.Slice{})
)

func printStruct(p *Printer, v reflect.Value) {
	fields := make([]int, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if f.Type == magicType || !f.IsExported() || f.Tag.Get("tlb") == "-" {
			continue
		}
		fields = append(fields, i)
	}

	name := snakeCase(v.Type().Name())
	if len(fields) == 0 {
		p.Value(name)
		return
	}

	p.Open(name)
	for _, i := range fields {
		p.Field(snakeCase(v.Type().Field(i).Name))
		printField(p, v.Field(i))
	}
	p.Close()
}

func printField(p *Printer, v reflect.Value) {
	switch v.Type() {
	case cellType:
		if v.IsNil() {
			p.Value("nothing")
			return
		}
		p.Raw(v.Interface().(*cell.Cell).BeginParse())
		return
	case sliceType:
		if v.IsNil() {
			p.Value("nothing")
			return
		}
		p.Raw(v.Interface().(*cell.Slice))
		return
	case bigIntType:
		if v.IsNil() {
			p.Value("nothing")
			return
		}
		p.Value(v.Interface().(*big.Int).String())
		return
	case addressType:
		if v.IsNil() {
			p.Value("addr_none")
			return
		}
		p.Value(v.Interface().(*address.Address).StringRaw())
		return
	case dictType:
		printDict(p, v.Interface().(*cell.Dictionary))
		return
	}

	if st, ok := v.Interface().(fmt.Stringer); ok && v.Kind() != reflect.Pointer {
		p.Value(st.String())
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			p.Value("nothing")
			return
		}
		printField(p, v.Elem())
	case reflect.Struct:
		printStruct(p, v)
	case reflect.Bool:
		if v.Bool() {
			p.Value("bool_true")
		} else {
			p.Value("bool_false")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		p.Int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		p.Uint(v.Uint())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			p.Bytes(v.Bytes())
			return
		}
		p.Value(fmt.Sprint(v.Interface()))
	default:
		p.Value(fmt.Sprint(v.Interface()))
	}
}

func printDict(p *Printer, d *cell.Dictionary) {
	if d == nil || d.IsEmpty() {
		p.Value("hme_empty")
		return
	}

	p.Open("hme_root")
	p.Field("root")
	p.Open("hm_edge")
	for _, kv := range d.All() {
		p.Field("key")
		p.Raw(kv.Key.BeginParse())
		p.Field("value")
		p.Raw(kv.Value.BeginParse())
	}
	p.Close()
	p.Close()
}

// snakeCase turns WorkchainID into workchain_id.
func snakeCase(s string) string {
	rs := []rune(s)
	var sb strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || (nextLower && unicode.IsUpper(rs[i-1])) {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
