package tlb

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	registered = map[string]reflect.Type{}
	namedTypes = map[string]TypeBuilder{}
	registryMx sync.RWMutex
)

var magicType = reflect.TypeOf(Magic{})

// TypeBuilder makes a type from the arguments of a type expression.
type TypeBuilder func(args []Arg) (Type, error)

// Arg is an argument of a type expression: a number when Type is nil.
type Arg struct {
	Num  uint64
	Type Type
}

func register(name string, t reflect.Type) {
	if t.Kind() != reflect.Struct || t.NumField() == 0 {
		panic("registered type should be a struct with magic")
	}

	magic := t.Field(0)
	if magic.Type != magicType {
		panic("first field is not magic")
	}

	tag := magic.Tag.Get("tlb")
	if !strings.HasPrefix(tag, "#") && !strings.HasPrefix(tag, "$") {
		panic("invalid magic tag")
	}

	registryMx.Lock()
	registered[name] = t
	registryMx.Unlock()
}

func lookupRegistered(name string) (reflect.Type, bool) {
	registryMx.RLock()
	defer registryMx.RUnlock()
	t, ok := registered[name]
	return t, ok
}

// RegisterWithName makes a struct with magic selectable in interface fields
// and in type expressions by name.
func RegisterWithName(name string, typ any) {
	t := reflect.TypeOf(typ)
	register(name, t)
}

func Register(typ any) {
	t := reflect.TypeOf(typ)
	register(t.Name(), t)
}

// RegisterType adds a named type to type expressions, replacing a previous one.
func RegisterType(name string, b TypeBuilder) {
	registryMx.Lock()
	namedTypes[name] = b
	registryMx.Unlock()
}

func lookupNamed(name string) (TypeBuilder, bool) {
	registryMx.RLock()
	defer registryMx.RUnlock()
	b, ok := namedTypes[name]
	return b, ok
}

// fixed returns a builder of a type without arguments.
func fixed(t Type) TypeBuilder {
	return func(args []Arg) (Type, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s takes no arguments", t)
		}
		return t, nil
	}
}

func (a Arg) String() string {
	if a.Type == nil {
		return fmt.Sprint(a.Num)
	}
	return a.Type.String()
}
