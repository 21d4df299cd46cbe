package tlb

import (
	"strings"
	"testing"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

func TestSnakeString_Unpack(t *testing.T) {
	initialValue := "test"
	b := cell.BeginCell()
	err := b.StoreStringSnake(initialValue)
	if err != nil {
		t.Fatal(err)
	}

	str, err := UnpackCell[string](SnakeStringType, b.EndCell())
	if err != nil {
		t.Fatal(err)
	}
	if str != initialValue {
		t.Errorf("expected value %s, got '%s'", initialValue, str)
	}
}

func TestSnakeString_Pack(t *testing.T) {
	initialValue := strings.Repeat("long text ", 40)
	c, err := PackCell[string](SnakeStringType, initialValue)
	if err != nil {
		t.Fatal(err)
	}
	if c.RefsNum() != 1 {
		t.Fatalf("expected continuation ref, got %d refs", c.RefsNum())
	}

	str, err := c.BeginParse().LoadStringSnake()
	if err != nil {
		t.Fatal(err)
	}
	if str != initialValue {
		t.Errorf("expected value %s, got '%s'", initialValue, str)
	}
}

func TestSnakeString_Print(t *testing.T) {
	c := cell.BeginCell().MustStoreStringSnake("hi").EndCell()
	str, err := PrintCell(SnakeStringType, c)
	if err != nil {
		t.Fatal(err)
	}
	if str != `"hi"` {
		t.Fatalf("wrong print: %s", str)
	}

	c = cell.BeginCell().MustStoreUInt(0xFFFE, 16).EndCell()
	str, err = PrintCell(SnakeStringType, c)
	if err != nil {
		t.Fatal(err)
	}
	if str != "x{FFFE}" {
		t.Fatalf("wrong print: %s", str)
	}

	c = cell.BeginCell().MustStoreUInt(1, 3).EndCell()
	if SnakeStringType.CheckTag(c.BeginParse()) != -1 {
		t.Fatal("partial byte should not match")
	}
	if err = SkipCell(SnakeStringType, c); err == nil {
		t.Fatal("partial byte should fail")
	}
}

func TestSnakeString_ComplexStructureSerialization(t *testing.T) {
	type testStruct struct {
		Int32Val  int32      `tlb:"## 32"`
		StringVal *cell.Cell `tlb:"^"`
		Int64Val  int64      `tlb:"## 64"`
	}

	str, err := PackCell[string](SnakeStringType, "hello")
	if err != nil {
		t.Fatal(err)
	}

	s := testStruct{
		Int32Val:  123,
		StringVal: str,
		Int64Val:  456,
	}

	c, err := ToCell(s)
	if err != nil {
		t.Fatal(err)
	}

	var s2 testStruct
	err = LoadFromCell(&s2, c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if s2.Int32Val != s.Int32Val || s2.Int64Val != s.Int64Val {
		t.Errorf("expected %d and %d, got %d and %d", s.Int32Val, s.Int64Val, s2.Int32Val, s2.Int64Val)
	}

	got, err := UnpackCell[string](SnakeStringType, s2.StringVal)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("expected StringVal to be 'hello', got '%s'", got)
	}

	sl := c.BeginParse()
	sl.MustLoadUInt(32)
	out, err := Print(Ref(SnakeStringType), sl)
	if err != nil {
		t.Fatal(err)
	}
	if out != `"hello"` {
		t.Fatalf("wrong print: %s", out)
	}
}
