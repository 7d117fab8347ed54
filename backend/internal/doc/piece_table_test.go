package doc

import "testing"

func TestPieceTable_BasicString(t *testing.T) {
	pt := NewPieceTable("Hello world")
	if got := pt.String(); got != "Hello world" {
		t.Fatalf("String() = %q, want %q", got, "Hello world")
	}
	if gotLen := pt.Len(); gotLen != len([]rune("Hello world")) {
		t.Fatalf("Len() = %d, want %d", gotLen, len([]rune("Hello world")))
	}
}

func TestPieceTable_InsertMiddle(t *testing.T) {
	pt := NewPieceTable("Hello world")

	// 在 pos=5 插入 " collaborative"
	if err := pt.ApplyEdit(5, " collaborative", 0); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	want := "Hello collaborative world"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_DeleteMiddle(t *testing.T) {
	pt := NewPieceTable("Hello collaborative world")

	// "Hello collaborative world"
	//  01234 5            18 ...
	//  保留 "Hello"，删掉 " collaborative"（14 个字符）
	if err := pt.ApplyEdit(5, "", 14); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	want := "Hello world"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_Replace(t *testing.T) {
	pt := NewPieceTable("Hello world")

	// 先删 [6,11) 的 "world" 再插入 "there"，等价于一次 replace
	if err := pt.ApplyEdit(6, "there", 5); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	want := "Hello there"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_DeleteAcrossPieces(t *testing.T) {
	pt := NewPieceTable("Hello world")
	if err := pt.ApplyEdit(5, " big", 0); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	// "Hello big world"：删除跨越 orig/add/orig 三个 piece 的区间
	if err := pt.ApplyEdit(4, "", 8); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	want := "Hellrld"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_ClampOutOfRange(t *testing.T) {
	pt := NewPieceTable("abc")

	// 越界的 pos 收敛到末尾，越界的 deleteLen 收敛到剩余长度
	if err := pt.ApplyEdit(100, "!", 0); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if got := pt.String(); got != "abc!" {
		t.Fatalf("String() = %q, want %q", got, "abc!")
	}

	if err := pt.ApplyEdit(1, "", 100); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if got := pt.String(); got != "a" {
		t.Fatalf("String() = %q, want %q", got, "a")
	}

	if err := pt.ApplyEdit(-5, "x", -3); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if got := pt.String(); got != "xa" {
		t.Fatalf("String() = %q, want %q", got, "xa")
	}
}

func TestPieceTable_Unicode(t *testing.T) {
	pt := NewPieceTable("你好世界")
	if got := pt.Len(); got != 4 {
		t.Fatalf("Len() = %d, want %d", got, 4)
	}

	// 偏移按 rune 计，不是字节
	if err := pt.ApplyEdit(2, "，美丽的", 0); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	want := "你好，美丽的世界"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	if err := pt.ApplyEdit(2, "", 4); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if got := pt.String(); got != "你好世界" {
		t.Fatalf("String() = %q, want %q", got, "你好世界")
	}
}
