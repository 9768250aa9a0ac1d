package gdbstub

import "testing"

func TestBuffer_WriteRead(t *testing.T) {
	b := NewBuffer(4)
	b.Write('a', 'b', 'c')
	if got := string(b.Read()); got != "abc" {
		t.Fatalf("expected %q; got %q", "abc", got)
	}
	if n := b.ReadAvailable(); n != 3 {
		t.Fatalf("expected 3 available; got %d", n)
	}
}

func TestBuffer_MarkReadAdvancesCursor(t *testing.T) {
	b := NewBuffer(4)
	b.WriteString("hello")
	b.MarkRead(2)
	if got := string(b.Read()); got != "llo" {
		t.Fatalf("expected %q; got %q", "llo", got)
	}
}

func TestBuffer_ClearResetsCursors(t *testing.T) {
	b := NewBuffer(4)
	b.WriteString("hello")
	b.MarkRead(5)
	b.Clear()
	b.WriteString("x")
	if got := string(b.Read()); got != "x" {
		t.Fatalf("expected %q; got %q", "x", got)
	}
}

func TestBuffer_GrowsPastInitialCapacity(t *testing.T) {
	b := NewBuffer(1)
	for i := 0; i < 100; i++ {
		b.Write(byte('a' + i%26))
	}
	if n := b.ReadAvailable(); n != 100 {
		t.Fatalf("expected 100 available; got %d", n)
	}
}

func TestBuffer_CompactsAfterLongDrift(t *testing.T) {
	b := NewBuffer(8)
	for i := 0; i < 5000; i++ {
		b.Write('x')
	}
	b.MarkRead(4500)
	if n := b.ReadAvailable(); n != 500 {
		t.Fatalf("expected 500 available after drift; got %d", n)
	}
	b.Write('y')
	if n := b.ReadAvailable(); n != 501 {
		t.Fatalf("expected 501 available after compact+write; got %d", n)
	}
}
