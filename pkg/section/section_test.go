package section

import (
	"os"
	"strings"
	"testing"
)

func TestWriteTextAndData(t *testing.T) {
	b := New()
	b.WriteText("movl $%d, %%eax\n", 5)
	b.WriteData(".LC0: .string %q\n", "hi")
	if string(b.text.data) != "movl $5, %eax\n" {
		t.Errorf("text section = %q", b.text.data)
	}
	if !strings.Contains(string(b.data.data), "hi") {
		t.Errorf("data section = %q", b.data.data)
	}
}

func TestBufferGrowsPastInitialCapacity(t *testing.T) {
	buf := newBuffer()
	chunk := strings.Repeat("x", initialCapacity)
	buf.writeString(chunk)
	buf.writeString(chunk)
	if len(buf.data) != 2*initialCapacity {
		t.Errorf("buffer length = %d, want %d", len(buf.data), 2*initialCapacity)
	}
	if cap(buf.data) < len(buf.data) {
		t.Errorf("buffer capacity %d smaller than length %d", cap(buf.data), len(buf.data))
	}
}

func TestFlushToFileSkipsEmptySections(t *testing.T) {
	b := New()
	b.WriteText("ret\n")

	f, err := os.CreateTemp(t.TempDir(), "out-*.S")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	path := f.Name()
	f.Close()

	if err := b.FlushToFile(path); err != nil {
		t.Fatalf("FlushToFile failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(contents)
	if !strings.Contains(out, ".section .text") {
		t.Error("expected .section .text to be present")
	}
	if strings.Contains(out, ".section .data") {
		t.Error("expected .section .data to be omitted when empty")
	}
}

func TestFlushToFileWritesBothSectionsWhenBothNonEmpty(t *testing.T) {
	b := New()
	b.WriteText("ret\n")
	b.WriteData(".LC0: .string \"x\"\n")

	f, err := os.CreateTemp(t.TempDir(), "out-*.S")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	path := f.Name()
	f.Close()

	if err := b.FlushToFile(path); err != nil {
		t.Fatalf("FlushToFile failed: %v", err)
	}
	contents, _ := os.ReadFile(path)
	out := string(contents)
	if !strings.Contains(out, ".section .text") || !strings.Contains(out, ".section .data") {
		t.Errorf("expected both sections present, got %q", out)
	}
	if strings.Index(out, ".section .text") > strings.Index(out, ".section .data") {
		t.Error("expected .text section before .data section")
	}
}
