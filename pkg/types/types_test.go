package types

import "testing"

func TestFlagsIndirectionRoundtrip(t *testing.T) {
	f := Int.WithIndirection(2)
	if f.Indirection() != 2 {
		t.Fatalf("Indirection() = %d, want 2", f.Indirection())
	}
	if !f.IsPointer() {
		t.Error("expected IsPointer() true for indirection 2")
	}
	if !f.IsInt() {
		t.Error("expected base tag to remain Int")
	}
}

func TestFlagsDerefAddrOf(t *testing.T) {
	ptr := Int.WithIndirection(1)
	if ptr.Deref().Indirection() != 0 {
		t.Errorf("Deref() indirection = %d, want 0", ptr.Deref().Indirection())
	}
	if ptr.AddrOf().Indirection() != 2 {
		t.Errorf("AddrOf() indirection = %d, want 2", ptr.AddrOf().Indirection())
	}
}

func TestFlagsIsInteger(t *testing.T) {
	if !Int.IsInteger() {
		t.Error("Int should be integer")
	}
	if !Char.IsInteger() {
		t.Error("Char should be integer")
	}
	if Int.WithIndirection(1).IsInteger() {
		t.Error("int* should not be integer")
	}
	if Void.IsInteger() {
		t.Error("Void should not be integer")
	}
}

func TestSizeRules(t *testing.T) {
	cases := []struct {
		name string
		f    Flags
		want int
	}{
		{"int", Int, 4},
		{"char", Char, 1},
		{"void", Void, 0},
		{"strlit", Strlit, 0},
		{"int*", Int.WithIndirection(1), 4},
		{"char*", Char.WithIndirection(1), 4},
	}
	for _, c := range cases {
		if got := Size(c.f, nil); got != c.want {
			t.Errorf("Size(%s) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestConvert(t *testing.T) {
	if got := Convert(Int, Char); got.Base() != Int {
		t.Errorf("Convert(int, char) base = %v, want Int", got.Base())
	}
	if got := Convert(Char, Char); got.Base() != Char {
		t.Errorf("Convert(char, char) base = %v, want Char", got.Base())
	}
	if got := Convert(Int.SetUnsigned(true), Char); !got.IsUnsigned() {
		t.Error("Convert should OR unsigned bit from either side")
	}
}

func TestRegistryCreateAndFind(t *testing.T) {
	r := NewRegistry()
	desc, err := r.Create("point", []MemberSpec{
		{Name: "x", Type: Int},
		{Name: "y", Type: Int},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if desc.TotalSize != 8 {
		t.Errorf("TotalSize = %d, want 8", desc.TotalSize)
	}
	if m, ok := desc.Member("y"); !ok || m.Offset != 4 {
		t.Errorf("member y offset = %+v, want 4", m)
	}

	if _, err := r.Create("point", nil); err == nil {
		t.Error("expected redefinition error")
	}

	if _, ok := r.Find("point"); !ok {
		t.Error("Find(point) should succeed")
	}
}

func TestRegistryMemberAlignment(t *testing.T) {
	r := NewRegistry()
	desc, err := r.Create("mixed", []MemberSpec{
		{Name: "c", Type: Char},
		{Name: "i", Type: Int},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// c at offset 0 (size 1); i must align to 4 -> offset 4, not 1.
	m, _ := desc.Member("i")
	if m.Offset != 4 {
		t.Errorf("aligned member offset = %d, want 4", m.Offset)
	}
	if desc.TotalSize != 8 {
		t.Errorf("TotalSize = %d, want 8", desc.TotalSize)
	}
}

func TestGetMemberErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetMember("missing", "x"); err == nil {
		t.Error("expected error for undefined struct")
	}
	r.Create("s", []MemberSpec{{Name: "a", Type: Int}})
	if _, err := r.GetMember("s", "nope"); err == nil {
		t.Error("expected error for unknown member")
	}
}
