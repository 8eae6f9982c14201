// Package types implements the type_flags bitfield, struct descriptor
// registry and the integer-conversion rule from spec.md §3/§4.1.
package types

import (
	"fmt"

	"github.com/samber/lo"
)

// Flags is the 32-bit encoded type of a declaration or expression result.
//
//	bits 0-3:  base tag (Int, Char, Void, Strlit, Struct)
//	bit 8:     function property
//	bit 16:    unsigned qualifier
//	bits 24-31: pointer indirection level
type Flags uint32

const (
	tagMask   Flags = 0x0000000F
	FuncBit   Flags = 1 << 8
	UnsignedBit Flags = 1 << 16
	indShift  = 24
	indMask   Flags = 0xFF << indShift
)

const (
	Int Flags = iota + 1
	Char
	Void
	Strlit
	StructTag
)

// Base returns the base type tag with all other bits stripped.
func (f Flags) Base() Flags { return f & tagMask }

func (f Flags) IsInt() bool    { return f.Base() == Int }
func (f Flags) IsChar() bool   { return f.Base() == Char }
func (f Flags) IsVoid() bool   { return f.Base() == Void }
func (f Flags) IsStrlit() bool { return f.Base() == Strlit }
func (f Flags) IsStruct() bool { return f.Base() == StructTag }

func (f Flags) IsFunc() bool      { return f&FuncBit != 0 }
func (f Flags) IsUnsigned() bool  { return f&UnsignedBit != 0 }
func (f Flags) Indirection() int  { return int((f & indMask) >> indShift) }
func (f Flags) IsPointer() bool   { return f.Indirection() > 0 }

// IsInteger reports whether f is a non-pointer scalar integer (INT or
// CHAR); any pointer type reports false.
func (f Flags) IsInteger() bool {
	return !f.IsPointer() && (f.IsInt() || f.IsChar())
}

// WithIndirection returns f with its pointer indirection level replaced.
func (f Flags) WithIndirection(level int) Flags {
	return (f &^ indMask) | (Flags(level) << indShift)
}

// Deref returns f with indirection decremented by one.
func (f Flags) Deref() Flags { return f.WithIndirection(f.Indirection() - 1) }

// AddrOf returns f with indirection incremented by one.
func (f Flags) AddrOf() Flags { return f.WithIndirection(f.Indirection() + 1) }

// SetUnsigned returns f with the unsigned bit forced to v.
func (f Flags) SetUnsigned(v bool) Flags {
	if v {
		return f | UnsignedBit
	}
	return f &^ UnsignedBit
}

func (f Flags) String() string {
	base := "?"
	switch f.Base() {
	case Int:
		base = "int"
	case Char:
		base = "char"
	case Void:
		base = "void"
	case Strlit:
		base = "strlit"
	case StructTag:
		base = "struct"
	}
	s := base
	if f.IsUnsigned() {
		s = "unsigned " + s
	}
	for i := 0; i < f.Indirection(); i++ {
		s += "*"
	}
	if f.IsFunc() {
		s += "()"
	}
	return s
}

// Size returns the declared-level size in bytes of a type. Pointers of any
// base type are machine word size (4); VOID and STRLIT are 0 at the
// declaration level; struct size is the TotalSize of the extra descriptor
// (0 when extra is nil).
func Size(f Flags, extra *Struct) int {
	if f.IsPointer() {
		return 4
	}
	switch f.Base() {
	case Int:
		return 4
	case Char:
		return 1
	case Void, Strlit:
		return 0
	case StructTag:
		if extra != nil {
			return extra.TotalSize
		}
		return 0
	}
	return 0
}

// Member is one field of a struct descriptor. Extra points at the member's
// own struct descriptor when Type.IsStruct(), so nested member access can
// resolve without a second name lookup.
type Member struct {
	Name   string
	Type   Flags
	Extra  *Struct
	Offset int
}

// Struct is a struct descriptor: name, total aligned size, ordered members.
type Struct struct {
	Name      string
	TotalSize int
	Members   []Member
}

// Member looks up a member by name, returning (member, ok).
func (s *Struct) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Registry is the global name -> struct-descriptor table. A single Registry
// instance is owned by the translation unit (pkg/compiler), matching
// spec.md §5's module-global struct registry lifecycle.
type Registry struct {
	structs map[string]*Struct
}

func NewRegistry() *Registry {
	return &Registry{structs: make(map[string]*Struct)}
}

// MemberSpec is one member declaration as handed to Create by the parser,
// before offsets are computed.
type MemberSpec struct {
	Name  string
	Type  Flags
	Extra *Struct
}

// Create registers a new struct descriptor, laying out members in
// declaration order with each member aligned to its own size, per
// spec.md §3. Returns an error if name is already registered.
func (r *Registry) Create(name string, specs []MemberSpec) (*Struct, error) {
	if _, exists := r.structs[name]; exists {
		return nil, fmt.Errorf("struct %q redefined", name)
	}

	members := lo.Map(specs, func(spec MemberSpec, _ int) Member {
		return Member{Name: spec.Name, Type: spec.Type, Extra: spec.Extra}
	})

	offset := 0
	for i, spec := range specs {
		size := Size(spec.Type, spec.Extra)
		if size == 0 {
			size = 4
		}
		if rem := offset % size; rem != 0 {
			offset += size - rem
		}
		members[i].Offset = offset
		offset += size
	}

	desc := &Struct{Name: name, TotalSize: offset, Members: members}
	r.structs[name] = desc
	return desc, nil
}

// Find looks up a struct descriptor by name.
func (r *Registry) Find(name string) (*Struct, bool) {
	d, ok := r.structs[name]
	return d, ok
}

// GetMember looks up a member within a named struct in one call.
func (r *Registry) GetMember(structName, memberName string) (Member, error) {
	desc, ok := r.Find(structName)
	if !ok {
		return Member{}, fmt.Errorf("struct %q undefined", structName)
	}
	m, ok := desc.Member(memberName)
	if !ok {
		return Member{}, fmt.Errorf("unknown member %q of struct %q", memberName, structName)
	}
	return m, nil
}

// Convert implements the integer-conversion rule from spec.md §4.1: if
// either side is INT the result is INT; if both are CHAR the result is
// CHAR; the unsigned bit is OR'd into the result regardless.
func Convert(lhs, rhs Flags) Flags {
	var base Flags
	if lhs.Base() == Int || rhs.Base() == Int {
		base = Int
	} else {
		base = Char
	}
	result := base
	if lhs.IsUnsigned() || rhs.IsUnsigned() {
		result |= UnsignedBit
	}
	return result
}
