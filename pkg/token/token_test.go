package token

import "testing"

func TestKeywordsMapToTypes(t *testing.T) {
	cases := map[string]Type{
		"int":    INT,
		"char":   CHAR,
		"void":   VOID,
		"struct": STRUCT,
		"do":     DO,
		"for":    FOR,
	}
	for lexeme, want := range cases {
		got, ok := Keywords[lexeme]
		if !ok {
			t.Fatalf("Keywords[%q] missing", lexeme)
		}
		if got != want {
			t.Errorf("Keywords[%q] = %v, want %v", lexeme, got, want)
		}
	}
}

func TestTypeStringKnown(t *testing.T) {
	if got := ARROW.String(); got != "->" {
		t.Errorf("ARROW.String() = %q, want \"->\"", got)
	}
}

func TestTypeStringUnknown(t *testing.T) {
	got := Type(9999).String()
	if got == "" {
		t.Errorf("unknown Type.String() returned empty string")
	}
}
