package png

import (
	"errors"
	"testing"
)

func TestChunkTypeFromBytes(t *testing.T) {
	want := [4]byte{82, 117, 83, 116}
	ct, err := ChunkTypeFromBytes(want)
	if err != nil {
		t.Fatalf("ChunkTypeFromBytes: %v", err)
	}
	if ct.Bytes() != want {
		t.Errorf("Bytes() = %v, want %v", ct.Bytes(), want)
	}
	if ct.String() != "RuSt" {
		t.Errorf("String() = %q, want RuSt", ct.String())
	}
}

func TestChunkTypeFromString(t *testing.T) {
	ct, err := ChunkTypeFromString("RuSt")
	if err != nil {
		t.Fatalf("ChunkTypeFromString: %v", err)
	}
	if ct.Bytes() != [4]byte{82, 117, 83, 116} {
		t.Errorf("Bytes() = %v", ct.Bytes())
	}
}

func TestChunkTypeRejectsBadCodes(t *testing.T) {
	bad := []string{"Ru1t", "Ru t", "R\x00St", "RuS", "RuStX", ""}
	for _, code := range bad {
		if _, err := ChunkTypeFromString(code); !errors.Is(err, ErrInvalidTypeCode) {
			t.Errorf("ChunkTypeFromString(%q) err = %v, want ErrInvalidTypeCode", code, err)
		}
	}
	if _, err := ChunkTypeFromBytes([4]byte{'R', 'u', '1', 't'}); !errors.Is(err, ErrInvalidTypeCode) {
		t.Errorf("ChunkTypeFromBytes err = %v, want ErrInvalidTypeCode", err)
	}
}

func TestChunkTypeProperties(t *testing.T) {
	cases := []struct {
		code                                   string
		critical, public, reserved, safeToCopy bool
	}{
		{"RuSt", true, false, true, true},
		{"ruSt", false, false, true, true},
		{"RUSt", true, true, true, true},
		{"Rust", true, false, false, true},
		{"RuST", true, false, true, false},
		{"IHDR", true, true, true, false},
		{"tEXt", false, true, true, true},
	}
	for _, tc := range cases {
		ct, err := ChunkTypeFromString(tc.code)
		if err != nil {
			t.Fatalf("ChunkTypeFromString(%q): %v", tc.code, err)
		}
		if got := ct.IsCritical(); got != tc.critical {
			t.Errorf("%q IsCritical = %v, want %v", tc.code, got, tc.critical)
		}
		if got := ct.IsPublic(); got != tc.public {
			t.Errorf("%q IsPublic = %v, want %v", tc.code, got, tc.public)
		}
		if got := ct.IsReservedBitValid(); got != tc.reserved {
			t.Errorf("%q IsReservedBitValid = %v, want %v", tc.code, got, tc.reserved)
		}
		if got := ct.IsSafeToCopy(); got != tc.safeToCopy {
			t.Errorf("%q IsSafeToCopy = %v, want %v", tc.code, got, tc.safeToCopy)
		}
	}
}

func TestChunkTypeValidity(t *testing.T) {
	valid, err := ChunkTypeFromString("RuSt")
	if err != nil {
		t.Fatalf("ChunkTypeFromString: %v", err)
	}
	if !valid.IsValid() {
		t.Error("RuSt should be valid")
	}

	// A lowercase reserved bit constructs fine but is not valid.
	reserved, err := ChunkTypeFromString("Rust")
	if err != nil {
		t.Fatalf("ChunkTypeFromString(Rust): %v", err)
	}
	if reserved.IsValid() {
		t.Error("Rust has an invalid reserved bit, IsValid should be false")
	}
}

func TestChunkTypeEquality(t *testing.T) {
	a, _ := ChunkTypeFromString("RuSt")
	b, _ := ChunkTypeFromBytes([4]byte{'R', 'u', 'S', 't'})
	if a != b {
		t.Errorf("equal codes compare unequal: %v vs %v", a, b)
	}
	c, _ := ChunkTypeFromString("ruSt")
	if a == c {
		t.Error("RuSt and ruSt should differ")
	}
}
