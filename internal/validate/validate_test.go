package validate

import "testing"

func TestLengthBetween(t *testing.T) {
	if !LengthBetween("abcd", 2, 5) {
		t.Fatal("expected true for length between")
	}
	if LengthBetween("a", 2, 5) {
		t.Fatal("expected false for too short")
	}
	if LengthBetween("abcdef", 2, 5) {
		t.Fatal("expected false for too long")
	}
}

func TestIsAlphabet(t *testing.T) {
	if !IsAlphabet("abcXYZ09", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
		t.Fatal("expected alnum to be allowed")
	}
	if IsAlphabet("abc-", "abc") {
		t.Fatal("expected false when char not allowed")
	}
}

func TestMostlyPrintable(t *testing.T) {
	if !MostlyPrintable([]byte("This is where your secret message will be!")) {
		t.Fatal("expected plain text to be printable")
	}
	if !MostlyPrintable([]byte("line one\nline two\ttabbed\n")) {
		t.Fatal("expected whitespace to count as printable")
	}
	if MostlyPrintable([]byte{0xff, 0xfe, 0x00, 0x01}) {
		t.Fatal("expected raw bytes to be non-printable")
	}
	if MostlyPrintable(nil) {
		t.Fatal("expected empty payload to be non-printable")
	}
	// Mostly control characters with a little text sprinkled in.
	mixed := append([]byte("hi"), make([]byte, 30)...)
	if MostlyPrintable(mixed) {
		t.Fatal("expected control-heavy payload to fail the ratio")
	}
}

func TestBlobDetectors(t *testing.T) {
	if !LooksBase64Blob("VGhpcyBpcyBhIGxvbmdlciBzZWNyZXQgbWVzc2FnZQ==") {
		t.Fatal("expected valid base64 blob")
	}
	if LooksBase64Blob("YWJjZA==") { // too short to be interesting
		t.Fatal("expected short base64 to be rejected")
	}
	if LooksBase64Blob("two words here that are not base64 at all!") {
		t.Fatal("expected prose to be rejected")
	}
	if !LooksHexBlob("deadbeefdeadbeef") {
		t.Fatal("expected valid hex blob")
	}
	if LooksHexBlob("abc") { // odd length
		t.Fatal("expected odd-length hex to be invalid")
	}
	if LooksHexBlob("deadbeef") { // below minimum size
		t.Fatal("expected short hex to be rejected")
	}
}

func TestStructuredKind(t *testing.T) {
	if got := StructuredKind(`{"user":"bob","token":"xyz"}`); got != "json" {
		t.Fatalf("expected json, got %q", got)
	}
	if got := StructuredKind("user: bob\ntoken: xyz\n"); got != "yaml" {
		t.Fatalf("expected yaml, got %q", got)
	}
	if got := StructuredKind("- one\n- two\n"); got != "yaml" {
		t.Fatalf("expected yaml sequence, got %q", got)
	}
	if got := StructuredKind("just a plain sentence"); got != "" {
		t.Fatalf("expected plain text, got %q", got)
	}
	// A bare scalar is technically YAML but should not classify as such.
	if got := StructuredKind("hello"); got != "" {
		t.Fatalf("expected bare scalar to stay plain, got %q", got)
	}
}

func TestShannonEntropy(t *testing.T) {
	if got := ShannonEntropy([]byte("aaaaaaaa")); got != 0 {
		t.Fatalf("expected zero entropy for repeated byte, got %f", got)
	}
	uniform := make([]byte, 256)
	for i := range uniform {
		uniform[i] = byte(i)
	}
	if got := ShannonEntropy(uniform); got < 7.99 || got > 8.01 {
		t.Fatalf("expected ~8 bits for uniform bytes, got %f", got)
	}
	if ShannonEntropy([]byte("hello world")) >= ShannonEntropy(uniform) {
		t.Fatal("expected text to have lower entropy than uniform bytes")
	}
}
