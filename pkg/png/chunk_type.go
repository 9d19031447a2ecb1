package png

import "fmt"

// ChunkType is a 4-byte chunk type code such as "IHDR" or "ruSt". The case
// of each byte (bit 5) encodes a property: critical, public, reserved,
// safe-to-copy. ChunkType is comparable, so codes can be compared with ==
// and used as map keys.
type ChunkType [4]byte

// ChunkTypeFromBytes builds a ChunkType from raw bytes. Every byte must be
// ASCII alphabetic; codes with an invalid reserved bit are still
// constructible (IsValid reports false for them).
func ChunkTypeFromBytes(b [4]byte) (ChunkType, error) {
	for _, c := range b {
		if !isAlpha(c) {
			return ChunkType{}, fmt.Errorf("%w: byte %q is not alphabetic", ErrInvalidTypeCode, c)
		}
	}
	return ChunkType(b), nil
}

// ChunkTypeFromString builds a ChunkType from a 4-character string.
func ChunkTypeFromString(s string) (ChunkType, error) {
	if len(s) != 4 {
		return ChunkType{}, fmt.Errorf("%w: %q is %d bytes, want 4", ErrInvalidTypeCode, s, len(s))
	}
	var b [4]byte
	copy(b[:], s)
	return ChunkTypeFromBytes(b)
}

// Bytes returns the raw 4-byte code.
func (t ChunkType) Bytes() [4]byte { return [4]byte(t) }

func (t ChunkType) String() string { return string(t[:]) }

// IsCritical reports whether the chunk is critical to displaying the image
// (first byte uppercase).
func (t ChunkType) IsCritical() bool { return t[0]&0x20 == 0 }

// IsPublic reports whether the code belongs to the public registry
// (second byte uppercase).
func (t ChunkType) IsPublic() bool { return t[1]&0x20 == 0 }

// IsReservedBitValid reports whether the reserved bit conforms to the
// current standard (third byte uppercase).
func (t ChunkType) IsReservedBitValid() bool { return t[2]&0x20 == 0 }

// IsSafeToCopy reports whether editors may copy the chunk blindly when the
// image data changes (fourth byte lowercase).
func (t ChunkType) IsSafeToCopy() bool { return t[3]&0x20 != 0 }

// IsValid reports whether the code is alphabetic with a valid reserved bit.
// Construction already guarantees the alphabetic part, so for constructed
// values this reduces to the reserved bit.
func (t ChunkType) IsValid() bool {
	for _, c := range t {
		if !isAlpha(c) {
			return false
		}
	}
	return t.IsReservedBitValid()
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
