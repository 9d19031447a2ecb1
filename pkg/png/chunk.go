package png

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"unicode/utf8"
)

// chunkOverhead is the wire size of a chunk minus its payload:
// 4-byte length + 4-byte type + 4-byte CRC.
const chunkOverhead = 12

// Chunk is one typed, checksummed unit of a PNG container. The zero value
// is not useful; build chunks with NewChunk or DecodeChunk.
type Chunk struct {
	typ  ChunkType
	data []byte
}

// NewChunk builds a chunk over a copy of data. Payloads longer than the
// uint32 length field can express are rejected with ErrPayloadTooLarge.
func NewChunk(t ChunkType, data []byte) (*Chunk, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	d := make([]byte, len(data))
	copy(d, data)
	return &Chunk{typ: t, data: d}, nil
}

// DecodeChunk parses one chunk from the front of b and returns it together
// with the exact number of bytes consumed (length + type + data + CRC).
// It fails with ErrTruncated when b ends inside the chunk, wraps
// ErrInvalidTypeCode for non-alphabetic type bytes, and ErrCrcMismatch when
// the stored checksum does not match the one computed over type and data.
func DecodeChunk(b []byte) (*Chunk, int, error) {
	if len(b) < 8 {
		return nil, 0, fmt.Errorf("%w: %d bytes, want at least 8 for a chunk header", ErrTruncated, len(b))
	}
	length := binary.BigEndian.Uint32(b[:4])
	var code [4]byte
	copy(code[:], b[4:8])
	typ, err := ChunkTypeFromBytes(code)
	if err != nil {
		return nil, 0, err
	}
	// int64 arithmetic so a hostile length near MaxUint32 cannot wrap the
	// bounds check on 32-bit platforms.
	total := 8 + int64(length) + 4
	if int64(len(b)) < total {
		return nil, 0, fmt.Errorf("%w: chunk %s declares %d data bytes, input has %d of %d",
			ErrTruncated, typ.String(), length, len(b)-8, total-8)
	}
	data := make([]byte, length)
	copy(data, b[8:8+length])
	stored := binary.BigEndian.Uint32(b[8+length : total])
	computed := crc32.ChecksumIEEE(b[4 : 8+length])
	if stored != computed {
		return nil, 0, fmt.Errorf("%w: chunk %s stored %d, computed %d", ErrCrcMismatch, typ.String(), stored, computed)
	}
	return &Chunk{typ: typ, data: data}, int(total), nil
}

// Length returns the payload size in bytes.
func (c *Chunk) Length() uint32 { return uint32(len(c.data)) }

// Type returns the chunk's type code.
func (c *Chunk) Type() ChunkType { return c.typ }

// Data returns a copy of the payload.
func (c *Chunk) Data() []byte {
	d := make([]byte, len(c.data))
	copy(d, c.data)
	return d
}

// CRC computes the CRC-32 checksum over the type code and payload.
func (c *Chunk) CRC() uint32 {
	h := crc32.NewIEEE()
	h.Write(c.typ[:])
	h.Write(c.data)
	return h.Sum32()
}

// Text returns the payload as a UTF-8 string, or ErrNotText when the bytes
// are not valid UTF-8.
func (c *Chunk) Text() (string, error) {
	if !utf8.Valid(c.data) {
		return "", fmt.Errorf("%w: chunk %s", ErrNotText, c.typ.String())
	}
	return string(c.data), nil
}

// Bytes returns the chunk's full wire encoding.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, chunkOverhead+len(c.data))
	binary.BigEndian.PutUint32(out[:4], c.Length())
	copy(out[4:8], c.typ[:])
	copy(out[8:], c.data)
	binary.BigEndian.PutUint32(out[8+len(c.data):], c.CRC())
	return out
}

// String renders a one-line summary for logs and CLI output. The payload is
// shown as text when it is UTF-8 and summarized otherwise.
func (c *Chunk) String() string {
	if s, err := c.Text(); err == nil {
		return fmt.Sprintf("%s: %q (%d bytes, crc %d)", c.typ.String(), s, c.Length(), c.CRC())
	}
	return fmt.Sprintf("%s: %d binary bytes (crc %d)", c.typ.String(), c.Length(), c.CRC())
}
