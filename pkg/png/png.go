package png

import (
	"bytes"
	"fmt"
	"strings"
)

// Signature is the 8-byte sequence that opens every PNG container.
var Signature = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// HasSignature reports whether b starts with the PNG signature. It is the
// cheap sniff used by scanners before committing to a full parse.
func HasSignature(b []byte) bool {
	return len(b) >= len(Signature) && bytes.Equal(b[:len(Signature)], Signature[:])
}

// PNG is a parsed container: the signature followed by an ordered chunk
// list. Methods are not safe for concurrent use.
type PNG struct {
	chunks []*Chunk
}

// FromChunks builds a container over the given chunks. The slice is copied;
// the chunks themselves are shared.
func FromChunks(chunks []*Chunk) *PNG {
	p := &PNG{chunks: make([]*Chunk, len(chunks))}
	copy(p.chunks, chunks)
	return p
}

// ParsePNG parses a whole container from b. Parsing is fail-fast: a missing
// or wrong signature is ErrBadSignature, and the first chunk-level error
// aborts the parse, wrapped with the chunk index and byte offset. Trailing
// bytes that cannot form a chunk surface as ErrTruncated.
func ParsePNG(b []byte) (*PNG, error) {
	if !HasSignature(b) {
		return nil, fmt.Errorf("%w: first %d bytes are not %v", ErrBadSignature, len(Signature), Signature)
	}
	p := &PNG{}
	off := len(Signature)
	for i := 0; off < len(b); i++ {
		c, n, err := DecodeChunk(b[off:])
		if err != nil {
			return nil, fmt.Errorf("chunk %d at offset %d: %w", i, off, err)
		}
		p.chunks = append(p.chunks, c)
		off += n
	}
	return p, nil
}

// AppendChunk adds c at the end of the chunk list.
func (p *PNG) AppendChunk(c *Chunk) {
	p.chunks = append(p.chunks, c)
}

// Chunks returns the chunk list in container order. The slice is a copy;
// the chunks are shared.
func (p *PNG) Chunks() []*Chunk {
	out := make([]*Chunk, len(p.chunks))
	copy(out, p.chunks)
	return out
}

// ChunkByType returns the first chunk whose type code equals code, or nil
// when the container has none.
func (p *PNG) ChunkByType(code string) *Chunk {
	for _, c := range p.chunks {
		if c.typ.String() == code {
			return c
		}
	}
	return nil
}

// RemoveFirstChunk removes and returns the first chunk of the given type.
// Chunks of other types keep their relative order. Returns ErrChunkNotFound
// when the container has no such chunk.
func (p *PNG) RemoveFirstChunk(code string) (*Chunk, error) {
	for i, c := range p.chunks {
		if c.typ.String() == code {
			p.chunks = append(p.chunks[:i], p.chunks[i+1:]...)
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrChunkNotFound, code)
}

// Bytes returns the container's full wire encoding: signature, then each
// chunk in order.
func (p *PNG) Bytes() []byte {
	size := len(Signature)
	for _, c := range p.chunks {
		size += chunkOverhead + len(c.data)
	}
	out := make([]byte, 0, size)
	out = append(out, Signature[:]...)
	for _, c := range p.chunks {
		out = append(out, c.Bytes()...)
	}
	return out
}

// Text renders every chunk payload as UTF-8, joined by newlines. It is
// fail-fast: the first non-text payload aborts with ErrNotText wrapped with
// the chunk index. Use String for a lossy rendering that never fails.
func (p *PNG) Text() (string, error) {
	parts := make([]string, 0, len(p.chunks))
	for i, c := range p.chunks {
		s, err := c.Text()
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}

// String renders a lossy, never-failing summary of the container: one line
// per chunk, text payloads quoted, binary payloads summarized.
func (p *PNG) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PNG (%d chunks)\n", len(p.chunks))
	for _, c := range p.chunks {
		fmt.Fprintf(&b, "  %s\n", c.String())
	}
	return b.String()
}
