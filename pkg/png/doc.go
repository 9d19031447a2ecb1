// Package png implements the chunk layer of the PNG container format: an
// 8-byte signature followed by typed, length-prefixed, CRC-checksummed
// chunks. It is the codec underneath the pngme CLI, which hides, finds and
// removes messages stored in ancillary chunks of otherwise valid files.
//
// # Wire Format
//
// One chunk on the wire:
//
//	[Length(4, big-endian)][Type(4)][Data(Length)][CRC(4, big-endian)]
//
// The CRC is CRC-32 (ISO-HDLC, the hash/crc32 IEEE polynomial) computed
// over the type and data bytes only. A container is the signature
// {137, 80, 78, 71, 13, 10, 26, 10} followed by zero or more chunks.
//
// Payloads are opaque: the package performs no image decoding, no
// decompression, and no interpretation of standard chunks beyond the
// registry tables used for classification.
//
// Example:
//
//	t, _ := png.ChunkTypeFromString("ruSt")
//	c, _ := png.NewChunk(t, []byte("hello"))
//	p, err := png.ParsePNG(raw)
//	if err != nil { /* handle */ }
//	p.AppendChunk(c)
//	out := p.Bytes()
package png
