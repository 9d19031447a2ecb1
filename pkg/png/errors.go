package png

import "errors"

// Sentinel errors returned by the codec. Callers branch with errors.Is;
// the wrapped message carries the detail (chunk index, type code, CRC pair).
var (
	ErrInvalidTypeCode = errors.New("invalid chunk type code")
	ErrBadSignature    = errors.New("bad png signature")
	ErrTruncated       = errors.New("truncated input")
	ErrCrcMismatch     = errors.New("crc mismatch")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotText         = errors.New("payload is not valid utf-8")
	ErrChunkNotFound   = errors.New("chunk not found")
)
