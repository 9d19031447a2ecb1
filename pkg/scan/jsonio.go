package scan

import (
	"encoding/json"
	"io"
)

// MarshalFindings writes findings to w as indented JSON, the same shape
// "pngme scan --json" emits.
func MarshalFindings(w io.Writer, findings []Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// UnmarshalFindings reads a findings array written by MarshalFindings or by
// the CLI back into memory.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	var findings []Finding
	if err := json.NewDecoder(r).Decode(&findings); err != nil {
		return nil, err
	}
	return findings, nil
}
