package types

import "fmt"

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow  Severity = "low"
	SevMed  Severity = "medium"
	SevHigh Severity = "high"
)

// ParseSeverity maps a user-supplied string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SevLow, nil
	case "medium", "med":
		return SevMed, nil
	case "high":
		return SevHigh, nil
	}
	return "", fmt.Errorf("unknown severity %q (want low, medium or high)", s)
}

// Rank orders severities for comparisons; higher is worse. Unknown values
// rank below low.
func (s Severity) Rank() int {
	switch s {
	case SevLow:
		return 1
	case SevMed:
		return 2
	case SevHigh:
		return 3
	}
	return 0
}

// Finding describes one interesting chunk discovered inside a PNG
// container: which file, which chunk, where in the file, and which rule
// flagged it. Confidence is in [0,1].
type Finding struct {
	Path       string            `json:"path"`             // File or virtual path of the container
	Index      int               `json:"index"`            // Chunk position within the container
	Type       string            `json:"type"`             // 4-character chunk type code
	Offset     int64             `json:"offset"`           // Byte offset of the chunk header
	Length     uint32            `json:"length"`           // Payload size in bytes
	CRC        uint32            `json:"crc"`              // Stored checksum
	Rule       string            `json:"rule"`             // Rule ID that flagged the chunk
	Severity   Severity          `json:"severity"`
	Confidence float64           `json:"confidence"`
	Preview    string            `json:"preview,omitempty"`  // Payload rendered safely for display
	Context    string            `json:"context,omitempty"`  // Additional context or description
	Metadata   map[string]string `json:"metadata,omitempty"` // Artifact-specific metadata
}
