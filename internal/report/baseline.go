package report

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/AlekLefebvre/pngme/internal/types"
)

// Baseline is the set of accepted findings, keyed by Key. Scans subtract it
// so only new findings surface.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline file. A missing or malformed file yields an
// empty baseline together with the read error, which callers usually ignore.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	_ = json.Unmarshal(raw, &b)
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

// SaveBaseline writes the identity of every finding to path, accepting all
// of them for future runs.
func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: make(map[string]bool, len(findings))}
	for _, f := range findings {
		b.Items[Key(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// FilterNewFindings drops findings already accepted by base.
func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if !base.Items[Key(f)] {
			out = append(out, f)
		}
	}
	return out
}

// Key identifies a finding across runs. Offset is part of the identity so
// a chunk that moves inside the container counts as new.
func Key(f types.Finding) string {
	return f.Path + "|" + f.Rule + "|" + f.Type + "|" + strconv.FormatInt(f.Offset, 10)
}

// ShouldFail reports whether any finding reaches the fail-on threshold.
// "never" disables failing; unknown thresholds fall back to medium.
func ShouldFail(findings []types.Finding, failOn string) bool {
	if failOn == "never" {
		return false
	}
	th, err := types.ParseSeverity(failOn)
	if err != nil {
		th = types.SevMed
	}
	for _, f := range findings {
		if f.Severity.Rank() >= th.Rank() {
			return true
		}
	}
	return false
}
