package tui

import (
	"strings"
	"testing"

	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/types"
)

func TestNewModelWithBaseline(t *testing.T) {
	findings := []types.Finding{
		{Path: "file1.png", Offset: 8, Index: 0, Type: "teXt", Preview: "secret123", Rule: "private-text-chunk", Severity: types.SevHigh},
		{Path: "file2.png", Offset: 33, Index: 1, Type: "zTXt", Preview: "baselined-secret", Rule: "high-entropy", Severity: types.SevMed},
	}
	baseline := report.Baseline{
		Items: map[string]bool{"file2.png|high-entropy|zTXt|33": true},
	}

	m := NewModelWithBaseline(findings, baseline, func() ([]types.Finding, error) { return nil, nil })

	if len(m.baselinedSet) != 1 {
		t.Fatalf("baselinedSet has %d entries, want 1", len(m.baselinedSet))
	}
	if isBaselined(findings[0], m.baselinedSet) {
		t.Error("file1.png finding is not in the baseline")
	}
	if !isBaselined(findings[1], m.baselinedSet) {
		t.Error("file2.png finding should be recognized as baselined")
	}
	if !strings.HasPrefix(m.statusMessage, "1 new, 1 baselined") {
		t.Errorf("status = %q, want the new/baselined split up front", m.statusMessage)
	}
}

func TestNewModelWithBaselineAllKnown(t *testing.T) {
	findings := []types.Finding{
		{Path: "file.png", Offset: 8, Type: "teXt", Preview: "secret", Rule: "private-text-chunk", Severity: types.SevHigh},
	}
	baseline := report.Baseline{
		Items: map[string]bool{"file.png|private-text-chunk|teXt|8": true},
	}

	m := NewModelWithBaseline(findings, baseline, func() ([]types.Finding, error) { return nil, nil })

	if !strings.HasPrefix(m.statusMessage, "Showing 1 baselined findings") {
		t.Errorf("status = %q, want all-baselined wording", m.statusMessage)
	}
}

func TestIsBaselined(t *testing.T) {
	set := map[string]bool{"path/to/file.png|rule-name|teXt|8": true}
	match := types.Finding{Path: "path/to/file.png", Rule: "rule-name", Type: "teXt", Offset: 8}

	tests := []struct {
		name    string
		finding types.Finding
		set     map[string]bool
		want    bool
	}{
		{"exact key match", match, set, true},
		{"different path", types.Finding{Path: "different/file.png", Rule: "rule-name", Type: "teXt", Offset: 8}, set, false},
		{"different rule", types.Finding{Path: "path/to/file.png", Rule: "different-rule", Type: "teXt", Offset: 8}, set, false},
		{"different offset", types.Finding{Path: "path/to/file.png", Rule: "rule-name", Type: "teXt", Offset: 41}, set, false},
		{"nil set", match, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBaselined(tt.finding, tt.set); got != tt.want {
				t.Errorf("isBaselined = %v, want %v", got, tt.want)
			}
		})
	}
}
