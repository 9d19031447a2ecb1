package report

import (
	"path/filepath"
	"testing"

	"github.com/AlekLefebvre/pngme/internal/types"
)

func TestBaselineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "baseline.json")
	old := []types.Finding{
		{Path: "a.png", Offset: 8, Type: "ruSt", Rule: "private-text-chunk", Severity: types.SevHigh},
		{Path: "b.png", Offset: 20, Type: "blOb", Rule: "private-chunk", Severity: types.SevMed},
	}
	if err := SaveBaseline(p, old); err != nil {
		t.Fatalf("save: %v", err)
	}
	base, err := LoadBaseline(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	current := []types.Finding{
		old[0],
		// same chunk moved to a new offset counts as new
		{Path: "b.png", Offset: 44, Type: "blOb", Rule: "private-chunk", Severity: types.SevMed},
		{Path: "c.png", Offset: 8, Type: "ruSt", Rule: "private-text-chunk", Severity: types.SevHigh},
	}
	fresh := FilterNewFindings(current, base)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new findings, got %+v", fresh)
	}
	for _, f := range fresh {
		if f.Path == "a.png" {
			t.Fatalf("baselined finding leaked through: %+v", f)
		}
	}
}

func TestShouldFail(t *testing.T) {
	fs := []types.Finding{{Rule: "text-chunk", Severity: types.SevLow}}
	if ShouldFail(fs, "low") != true {
		t.Fatalf("low threshold should fail on a low finding")
	}
	if ShouldFail(fs, "medium") != false {
		t.Fatalf("medium threshold should pass on a low finding")
	}
	// unknown threshold falls back to medium
	if ShouldFail(fs, "") != false {
		t.Fatalf("default threshold should be medium")
	}
	fs = append(fs, types.Finding{Rule: "after-iend", Severity: types.SevHigh})
	if ShouldFail(fs, "high") != true {
		t.Fatalf("high threshold should fail on a high finding")
	}
	if ShouldFail(fs, "never") != false {
		t.Fatalf("never threshold must not fail regardless of findings")
	}
}
