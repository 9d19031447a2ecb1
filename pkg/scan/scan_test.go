package scan

import (
	"bytes"
	"testing"
)

func TestScan_Smoke(t *testing.T) {
	cfg := Config{
		Root: t.TempDir(),
		// keep defaults: rules enabled
	}
	findings, err := Scan(cfg)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	_ = findings // may be empty or nil; success path validated by no error
	ids := RuleIDs()
	if len(ids) == 0 {
		t.Fatal("expected non-empty rule IDs")
	}
}

func TestFindingsJSONRoundTrip(t *testing.T) {
	in := []Finding{{
		Path:       "assets/logo.png",
		Index:      2,
		Type:       "teXt",
		Offset:     33,
		Length:     21,
		CRC:        0xdeadbeef,
		Rule:       "private-text-chunk",
		Severity:   SevHigh,
		Confidence: 0.9,
		Preview:    "deploy-token: hunter2",
	}}
	var buf bytes.Buffer
	if err := MarshalFindings(&buf, in); err != nil {
		t.Fatalf("MarshalFindings: %v", err)
	}
	out, err := UnmarshalFindings(&buf)
	if err != nil {
		t.Fatalf("UnmarshalFindings: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(out))
	}
	if out[0].Rule != in[0].Rule || out[0].Offset != in[0].Offset || out[0].CRC != in[0].CRC {
		t.Fatalf("round trip mismatch: %+v", out[0])
	}
}
