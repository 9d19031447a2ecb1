package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

func TestInspectContainer_PrivateTextChunk(t *testing.T) {
	data := containerBytes(t, [2]string{"ruSt", "This is a secret message!"})
	fs := inspectContainer("hidden.png", data, Config{})
	if len(fs) != 1 {
		t.Fatalf("expected 1 finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RulePrivateText || f.Severity != types.SevHigh || f.Confidence != 0.9 {
		t.Fatalf("unexpected rule/severity/confidence: %+v", f)
	}
	if f.Type != "ruSt" || f.Index != 0 || f.Offset != int64(len(png.Signature)) {
		t.Fatalf("unexpected position fields: %+v", f)
	}
	if !strings.Contains(f.Preview, "secret message") {
		t.Fatalf("preview should show the payload: %q", f.Preview)
	}
	if f.Metadata["critical"] != "false" || f.Metadata["public"] != "false" {
		t.Fatalf("unexpected metadata: %v", f.Metadata)
	}
}

func TestInspectContainer_StructuredPayloadBoost(t *testing.T) {
	data := containerBytes(t, [2]string{"cfGd", `{"user":"admin","pass":"hunter2"}`})
	fs := inspectContainer("conf.png", data, Config{})
	if len(fs) != 1 {
		t.Fatalf("expected 1 finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RulePrivateText || f.Confidence != 0.95 {
		t.Fatalf("structured payload should boost confidence: %+v", f)
	}
	if f.Context != "json payload" {
		t.Fatalf("expected json context, got %q", f.Context)
	}
	if f.Metadata["sensitive_keys"] != "pass" {
		t.Fatalf("expected the credential key to be flagged: %v", f.Metadata)
	}
}

func TestInspectContainer_PrivateBinaryChunk(t *testing.T) {
	// uniform byte spread pushes entropy to the maximum
	noisy := make([]byte, 512)
	for i := range noisy {
		noisy[i] = byte(i)
	}
	ct, err := png.ChunkTypeFromString("blOb")
	if err != nil {
		t.Fatal(err)
	}
	c, err := png.NewChunk(ct, noisy)
	if err != nil {
		t.Fatal(err)
	}
	data := png.FromChunks([]*png.Chunk{c}).Bytes()

	fs := inspectContainer("blob.png", data, Config{})
	if len(fs) != 1 {
		t.Fatalf("expected 1 finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RulePrivate || f.Severity != types.SevMed {
		t.Fatalf("unexpected finding: %+v", f)
	}
	if f.Confidence != 0.7 || f.Context != "high-entropy payload" {
		t.Fatalf("entropy boost missing: %+v", f)
	}
	if !strings.Contains(f.Preview, "512 bytes") {
		t.Fatalf("binary preview should summarize: %q", f.Preview)
	}

	// a flat payload stays at the base confidence
	flat := bytes.Repeat([]byte{0, 1, 2, 3}, 64)
	c2, err := png.NewChunk(ct, flat)
	if err != nil {
		t.Fatal(err)
	}
	fs = inspectContainer("flat.png", png.FromChunks([]*png.Chunk{c2}).Bytes(), Config{})
	if len(fs) != 1 || fs[0].Confidence != 0.6 || fs[0].Context != "" {
		t.Fatalf("flat payload should not be boosted: %+v", fs)
	}
}

func TestInspectContainer_StandardTextGated(t *testing.T) {
	data := containerBytes(t, [2]string{"tEXt", "Author Jane"})

	if fs := inspectContainer("meta.png", data, Config{}); len(fs) != 0 {
		t.Fatalf("standard text should be quiet by default: %+v", fs)
	}

	fs := inspectContainer("meta.png", data, Config{IncludeStandardText: true})
	if len(fs) != 1 {
		t.Fatalf("expected 1 finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RuleStandardText || f.Severity != types.SevLow || f.Confidence != 0.4 {
		t.Fatalf("unexpected text-chunk finding: %+v", f)
	}
}

func TestInspectContainer_TargetTypes(t *testing.T) {
	data := containerBytes(t, [2]string{"tEXt", "Comment hello"})
	fs := inspectContainer("pic.png", data, Config{TargetTypes: []string{"tEXt"}})
	if len(fs) != 1 {
		t.Fatalf("expected exactly the target finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RuleTargetType || f.Confidence != 1 || f.Severity != types.SevHigh {
		t.Fatalf("unexpected target finding: %+v", f)
	}
}

func TestInspectContainer_AfterEnd(t *testing.T) {
	data := containerBytes(t,
		[2]string{"ruSt", "before the end"},
		[2]string{"IEND", ""},
		[2]string{"tEXt", "smuggled trailer"},
	)
	fs := inspectContainer("trail.png", data, Config{IncludeStandardText: true})

	rules := map[string]int{}
	for _, f := range fs {
		rules[f.Rule]++
	}
	if rules[RulePrivateText] != 1 {
		t.Fatalf("expected the pre-end private chunk, got %+v", fs)
	}
	if rules[RuleAfterEnd] != 1 {
		t.Fatalf("expected an after-iend finding, got %+v", fs)
	}
	// position outranks the other rules for trailing chunks
	if rules[RuleStandardText] != 0 {
		t.Fatalf("trailing text chunk should only trigger after-iend: %+v", fs)
	}
	for _, f := range fs {
		if f.Rule == RuleAfterEnd && f.Index != 2 {
			t.Fatalf("after-iend should point at the trailer: %+v", f)
		}
	}
}

func TestInspectContainer_MissingSignature(t *testing.T) {
	junk := []byte("definitely not a container")

	fs := inspectContainer("broken.png", junk, Config{})
	if len(fs) != 1 {
		t.Fatalf("expected 1 malformed finding, got %+v", fs)
	}
	f := fs[0]
	if f.Rule != RuleMalformed || f.Context != "missing container signature" {
		t.Fatalf("unexpected finding: %+v", f)
	}

	// unnamed data without the signature is simply not a container
	if fs := inspectContainer("notes.txt", junk, Config{}); fs != nil {
		t.Fatalf("expected no findings for unnamed data, got %+v", fs)
	}

	// the leaf of a virtual path decides, not the artifact name
	if fs := inspectContainer("bundle.zip::img/broken.png", junk, Config{}); len(fs) != 1 {
		t.Fatalf("expected malformed finding for virtual path, got %+v", fs)
	}
}

func TestInspectContainer_TruncatedChunk(t *testing.T) {
	data := containerBytes(t,
		[2]string{"ruSt", "intact"},
		[2]string{"teXt", "gets cut off"},
	)
	cut := data[:len(data)-5]

	fs := inspectContainer("cut.png", cut, Config{})
	if len(fs) != 2 {
		t.Fatalf("expected intact finding plus malformed, got %+v", fs)
	}
	if fs[0].Rule != RulePrivateText {
		t.Fatalf("first chunk should decode fine: %+v", fs[0])
	}
	f := fs[1]
	if f.Rule != RuleMalformed || f.Index != 1 {
		t.Fatalf("unexpected malformed finding: %+v", f)
	}
	if f.Context == "" {
		t.Fatalf("malformed finding should carry the decode error")
	}
}

func TestPreviewFlattensAndTruncates(t *testing.T) {
	got := preview([]byte("line one\nline two\ttabbed"))
	if strings.ContainsAny(got, "\n\t") {
		t.Fatalf("control characters should be flattened: %q", got)
	}

	long := strings.Repeat("a", 200)
	got = preview([]byte(long))
	if len(got) != previewLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long preview not truncated: %d chars", len(got))
	}
}

func TestInventoryContainer_ListsEveryChunk(t *testing.T) {
	data := containerBytes(t,
		[2]string{"IHDR", "hdr"},
		[2]string{"tEXt", "Author me"},
		[2]string{"ruSt", "hidden note"},
		[2]string{"IEND", ""},
		[2]string{"ruSt", "trailing"},
	)
	fs, err := InventoryContainer("logo.png", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 5 {
		t.Fatalf("expected one finding per chunk, got %d", len(fs))
	}
	wantRules := []string{RuleStructure, RuleStandardText, RulePrivateText, RuleStructure, RuleAfterEnd}
	for i, want := range wantRules {
		if fs[i].Rule != want {
			t.Fatalf("chunk %d: rule %q, want %q", i, fs[i].Rule, want)
		}
	}
	if fs[0].Severity != types.SevLow || fs[0].Confidence != 1 {
		t.Fatalf("structural chunk should be low/1.0: %+v", fs[0])
	}
	if fs[0].Metadata["description"] == "" {
		t.Fatalf("registered chunk should carry its registry description")
	}
	if fs[2].Severity != types.SevHigh {
		t.Fatalf("private text chunk should stay high severity: %+v", fs[2])
	}
	if fs[1].Offset <= fs[0].Offset || fs[2].Offset <= fs[1].Offset {
		t.Fatalf("offsets should increase in file order")
	}

	if _, err := InventoryContainer("nope.txt", []byte("plain text")); err == nil {
		t.Fatalf("expected an error for data without the signature")
	}
}
