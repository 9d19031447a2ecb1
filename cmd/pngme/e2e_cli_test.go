package pngme

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlekLefebvre/pngme/pkg/png"
)

// runCLI executes the root command in-process with args and returns what it
// printed to stdout. Shared persistent flags are restored afterwards so
// tests stay independent of each other's flag state.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer func(j, s bool, f string) { flagJSON, flagSARIF, flagFailOn = j, s, f }(flagJSON, flagSARIF, flagFailOn)

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String(), execErr
}

func rawContainer(t *testing.T, entries ...[2]string) []byte {
	t.Helper()
	var chunks []*png.Chunk
	for _, e := range entries {
		ct, err := png.ChunkTypeFromString(e[0])
		if err != nil {
			t.Fatalf("chunk type %q: %v", e[0], err)
		}
		c, err := png.NewChunk(ct, []byte(e[1]))
		if err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, c)
	}
	return png.FromChunks(chunks).Bytes()
}

func writeContainer(t *testing.T, path string, entries ...[2]string) {
	t.Helper()
	if err := os.WriteFile(path, rawContainer(t, entries...), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCLI_EncodeDecodeRemove_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"tEXt", "Comment here"})

	if _, err := runCLI(t, "encode", path, "ruSt", "the vault code is 1234"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := runCLI(t, "decode", path, "ruSt")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.TrimSpace(out) != "the vault code is 1234" {
		t.Fatalf("decode output %q", out)
	}
	if _, err := runCLI(t, "remove", path, "ruSt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := runCLI(t, "decode", path, "ruSt"); !errors.Is(err, png.ErrChunkNotFound) {
		t.Fatalf("expected not-found after remove, got %v", err)
	}

	// the rewritten file still parses and kept the original chunk
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := png.ParsePNG(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Chunks()) != 1 || p.Chunks()[0].Type().String() != "tEXt" {
		t.Fatalf("unexpected surviving chunks")
	}
}

func TestCLI_Encode_RefusesCriticalType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path)

	if _, err := runCLI(t, "encode", path, "IHDR", "boom"); err == nil {
		t.Fatalf("expected refusal for a registered critical type")
	}
	if _, err := runCLI(t, "encode", path, "IHDR", "boom", "--force"); err != nil {
		t.Fatalf("--force should override the refusal: %v", err)
	}
}

func TestCLI_Decode_StrictRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"ruSt", "\xff\xfe\x01binary"})

	// default rendering is lossy, not an error
	out, err := runCLI(t, "decode", path, "ruSt")
	if err != nil {
		t.Fatalf("lossy decode: %v", err)
	}
	if !strings.Contains(out, "\uFFFD") {
		t.Fatalf("expected replacement runes in lossy output: %q", out)
	}

	if _, err := runCLI(t, "decode", path, "ruSt", "--strict"); !errors.Is(err, png.ErrNotText) {
		t.Fatalf("expected ErrNotText under --strict, got %v", err)
	}
}

func TestCLI_Print_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"IHDR", "x"}, [2]string{"ruSt", "secret"})

	out, err := runCLI(t, "print", path, "--json")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	var infos []map[string]any
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(infos))
	}
	if infos[0]["type"] != "IHDR" || infos[0]["critical"] != true {
		t.Fatalf("unexpected first chunk: %v", infos[0])
	}
	// second chunk starts after the 13-byte first record
	if infos[1]["offset"] != float64(8+12+1) {
		t.Fatalf("unexpected second offset: %v", infos[1]["offset"])
	}
	if infos[1]["registered"] != false {
		t.Fatalf("ruSt must not be registered: %v", infos[1])
	}
}

func TestCLI_List_Classification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"tEXt", "note"}, [2]string{"ruSt", "hidden"})

	out, err := runCLI(t, "list", path)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "tEXt") || !strings.Contains(out, "textual") {
		t.Fatalf("expected textual classification: %s", out)
	}
	if !strings.Contains(out, "ruSt") || !strings.Contains(out, "unregistered") {
		t.Fatalf("expected unregistered classification: %s", out)
	}
}

func TestCLI_Scan_JSON_Shape(t *testing.T) {
	dir := t.TempDir()
	writeContainer(t, filepath.Join(dir, "logo.png"), [2]string{"ruSt", "deploy-token: hunter2"})

	out, err := runCLI(t, "scan", dir, "--json", "--fail-on", "never")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(arr) == 0 {
		t.Fatalf("expected at least one finding in JSON output")
	}
	f := arr[0]
	if f["rule"] != "private-text-chunk" || f["severity"] != "high" {
		t.Fatalf("unexpected finding shape: %v", f)
	}
	if p, _ := f["path"].(string); !strings.HasSuffix(p, "logo.png") {
		t.Fatalf("unexpected path: %v", f["path"])
	}
}

func TestCLI_SARIF_Shape(t *testing.T) {
	dir := t.TempDir()
	writeContainer(t, filepath.Join(dir, "logo.png"), [2]string{"ruSt", "deploy-token: hunter2"})

	out, err := runCLI(t, "scan", dir, "--sarif", "--fail-on", "never")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("sarif json: %v\n%s", err, out)
	}
	if doc["version"] != "2.1.0" {
		t.Fatalf("expected SARIF 2.1.0")
	}
}

func TestVerifyContainer_Checks(t *testing.T) {
	ok := rawContainer(t, [2]string{"IHDR", "x"}, [2]string{"tEXt", "hello"}, [2]string{"IEND", ""})
	if problems := verifyContainer(ok, false); problems != nil {
		t.Fatalf("valid container should have no problems: %v", problems)
	}

	if problems := verifyContainer([]byte("junk"), false); len(problems) != 1 || problems[0] != "missing or corrupt signature" {
		t.Fatalf("unexpected signature problems: %v", problems)
	}

	// flip the final CRC byte
	bad := rawContainer(t, [2]string{"tEXt", "hello"})
	bad[len(bad)-1] ^= 0xff
	problems := verifyContainer(bad, false)
	if len(problems) != 1 || !strings.Contains(problems[0], "crc mismatch") {
		t.Fatalf("expected a crc problem: %v", problems)
	}

	misordered := rawContainer(t, [2]string{"tEXt", "x"}, [2]string{"IHDR", "y"})
	problems = verifyContainer(misordered, false)
	if len(problems) != 1 || !strings.Contains(problems[0], "IHDR") {
		t.Fatalf("expected an IHDR ordering problem: %v", problems)
	}

	trailing := rawContainer(t, [2]string{"IEND", ""}, [2]string{"ruSt", "late"})
	problems = verifyContainer(trailing, false)
	if len(problems) != 1 || !strings.Contains(problems[0], "IEND") {
		t.Fatalf("expected an IEND ordering problem: %v", problems)
	}

	// strict mode rejects registered text chunks holding binary
	binText := rawContainer(t, [2]string{"tEXt", "\xff\xfe"})
	if problems = verifyContainer(binText, false); problems != nil {
		t.Fatalf("non-strict should accept binary text payloads: %v", problems)
	}
	problems = verifyContainer(binText, true)
	if len(problems) != 1 || !strings.Contains(problems[0], "tEXt") {
		t.Fatalf("strict should flag the text chunk: %v", problems)
	}
}

func TestCLI_Verify_OK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"IHDR", "x"}, [2]string{"IEND", ""})

	out, err := runCLI(t, "verify", path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "OK") {
		t.Fatalf("expected OK verdict: %q", out)
	}
}

func TestCLI_Strip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path,
		[2]string{"IHDR", "x"},
		[2]string{"ruSt", "hidden"},
		[2]string{"tEXt", "note"},
		[2]string{"IEND", ""},
	)

	out, err := runCLI(t, "strip", path, "--dry-run")
	if err != nil {
		t.Fatalf("strip dry-run: %v", err)
	}
	if !strings.Contains(out, "(dry-run)") || !strings.Contains(out, "ruSt") {
		t.Fatalf("unexpected dry-run output: %q", out)
	}
	b, _ := os.ReadFile(path)
	if p, err := png.ParsePNG(b); err != nil || len(p.Chunks()) != 4 {
		t.Fatalf("dry-run must not modify the file")
	}

	out, err = runCLI(t, "strip", path, "--dry-run=false")
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !strings.Contains(out, "Stripped 1 chunks") {
		t.Fatalf("unexpected strip output: %q", out)
	}
	b, _ = os.ReadFile(path)
	p, err := png.ParsePNG(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Chunks()) != 3 {
		t.Fatalf("expected 3 surviving chunks, got %d", len(p.Chunks()))
	}
}

func TestCLI_ConfigInit(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := runCLI(t, "config", "init", "--preset", "maximal", "--output", ".pngme.yml")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote .pngme.yml") {
		t.Fatalf("unexpected output: %q", out)
	}
	b, err := os.ReadFile(".pngme.yml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"sniff_all: true", "all_text: true", "archives: true", "containers: true"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("maximal preset missing %q:\n%s", want, b)
		}
	}

	if _, err := runCLI(t, "config", "init", "--preset", "bogus"); err == nil {
		t.Fatalf("expected an error for an unknown preset")
	}
}

func TestCLI_Rules(t *testing.T) {
	out, err := runCLI(t, "rules")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	for _, id := range []string{"private-text-chunk", "after-iend", "target-type"} {
		if !strings.Contains(out, id) {
			t.Fatalf("rules output missing %q: %s", id, out)
		}
	}
}

func TestCLI_Types_DecodeBits(t *testing.T) {
	out, err := runCLI(t, "types", "ruSt")
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	if !strings.Contains(out, "safe to copy:  yes") {
		t.Fatalf("ruSt has the safe-to-copy bit set: %q", out)
	}
	if !strings.Contains(out, "registered:    no") {
		t.Fatalf("ruSt is not a registered type: %q", out)
	}

	if _, err := runCLI(t, "types", "ru1t"); err == nil {
		t.Fatalf("expected an error for a non-alphabetic code")
	}
}

func TestBlobCallback_FramesType(t *testing.T) {
	cb := blobCallback("ruSt")
	if !strings.Contains(cb, "b'ruSt'") {
		t.Fatalf("callback must embed the type literal: %s", cb)
	}
	if !strings.Contains(cb, `\x89PNG`) {
		t.Fatalf("callback must gate on the container signature")
	}
}

func TestCLI_FixArtifacts_Idempotent(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := runCLI(t, "fix", "artifacts"); err != nil {
		t.Fatalf("fix artifacts: %v", err)
	}
	b, err := os.ReadFile(".gitignore")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), ".pngme_audit.jsonl") {
		t.Fatalf("expected audit journal pattern in .gitignore:\n%s", b)
	}
	if _, err := runCLI(t, "fix", "artifacts"); err != nil {
		t.Fatalf("second fix artifacts: %v", err)
	}
	b2, _ := os.ReadFile(".gitignore")
	if strings.Count(string(b2), ".pngme_audit.jsonl") != 1 {
		t.Fatalf("patterns must not be duplicated:\n%s", b2)
	}
}

func TestCLI_FixClean_DryRunLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.png")
	writeContainer(t, path, [2]string{"IHDR", "x"}, [2]string{"ruSt", "hidden"})

	if _, err := runCLI(t, "fix", "clean", path, "--dry-run"); err != nil {
		t.Fatalf("fix clean dry-run: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := png.ParsePNG(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Chunks()) != 2 {
		t.Fatalf("dry-run must not modify the file")
	}
}
