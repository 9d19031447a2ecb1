package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AlekLefebvre/pngme/internal/ignore"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

// containerBytes builds a container from (type, payload) pairs.
func containerBytes(t testing.TB, entries ...[2]string) []byte {
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

func TestWalk_SelectsNamedAndSniffed(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("logo.png", containerBytes(t, [2]string{"tEXt", "Author me"}))
	// named but no signature: still selected so it can be reported as malformed
	write("broken.png", []byte("not a container at all"))
	// carries the signature but is not named like one
	write("payload.dat", containerBytes(t, [2]string{"ruSt", "hidden"}))
	write("notes.txt", []byte("plain text"))

	ign, _ := ignore.Load(filepath.Join(dir, ".pngmeignore"))

	var got []string
	cfg := Config{Root: dir, MaxBytes: 1 << 20}
	if err := Walk(nil, cfg, ign, func(p string, _ []byte) { got = append(got, p) }); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, p := range got {
		seen[p] = true
	}
	if !seen["logo.png"] || !seen["broken.png"] {
		t.Fatalf("expected named files selected, got %v", got)
	}
	if seen["payload.dat"] || seen["notes.txt"] {
		t.Fatalf("unnamed files selected without sniff mode: %v", got)
	}

	// sniff mode picks up signature-carrying files regardless of name
	got = nil
	cfg.SniffAll = true
	if err := Walk(nil, cfg, ign, func(p string, _ []byte) { got = append(got, p) }); err != nil {
		t.Fatal(err)
	}
	seen = map[string]bool{}
	for _, p := range got {
		seen[p] = true
	}
	if !seen["payload.dat"] {
		t.Fatalf("sniff mode missed payload.dat: %v", got)
	}
	if seen["notes.txt"] {
		t.Fatalf("sniff mode selected a file with no signature: %v", got)
	}
}

func TestWalk_IgnoreAndMaxBytes(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, b, 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("keep.png", containerBytes(t, [2]string{"tEXt", "ok"}))
	write("vendor/skip.png", containerBytes(t, [2]string{"tEXt", "no"}))
	big := make([]byte, 4096)
	copy(big, png.Signature[:])
	write("big.png", big)
	write(".pngmeignore", []byte("vendor/\n"))

	ign, err := ignore.Load(filepath.Join(dir, ".pngmeignore"))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	cfg := Config{Root: dir, MaxBytes: 1024}
	if err := Walk(nil, cfg, ign, func(p string, _ []byte) { got = append(got, p) }); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "keep.png" {
		t.Fatalf("expected only keep.png, got %v", got)
	}
}

func TestCountTargets_WorkingTree(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.png", containerBytes(t, [2]string{"tEXt", "a"}))
	write("b.apng", containerBytes(t, [2]string{"tEXt", "b"}))
	write("c.txt", []byte("text"))
	big := make([]byte, 2048)
	copy(big, png.Signature[:])
	write("huge.png", big)

	n, err := CountTargets(Config{Root: dir, MaxBytes: 1024})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 named targets under the size cap, got %d", n)
	}

	// sniff mode counts candidates without reading them, so c.txt is included
	n, err = CountTargets(Config{Root: dir, MaxBytes: 1024, SniffAll: true})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sniff candidates, got %d", n)
	}
}
