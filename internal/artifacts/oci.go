package artifacts

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlekLefebvre/pngme/internal/ignore"
	"github.com/AlekLefebvre/pngme/internal/vpath"
)

// OCIManifest represents an OCI image manifest (OCI Image Spec v1)
type OCIManifest struct {
	SchemaVersion int               `json:"schemaVersion"`
	MediaType     string            `json:"mediaType"`
	Config        OCIDescriptor     `json:"config"`
	Layers        []OCIDescriptor   `json:"layers"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// OCIDescriptor describes a content addressable blob
type OCIDescriptor struct {
	MediaType   string            `json:"mediaType"`
	Digest      string            `json:"digest"`
	Size        int64             `json:"size"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// OCIIndex represents an OCI image index (for multi-arch images)
type OCIIndex struct {
	SchemaVersion int               `json:"schemaVersion"`
	MediaType     string            `json:"mediaType"`
	Manifests     []OCIDescriptor   `json:"manifests"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// ParseOCIManifest reads and parses an OCI image manifest from a file
func ParseOCIManifest(path string) (*OCIManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest OCIManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	// Validate schema version
	if manifest.SchemaVersion != 2 {
		return nil, fmt.Errorf("unsupported schema version: %d", manifest.SchemaVersion)
	}

	return &manifest, nil
}

// ParseOCIIndex reads and parses an OCI image index from a file
func ParseOCIIndex(path string) (*OCIIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var index OCIIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index JSON: %w", err)
	}

	return &index, nil
}

// IsOCIImage checks if a directory contains an OCI image layout
func IsOCIImage(dir string) bool {
	// Check for oci-layout file (OCI spec marker)
	layoutPath := filepath.Join(dir, "oci-layout")
	if _, err := os.Stat(layoutPath); err == nil {
		return true
	}

	// Check for index.json (OCI index)
	indexPath := filepath.Join(dir, "index.json")
	if _, err := os.Stat(indexPath); err == nil {
		return true
	}

	return false
}

// blobPath maps a digest like "sha256:abc..." to its path in an OCI layout.
func blobPath(dir, digest string) string {
	algo, hex, ok := strings.Cut(digest, ":")
	if !ok {
		return ""
	}
	return filepath.Join(dir, "blobs", algo, hex)
}

// ScanOCILayouts walks root for OCI image layout directories and emits the
// PNG containers found in their layer blobs.
func ScanOCILayouts(root string, limits Limits, allow PathAllowFunc, emit func(path string, data []byte), stats *Stats) error {
	ign, _ := ignore.Load(filepath.Join(root, ".pngmeignore"))
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if rel == "." {
			return nil
		}
		if ign.Match(rel) {
			return fs.SkipDir
		}
		if !IsOCIImage(p) {
			return nil
		}
		if allow != nil && !allow(rel) {
			return fs.SkipDir
		}
		scanOCILayout(p, rel, limits, emit, stats)
		// blobs inside the layout are already covered; do not descend
		return fs.SkipDir
	})
	return nil
}

func scanOCILayout(dir, rel string, limits Limits, emit func(path string, data []byte), stats *Stats) {
	index, err := ParseOCIIndex(filepath.Join(dir, "index.json"))
	if err != nil {
		return
	}

	deadline := artifactDeadline(limits)
	var decompressed int64
	var entries int

	for _, md := range index.Manifests {
		mp := blobPath(dir, md.Digest)
		if mp == "" {
			continue
		}
		manifest, err := ParseOCIManifest(mp)
		if err != nil {
			continue
		}
		for _, layer := range manifest.Layers {
			if r := limitsExceededReason(limits, decompressed, entries, 0, deadline); r != "" {
				stats.add(r)
				return
			}
			lp := blobPath(dir, layer.Digest)
			if lp == "" {
				continue
			}
			f, err := os.Open(lp)
			if err != nil {
				continue
			}
			vp := vpath.Join(rel, layer.Digest)
			if strings.Contains(layer.MediaType, "gzip") {
				gz, err := gzip.NewReader(f)
				if err != nil {
					safeClose(f)
					continue
				}
				_ = scanTarReaderJoin(vp, "/", limits, &decompressed, &entries, 1, deadline, emit, gz, stats)
				safeClose(gz)
			} else {
				_ = scanTarReaderJoin(vp, "/", limits, &decompressed, &entries, 1, deadline, emit, f, stats)
			}
			safeClose(f)
		}
	}
}
