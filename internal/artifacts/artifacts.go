package artifacts

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/ignore"
	"github.com/AlekLefebvre/pngme/internal/vpath"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

// Limits bounds deep scanning of a single artifact. MaxArchiveBytes caps
// decompressed output, MaxEntries caps emitted members, MaxDepth caps
// archive-in-archive nesting, and TimeBudget is a per-artifact wall clock.
// GlobalDeadline, when set, additionally cuts off the whole deep-scan pass.
type Limits struct {
	MaxArchiveBytes int64
	MaxEntries      int
	MaxDepth        int
	TimeBudget      time.Duration
	GlobalDeadline  time.Time
}

// artifactDeadline starts the per-artifact clock. Zero means unbudgeted.
func artifactDeadline(l Limits) time.Time {
	if l.TimeBudget <= 0 {
		return time.Time{}
	}
	return time.Now().Add(l.TimeBudget)
}

// PathAllowFunc returns true if the given relative artifact filename should be
// considered for deep scanning (after .pngmeignore filtering). When nil,
// all artifact filenames are allowed.
type PathAllowFunc func(rel string) bool

// Stats counts artifacts aborted by each limit so callers can report
// truncated coverage instead of silently under-scanning.
type Stats struct {
	AbortedByBytes   int
	AbortedByEntries int
	AbortedByDepth   int
	AbortedByTime    int
}

func (s *Stats) add(reason string) {
	if s == nil {
		return
	}
	switch reason {
	case "bytes":
		s.AbortedByBytes++
	case "entries":
		s.AbortedByEntries++
	case "depth":
		s.AbortedByDepth++
	case "time":
		s.AbortedByTime++
	}
}

// ScanArchives walks recognized archive files under root and emits the PNG
// containers found inside them. It enforces per-artifact limits and does not
// extract to disk.
func ScanArchives(root string, limits Limits, emit func(path string, data []byte)) error {
	return ScanArchivesWithStats(root, limits, nil, emit, nil)
}

// ScanArchivesWithStats is like ScanArchives but also consults an optional
// allow predicate and records limit aborts in stats.
func ScanArchivesWithStats(root string, limits Limits, allow PathAllowFunc, emit func(path string, data []byte), stats *Stats) error {
	ign, _ := ignore.Load(filepath.Join(root, ".pngmeignore"))
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if ign.Match(rel) || (allow != nil && !allow(rel)) || !isArchivePath(rel) {
			return nil
		}
		// Docker-save tarballs belong to the container pass.
		if strings.HasSuffix(strings.ToLower(rel), ".tar") {
			if ok, _ := isContainerTar(p); ok {
				return nil
			}
		}
		var decompressed int64
		var entries int
		_ = scanArchiveFile(p, rel, limits, &decompressed, &entries, 0, artifactDeadline(limits), emit, stats)
		return nil
	})
	return nil
}

// ScanContainers walks docker-save image tarballs and emits the PNG
// containers found inside their layers.
// Heuristic: presence of manifest.json or entries ending with "/layer.tar".
func ScanContainers(root string, limits Limits, emit func(path string, data []byte)) error {
	return ScanContainersWithStats(root, limits, nil, emit, nil)
}

// ScanContainersWithStats is like ScanContainers but also consults an optional
// allow predicate and records limit aborts in stats.
func ScanContainersWithStats(root string, limits Limits, allow PathAllowFunc, emit func(path string, data []byte), stats *Stats) error {
	ign, _ := ignore.Load(filepath.Join(root, ".pngmeignore"))
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if ign.Match(rel) || !strings.HasSuffix(strings.ToLower(rel), ".tar") {
			return nil
		}
		if ok, err := isContainerTar(p); err != nil || !ok {
			return nil
		}
		if allow != nil && !allow(rel) {
			return nil
		}
		return scanDockerSave(p, rel, limits, emit, stats)
	})
	return nil
}

// scanDockerSave streams each layer tar inside a docker-save tarball without
// extracting anything to disk. Layer members count against one shared budget.
func scanDockerSave(fullPath, rel string, limits Limits, emit func(path string, data []byte), stats *Stats) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	deadline := artifactDeadline(limits)
	var decompressed int64
	var entries int
	tr := tar.NewReader(f)
	for {
		if reason := limitsExceededReason(limits, decompressed, entries, 0, deadline); reason != "" {
			stats.add(reason)
			return nil
		}
		hdr, err := tr.Next()
		if err != nil || hdr == nil {
			return nil
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(hdr.Name, "/layer.tar") && !strings.HasSuffix(hdr.Name, `\layer.tar`) {
			continue
		}
		// The path element before layer.tar names the layer.
		layerID := filepath.Dir(hdr.Name)
		if i := strings.LastIndexAny(layerID, `/\`); i >= 0 {
			layerID = layerID[i+1:]
		}
		lr := &io.LimitedReader{R: tr, N: hdr.Size}
		_ = scanTarReaderJoin(vpath.Join(rel, layerID), "/", limits, &decompressed, &entries, 1, deadline, emit, lr, stats)
	}
}

// scanArchiveFile dispatches one on-disk archive to the reader for its format.
func scanArchiveFile(fullPath, rel string, limits Limits, decompressed *int64, entries *int, depth int, deadline time.Time, emit func(path string, data []byte), stats *Stats) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	lower := strings.ToLower(rel)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		fi, err := f.Stat()
		if err != nil {
			return nil
		}
		zr, err := zip.NewReader(f, fi.Size())
		if err != nil {
			return nil
		}
		return scanZipEntries(rel, zr, limits, decompressed, entries, depth, deadline, emit, stats)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil
		}
		defer gz.Close()
		return scanTarReader(rel, limits, decompressed, entries, depth, deadline, emit, gz, stats)
	case strings.HasSuffix(lower, ".tar"):
		return scanTarReader(rel, limits, decompressed, entries, depth, deadline, emit, f, stats)
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil
		}
		defer gz.Close()
		return scanGzipStream(rel, strings.TrimSuffix(rel, ".gz"), gz, limits, decompressed, entries, deadline, emit)
	}
	return nil
}

// scanNestedArchive recurses into an archive found inside another archive.
// The blob is already in memory; depth guards runaway nesting.
func scanNestedArchive(pathChain, name string, blob []byte, limits Limits, decompressed *int64, entries *int, depth int, deadline time.Time, emit func(path string, data []byte), stats *Stats) error {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
		if err != nil {
			return nil
		}
		return scanZipEntries(pathChain, zr, limits, decompressed, entries, depth, deadline, emit, stats)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(bytes.NewReader(blob))
		if err != nil {
			return nil
		}
		defer gz.Close()
		return scanTarReader(pathChain, limits, decompressed, entries, depth, deadline, emit, gz, stats)
	case strings.HasSuffix(lower, ".tar"):
		return scanTarReader(pathChain, limits, decompressed, entries, depth, deadline, emit, bytes.NewReader(blob), stats)
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(bytes.NewReader(blob))
		if err != nil {
			return nil
		}
		defer gz.Close()
		return scanGzipStream(pathChain, strings.TrimSuffix(filepath.Base(pathChain), ".gz"), gz, limits, decompressed, entries, deadline, emit)
	}
	return nil
}

func scanZipEntries(pathChain string, zr *zip.Reader, limits Limits, decompressed *int64, entries *int, depth int, deadline time.Time, emit func(path string, data []byte), stats *Stats) error {
	for _, f := range zr.File {
		if reason := limitsExceededReason(limits, *decompressed, *entries, depth, deadline); reason != "" {
			stats.add(reason)
			return nil
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, readErr := readAllBounded(rc, limits, decompressed, deadline)
		_ = rc.Close()
		if readErr != nil {
			continue
		}
		if isArchivePath(f.Name) && depth < limits.MaxDepth {
			_ = scanNestedArchive(vpath.Join(pathChain, f.Name), f.Name, b, limits, decompressed, entries, depth+1, deadline, emit, stats)
			continue
		}
		if !isPNGEntry(f.Name, b) {
			continue
		}
		emit(vpath.Join(pathChain, f.Name), b)
		*entries++
	}
	return nil
}

// scanGzipStream handles a bare gzip member (not a tarball). The original
// filename comes from the gzip header when the compressor recorded one.
func scanGzipStream(pathChain, fallback string, gz *gzip.Reader, limits Limits, decompressed *int64, entries *int, deadline time.Time, emit func(path string, data []byte)) error {
	name := gz.Name
	if name == "" {
		name = fallback
	}
	b, err := readAllBounded(gz, limits, decompressed, deadline)
	if err != nil {
		return nil
	}
	if !isPNGEntry(name, b) {
		return nil
	}
	emit(vpath.Join(pathChain, name), b)
	*entries++
	return nil
}

func scanTarReader(archivePath string, limits Limits, decompressed *int64, entries *int, depth int, deadline time.Time, emit func(path string, data []byte), r io.Reader, stats *Stats) error {
	return scanTarReaderJoin(archivePath, vpath.Separator, limits, decompressed, entries, depth, deadline, emit, r, stats)
}

// scanTarReaderJoin walks a tar stream and emits its PNG members. sep joins
// member names onto the chain; container layers pass "/" so the chain reads
// like a registry path.
func scanTarReaderJoin(archivePath, sep string, limits Limits, decompressed *int64, entries *int, depth int, deadline time.Time, emit func(path string, data []byte), r io.Reader, stats *Stats) error {
	tr := tar.NewReader(r)
	for {
		if reason := limitsExceededReason(limits, *decompressed, *entries, depth, deadline); reason != "" {
			stats.add(reason)
			return nil
		}
		hdr, err := tr.Next()
		if err != nil || hdr == nil {
			return nil
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		b, readErr := readAllBounded(tr, limits, decompressed, deadline)
		if readErr != nil {
			continue
		}
		if isArchivePath(hdr.Name) && depth < limits.MaxDepth {
			_ = scanNestedArchive(archivePath+sep+hdr.Name, hdr.Name, b, limits, decompressed, entries, depth+1, deadline, emit, stats)
			continue
		}
		if !isPNGEntry(hdr.Name, b) {
			continue
		}
		emit(archivePath+sep+hdr.Name, b)
		*entries++
	}
}

var archiveExts = []string{".zip", ".tar.gz", ".tgz", ".tar", ".gz"}

func isArchivePath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// isPNGEntry decides whether an archive entry is a container worth parsing:
// by name, or by signature for entries whose name lies.
func isPNGEntry(name string, b []byte) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".apng") {
		return true
	}
	return png.HasSignature(b)
}

// isContainerTar sniffs whether a .tar is a docker-save image: those carry a
// manifest.json or per-layer layer.tar members.
func isContainerTar(fullPath string) (bool, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return false, err
	}
	defer f.Close()
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err != nil || hdr == nil {
			return false, nil
		}
		if hdr.Name == "manifest.json" || strings.HasSuffix(hdr.Name, "/layer.tar") || strings.HasSuffix(hdr.Name, `\layer.tar`) {
			return true, nil
		}
	}
}

var (
	errByteBudget = errors.New("artifact byte budget exhausted")
	errTimeBudget = errors.New("artifact time budget exhausted")
)

// readAllBounded drains r while charging decompressed bytes against the
// shared budget. The deadline is re-checked every 32 KiB so a slow stream
// cannot run far past it.
func readAllBounded(r io.Reader, limits Limits, decompressed *int64, deadline time.Time) ([]byte, error) {
	remain := int64(1 << 62)
	if limits.MaxArchiveBytes > 0 {
		remain = limits.MaxArchiveBytes - *decompressed
		if remain <= 0 {
			return nil, errByteBudget
		}
	}
	var buf bytes.Buffer
	const step = int64(32 * 1024)
	for remain > 0 {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errTimeBudget
		}
		n, err := io.CopyN(&buf, r, min(step, remain))
		*decompressed += n
		remain -= n
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// limitsExceededReason names the first exhausted limit, or "" when work may
// continue. The returned name doubles as the Stats counter key.
func limitsExceededReason(l Limits, decompressed int64, entries, depth int, deadline time.Time) string {
	switch {
	case l.MaxEntries > 0 && entries >= l.MaxEntries:
		return "entries"
	case l.MaxArchiveBytes > 0 && decompressed >= l.MaxArchiveBytes:
		return "bytes"
	case l.MaxDepth > 0 && depth > l.MaxDepth:
		return "depth"
	case !deadline.IsZero() && time.Now().After(deadline):
		return "time"
	case !l.GlobalDeadline.IsZero() && time.Now().After(l.GlobalDeadline):
		return "time"
	}
	return ""
}

func safeClose(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
