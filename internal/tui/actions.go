package tui

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// baselineFile is the workspace-relative baseline the browse actions read
// and update. It matches the default used by the scan command.
const baselineFile = "pngme.baseline.json"

// statusMsg updates the status bar at the bottom of the screen.
type statusMsg string

func statusCmd(format string, args ...any) tea.Cmd {
	s := fmt.Sprintf(format, args...)
	return func() tea.Msg { return statusMsg(s) }
}

// isVirtualPath reports whether a finding path points inside an archive or
// container layer rather than at a file on disk.
func isVirtualPath(path string) bool {
	return strings.Contains(path, "::")
}

// parseVirtualPath splits a virtual path into the on-disk archive and the
// chain inside it, e.g. "image.tar::layer123::assets/icon.png" becomes
// ("image.tar", "layer123::assets/icon.png").
func parseVirtualPath(path string) (archive string, internal string) {
	idx := strings.Index(path, "::")
	if idx == -1 {
		return path, ""
	}
	return path[:idx], path[idx+2:]
}

// extractVirtualFile materializes a virtual path as a real file in a fresh
// temp directory so an editor can open it. The caller removes the directory
// when done.
func extractVirtualFile(virtualPath string) (string, error) {
	archive, internal := parseVirtualPath(virtualPath)
	if internal == "" {
		return "", fmt.Errorf("not a virtual path: %s", virtualPath)
	}

	tempDir, err := os.MkdirTemp("", "pngme-extract-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	content, err := extractFromArchive(archive, internal)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", err
	}

	// Name the file after the innermost chain element.
	parts := strings.Split(internal, "::")
	outputPath := filepath.Join(tempDir, parts[len(parts)-1])
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return outputPath, nil
}

func extractFromArchive(archivePath string, internalPath string) ([]byte, error) {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractFromZip(archivePath, internalPath)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractFromTarGz(archivePath, internalPath)
	case strings.HasSuffix(lower, ".tar"):
		return extractFromTar(archivePath, internalPath)
	case strings.HasSuffix(lower, ".gz"):
		return extractFromGz(archivePath)
	}
	return nil, fmt.Errorf("unsupported archive type: %s", archivePath)
}

// entryMatches reports whether an archive member name refers to target,
// exactly or as its trailing path element.
func entryMatches(name, target string) bool {
	return name == target || strings.HasSuffix(name, "/"+target)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// findInZip resolves a chain within already-opened zip members, recursing
// through nested archives when the chain has more than one element.
func findInZip(files []*zip.File, internalPath string) ([]byte, error) {
	parts := strings.Split(internalPath, "::")
	if len(parts) > 1 {
		nested := parts[0]
		for _, f := range files {
			if !entryMatches(f.Name, nested) {
				continue
			}
			content, err := readZipEntry(f)
			if err != nil {
				return nil, err
			}
			return extractFromNestedArchive(nested, content, strings.Join(parts[1:], "::"))
		}
		return nil, fmt.Errorf("nested archive not found: %s", nested)
	}

	target := parts[0]
	for _, f := range files {
		if entryMatches(f.Name, target) {
			return readZipEntry(f)
		}
	}
	return nil, fmt.Errorf("file not found in zip: %s", target)
}

func extractFromZip(archivePath string, internalPath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer func() { _ = r.Close() }()
	return findInZip(r.File, internalPath)
}

func extractFromTar(archivePath string, internalPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open tar: %w", err)
	}
	defer func() { _ = f.Close() }()
	return extractFromTarReader(tar.NewReader(f), internalPath)
}

func extractFromTarGz(archivePath string, internalPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open tgz: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()
	return extractFromTarReader(tar.NewReader(gz), internalPath)
}

func extractFromTarReader(tr *tar.Reader, internalPath string) ([]byte, error) {
	parts := strings.Split(internalPath, "::")
	targetFile := parts[len(parts)-1]

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(parts) > 1 {
			nested := parts[0]
			rest := strings.Join(parts[1:], "::")
			// Container layers live at <layerID>/layer.tar; the chain
			// element names the layer, not the member.
			if strings.HasSuffix(hdr.Name, "/layer.tar") {
				layerID := filepath.Dir(hdr.Name)
				if i := strings.LastIndex(layerID, "/"); i >= 0 {
					layerID = layerID[i+1:]
				}
				if layerID == nested {
					content, err := io.ReadAll(tr)
					if err != nil {
						return nil, err
					}
					return extractFromNestedArchive("layer.tar", content, rest)
				}
			}
			if entryMatches(hdr.Name, nested) {
				content, err := io.ReadAll(tr)
				if err != nil {
					return nil, err
				}
				return extractFromNestedArchive(nested, content, rest)
			}
			continue
		}

		if entryMatches(hdr.Name, targetFile) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("file not found in tar: %s", targetFile)
}

func extractFromGz(archivePath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open gz: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()
	return io.ReadAll(gz)
}

func extractFromNestedArchive(archiveName string, content []byte, internalPath string) ([]byte, error) {
	lower := strings.ToLower(archiveName)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return nil, err
		}
		return findInZip(r.File, internalPath)

	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		return extractFromTarReader(tar.NewReader(gz), internalPath)

	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, "layer.tar"):
		return extractFromTarReader(tar.NewReader(bytes.NewReader(content)), internalPath)
	}

	// The chain bottomed out on a plain member.
	if internalPath == "" || internalPath == archiveName {
		return content, nil
	}
	return nil, fmt.Errorf("unsupported nested archive type: %s", archiveName)
}

func editorCommand() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vim"
}

// openVirtualFile extracts a virtual path to temp and opens the copy in the
// editor; the temp directory is removed when the editor exits.
func (m Model) openVirtualFile(f *types.Finding) tea.Cmd {
	return func() tea.Msg {
		tempPath, err := extractVirtualFile(f.Path)
		if err != nil {
			return statusMsg(fmt.Sprintf("Extract failed: %v", err))
		}

		c := exec.Command(editorCommand(), tempPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return statusMsg(fmt.Sprintf("Editor error: %v", err))
		}

		_ = os.RemoveAll(filepath.Dir(tempPath))
		return statusMsg(fmt.Sprintf("Opened extracted file: %s", filepath.Base(tempPath)))
	}
}

func (m Model) openEditor() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return nil
	}
	if isVirtualPath(f.Path) {
		return m.openVirtualFile(f)
	}

	// Findings point at byte offsets in a binary container, so there is no
	// line number to hand the editor.
	c := exec.Command(editorCommand(), f.Path)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		if err != nil {
			return statusMsg(fmt.Sprintf("Error opening editor: %v", err))
		}
		return statusMsg("Editor closed")
	})
}

func (m Model) ignoreFile() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return nil
	}

	file, err := os.OpenFile(".pngmeignore", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return statusCmd("Error opening .pngmeignore: %v", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.WriteString(f.Path + "\n"); err != nil {
		return statusCmd("Error writing to .pngmeignore: %v", err)
	}
	return statusCmd("Added %s to .pngmeignore", f.Path)
}

func (m Model) unignoreFile() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return nil
	}

	content, err := os.ReadFile(".pngmeignore")
	if err != nil {
		return statusCmd("No .pngmeignore file found")
	}

	// Drop the path line, whether it was added bare or with a /** glob.
	lines := strings.Split(string(content), "\n")
	kept := lines[:0]
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == f.Path || trimmed == f.Path+"/**" {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return statusCmd("%s is not in .pngmeignore", f.Path)
	}

	newContent := strings.TrimRight(strings.Join(kept, "\n"), "\n") + "\n"
	if newContent == "\n" {
		newContent = ""
	}
	if err := os.WriteFile(".pngmeignore", []byte(newContent), 0644); err != nil {
		return statusCmd("Error writing .pngmeignore: %v", err)
	}
	return statusCmd("Removed %s from .pngmeignore", f.Path)
}

// loadOrNewBaseline reads the workspace baseline, starting empty when the
// file is absent or unreadable.
func loadOrNewBaseline() report.Baseline {
	base, err := report.LoadBaseline(baselineFile)
	if err != nil {
		return report.Baseline{Items: map[string]bool{}}
	}
	return base
}

func writeBaseline(base report.Baseline) error {
	buf, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(baselineFile, buf, 0644)
}

func (m Model) addToBaseline() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return nil
	}

	base := loadOrNewBaseline()
	base.Items[report.Key(*f)] = true
	if err := writeBaseline(base); err != nil {
		return statusCmd("Error writing baseline: %v", err)
	}
	return statusCmd("Added finding to baseline")
}

func (m *Model) removeFromBaseline() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return nil
	}

	key := report.Key(*f)
	if !m.baselinedSet[key] {
		return statusCmd("Finding is not baselined")
	}

	base, err := report.LoadBaseline(baselineFile)
	if err != nil {
		return statusCmd("Error loading baseline: %v", err)
	}
	delete(base.Items, key)
	if err := writeBaseline(base); err != nil {
		return statusCmd("Error writing baseline: %v", err)
	}

	delete(m.baselinedSet, key)

	// Redraw the row without its (b) marker.
	idx := m.table.Cursor()
	rows := m.table.Rows()
	if idx >= 0 && idx < len(rows) {
		rows[idx][0] = severityText(f.Severity)
		m.table.SetRows(rows)
	}
	return statusCmd("Removed finding from baseline")
}

func (m Model) getSelectedFinding() *types.Finding {
	idx := m.table.Cursor()

	if m.groupMode != GroupNone && len(m.groupedFindings) > 0 {
		if idx >= 0 && idx < len(m.groupedFindings) {
			item := m.groupedFindings[idx]
			if item.IsGroup {
				return nil
			}
			return item.Finding
		}
		return nil
	}

	displayFindings := m.getDisplayFindings()
	if idx >= 0 && idx < len(displayFindings) {
		return &displayFindings[idx]
	}
	return nil
}

// bulkBaseline accepts every selected finding into the baseline.
func (m *Model) bulkBaseline() tea.Cmd {
	if len(m.selectedFindings) == 0 {
		return statusCmd("No findings selected")
	}

	base := loadOrNewBaseline()
	count := 0
	for origIdx := range m.selectedFindings {
		if origIdx < 0 || origIdx >= len(m.findings) {
			continue
		}
		key := report.Key(m.findings[origIdx])
		if !base.Items[key] {
			base.Items[key] = true
			count++
		}
	}
	if err := writeBaseline(base); err != nil {
		return statusCmd("Error writing baseline: %v", err)
	}

	m.selectedFindings = make(map[int]bool)
	return statusCmd("Added %d findings to baseline", count)
}

// bulkIgnore writes the distinct file paths of the selected findings to
// .pngmeignore.
func (m *Model) bulkIgnore() tea.Cmd {
	if len(m.selectedFindings) == 0 {
		return statusCmd("No findings selected")
	}

	paths := make(map[string]bool)
	for origIdx := range m.selectedFindings {
		if origIdx >= 0 && origIdx < len(m.findings) {
			paths[m.findings[origIdx].Path] = true
		}
	}

	file, err := os.OpenFile(".pngmeignore", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return statusCmd("Error opening .pngmeignore: %v", err)
	}
	defer func() { _ = file.Close() }()

	for path := range paths {
		if _, err := file.WriteString(path + "\n"); err != nil {
			return statusCmd("Error writing to .pngmeignore: %v", err)
		}
	}

	m.selectedFindings = make(map[int]bool)
	return statusCmd("Added %d files to .pngmeignore", len(paths))
}

func (m Model) copyPathToClipboard() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return statusCmd("No finding selected")
	}
	if err := clipboard.WriteAll(f.Path); err != nil {
		return statusCmd("Clipboard error: %v", err)
	}
	return statusCmd("Copied: %s", f.Path)
}

// copyFindingToClipboard copies the full finding record as readable text.
func (m Model) copyFindingToClipboard() tea.Cmd {
	f := m.getSelectedFinding()
	if f == nil {
		return statusCmd("No finding selected")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Path: %s\n", f.Path)
	if f.Type != "" {
		fmt.Fprintf(&sb, "Chunk: %s (#%d)\n", f.Type, f.Index)
	}
	fmt.Fprintf(&sb, "Offset: %d\n", f.Offset)
	if f.Length > 0 {
		fmt.Fprintf(&sb, "Length: %d\n", f.Length)
	}
	if f.CRC != 0 {
		fmt.Fprintf(&sb, "CRC: %08x\n", f.CRC)
	}
	fmt.Fprintf(&sb, "Rule: %s\n", f.Rule)
	fmt.Fprintf(&sb, "Severity: %s\n", f.Severity)
	fmt.Fprintf(&sb, "Confidence: %.2f\n", f.Confidence)
	if f.Preview != "" {
		fmt.Fprintf(&sb, "Preview: %s\n", f.Preview)
	}
	if f.Context != "" {
		fmt.Fprintf(&sb, "\nContext:\n%s\n", f.Context)
	}
	for k, v := range f.Metadata {
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}

	if err := clipboard.WriteAll(sb.String()); err != nil {
		return statusCmd("Clipboard error: %v", err)
	}
	return statusCmd("Copied finding details to clipboard")
}

// exportFindings writes the current view to a timestamped file in the
// working directory.
func (m *Model) exportFindings(format string) tea.Cmd {
	displayFindings := m.getDisplayFindings()
	if len(displayFindings) == 0 {
		return statusCmd("No findings to export")
	}

	timestamp := time.Now().Format("20060102-150405")
	var filename string
	var data []byte
	var err error
	switch format {
	case "json":
		filename = fmt.Sprintf("pngme-export-%s.json", timestamp)
		var buf bytes.Buffer
		err = report.WriteJSON(&buf, displayFindings)
		data = buf.Bytes()
	case "csv":
		filename = fmt.Sprintf("pngme-export-%s.csv", timestamp)
		data, err = findingsToCSV(displayFindings)
	case "sarif":
		filename = fmt.Sprintf("pngme-export-%s.sarif", timestamp)
		var buf bytes.Buffer
		err = report.WriteSARIF(&buf, displayFindings)
		data = buf.Bytes()
	default:
		return statusCmd("Unknown format: %s", format)
	}
	if err != nil {
		return statusCmd("Export error: %v", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return statusCmd("Write error: %v", err)
	}
	absPath, _ := filepath.Abs(filename)
	return statusCmd("Exported %d findings to %s", len(displayFindings), absPath)
}

func findingsToCSV(findings []types.Finding) ([]byte, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	if err := writer.Write([]string{"Severity", "Rule", "Type", "Path", "Offset", "Length", "CRC", "Confidence", "Preview"}); err != nil {
		return nil, err
	}
	for _, f := range findings {
		row := []string{
			string(f.Severity),
			f.Rule,
			f.Type,
			f.Path,
			fmt.Sprintf("%d", f.Offset),
			fmt.Sprintf("%d", f.Length),
			fmt.Sprintf("%08x", f.CRC),
			fmt.Sprintf("%.2f", f.Confidence),
			f.Preview,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return []byte(sb.String()), writer.Error()
}
