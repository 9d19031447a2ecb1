package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AlekLefebvre/pngme/internal/types"
)

// ScanRecord is one line of the audit journal: either a whole scan or a
// single codec action (encode, decode, remove, strip) against one container.
type ScanRecord struct {
	Timestamp      time.Time        `json:"timestamp"`
	ScanID         string           `json:"scan_id"`
	Action         string           `json:"action"`
	Root           string           `json:"root"`
	Target         string           `json:"target,omitempty"`     // file a codec action touched
	ChunkType      string           `json:"chunk_type,omitempty"` // chunk type a codec action touched
	TotalFindings  int              `json:"total_findings"`
	NewFindings    int              `json:"new_findings"`
	BaselinedCount int              `json:"baselined_count"`
	SeverityCounts map[string]int   `json:"severity_counts,omitempty"`
	FilesScanned   int              `json:"files_scanned"`
	Duration       string           `json:"duration,omitempty"`
	BaselineFile   string           `json:"baseline_file,omitempty"`
	TopFindings    []FindingSummary `json:"top_findings,omitempty"`
	AllFindings    []types.Finding  `json:"all_findings,omitempty"`
}

// FindingSummary is the abbreviated form kept in TopFindings.
type FindingSummary struct {
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Offset   int64  `json:"offset"`
}

// AuditLog appends to and reads a JSONL journal kept next to the other
// pngme state: under .git when root is a repo, as a dotfile otherwise.
type AuditLog struct {
	logPath string
}

func NewAuditLog(root string) *AuditLog {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return &AuditLog{logPath: filepath.Join(gitDir, "pngme_audit.jsonl")}
	}
	return &AuditLog{logPath: filepath.Join(root, ".pngme_audit.jsonl")}
}

// LoadHistory returns all records, newest first. Unreadable lines are
// dropped rather than failing the whole read.
func (a *AuditLog) LoadHistory() ([]ScanRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec ScanRecord
		if dec.Decode(&rec) != nil {
			continue
		}
		records = append(records, rec)
	}
	reverse(records)
	return records, nil
}

// LogScan appends one record. The journal holds finding metadata, so it is
// written owner-only.
func (a *AuditLog) LogScan(record ScanRecord) error {
	if record.ScanID == "" {
		record.ScanID = fmt.Sprintf("scan_%d", time.Now().Unix())
	}
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at the given newest-first index and
// rewrites the journal.
func (a *AuditLog) DeleteRecord(index int) error {
	records, err := a.LoadHistory()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)
	reverse(records) // back to append order

	f, err := os.Create(a.logPath)
	if err != nil {
		return fmt.Errorf("rewrite audit log: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("append audit record: %w", err)
		}
	}
	return nil
}

// CreateScanRecord summarizes one finished scan. Payload previews are
// blanked so the journal never stores hidden message content.
func CreateScanRecord(root string, allFindings, newFindings []types.Finding, filesScanned int, duration time.Duration, baselineFile string) ScanRecord {
	severityCounts := make(map[string]int)
	for _, f := range allFindings {
		severityCounts[string(f.Severity)]++
	}

	top := make([]FindingSummary, 0, 10)
	for _, f := range newFindings {
		if len(top) == 10 {
			break
		}
		top = append(top, FindingSummary{
			Path:     f.Path,
			Rule:     f.Rule,
			Type:     f.Type,
			Severity: string(f.Severity),
			Offset:   f.Offset,
		})
	}

	return ScanRecord{
		Timestamp:      time.Now(),
		Action:         "scan",
		Root:           root,
		TotalFindings:  len(allFindings),
		NewFindings:    len(newFindings),
		BaselinedCount: len(allFindings) - len(newFindings),
		SeverityCounts: severityCounts,
		FilesScanned:   filesScanned,
		Duration:       duration.String(),
		BaselineFile:   baselineFile,
		TopFindings:    top,
		AllFindings:    redactPreviews(allFindings),
	}
}

// CreateOpRecord records a codec action against a single container.
func CreateOpRecord(action, root, target, chunkType string) ScanRecord {
	return ScanRecord{
		Timestamp: time.Now(),
		ScanID:    fmt.Sprintf("%s_%d", action, time.Now().Unix()),
		Action:    action,
		Root:      root,
		Target:    target,
		ChunkType: chunkType,
	}
}

func redactPreviews(findings []types.Finding) []types.Finding {
	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		out[i] = f
		if f.Preview != "" {
			out[i].Preview = "[REDACTED]"
		}
	}
	return out
}

func reverse(records []ScanRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
