package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/AlekLefebvre/pngme/internal/types"
)

// ScanResults is the persisted output of the last scan, reloaded by
// "pngme browse" and "pngme upload" so neither has to rescan.
type ScanResults struct {
	Findings  []types.Finding `json:"findings"`
	Timestamp time.Time       `json:"timestamp"`
	Root      string          `json:"root"`
	Count     int             `json:"count"`
}

func resultsPath(root string) string {
	return stateFile(root, "pngme_last_scan.json", ".pngme_last_scan.json")
}

// SaveResults snapshots findings for root, stamped with the current time.
func SaveResults(root string, findings []types.Finding) error {
	b, err := json.MarshalIndent(ScanResults{
		Findings:  findings,
		Timestamp: time.Now(),
		Root:      root,
		Count:     len(findings),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0644)
}

// LoadResults reads the snapshot written by the last scan of root.
func LoadResults(root string) (ScanResults, error) {
	var results ScanResults
	raw, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return results, err
	}
	err = json.Unmarshal(raw, &results)
	return results, err
}
