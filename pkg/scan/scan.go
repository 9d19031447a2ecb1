package scan

import (
	"github.com/AlekLefebvre/pngme/internal/engine"
	"github.com/AlekLefebvre/pngme/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
// We can replace these with decoupled structs later without breaking callers.
type Config = engine.Config
type Finding = types.Finding
type Result = engine.Result
type Severity = types.Severity

// Severity levels, for filtering findings without importing internals.
const (
	SevLow  = types.SevLow
	SevMed  = types.SevMed
	SevHigh = types.SevHigh
)

// Scan is the stable entrypoint for other programs.
func Scan(cfg Config) ([]Finding, error) {
	return engine.Scan(cfg)
}

// ScanWithStats runs a scan and returns findings together with execution
// statistics such as file counts and artifact budget aborts.
func ScanWithStats(cfg Config) (Result, error) {
	return engine.ScanWithStats(cfg)
}

// RuleIDs returns the list of configured rule IDs.
// This is exposed for convenience to avoid importing internals directly.
func RuleIDs() []string { return engine.RuleIDs() }
