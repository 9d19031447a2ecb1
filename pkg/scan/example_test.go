package scan_test

import (
	"fmt"
	"os"
	"time"

	"github.com/AlekLefebvre/pngme/pkg/scan"
)

// ExampleScan demonstrates how to scan a directory for suspicious chunks.
func ExampleScan() {
	// 1. Configure the scan
	cfg := scan.Config{
		Root:         ".",             // Scan the current directory
		Threads:      4,               // Number of concurrent workers
		IncludeGlobs: "*.png",         // Only scan PNG files (optional)
		MaxBytes:     8 * 1024 * 1024, // Skip files larger than 8MB
	}

	// 2. Run the scan
	findings, err := scan.Scan(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return
	}

	// 3. Process findings
	if len(findings) == 0 {
		fmt.Println("No suspicious chunks found.")
	} else {
		fmt.Printf("Found %d suspicious chunks.\n", len(findings))
		// Helper to write JSON output to stdout
		_ = scan.MarshalFindings(os.Stdout, findings)
	}
}

// ExampleScanWithStats shows how to run a scan and retrieve execution statistics.
func ExampleScanWithStats() {
	cfg := scan.Config{
		Root:           "testdata/images",
		ScanTimeBudget: 5 * time.Second, // Time limit per artifact
	}

	// Run scan and get detailed result object
	result, err := scan.ScanWithStats(cfg)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Scanned %d files in %s\n", result.FilesScanned, result.Duration)
	fmt.Printf("Found %d suspicious chunks\n", len(result.Findings))

	// Check artifact scanning stats
	if result.ArtifactStats.AbortedByTime > 0 {
		fmt.Printf("Warning: %d artifacts timed out\n", result.ArtifactStats.AbortedByTime)
	}
}
