package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
}

// WriteJSON writes findings to w as an indented JSON array, the machine
// equivalent of PrintText.
func WriteJSON(w io.Writer, findings []types.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

func sortFindings(findings []types.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path == findings[j].Path {
			return findings[i].Offset < findings[j].Offset
		}
		return findings[i].Path < findings[j].Path
	})
}

// PrintText renders findings as aligned plain text, one line per finding.
func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	sortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No suspicious chunks found ✅")
	} else {
		// Column widths
		maxRule := 8
		for _, f := range findings {
			if l := len(f.Rule); l > maxRule {
				maxRule = l
			}
		}
		// Header and rows
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			sev := string(f.Severity)
			if !opts.NoColor {
				sev = colorSeverity(f.Severity)
			}
			fmt.Fprintf(w, "%-6s %-*s %s@%d %-4s %s\n", sev, maxRule, f.Rule, f.Path, f.Offset, f.Type, clipValue(f.Preview))
		}
	}
	footer(w, findings, opts)
}

// PrintTable renders findings as a bordered table.
func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	sortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No suspicious chunks found ✅")
		footer(w, findings, opts)
		return
	}
	tbl := tablewriter.NewTable(w)
	tbl.Header([]string{"SEVERITY", "RULE", "TYPE", "LOCATION", "PREVIEW"})
	for _, f := range findings {
		sev := string(f.Severity)
		if !opts.NoColor {
			sev = colorSeverity(f.Severity)
		}
		_ = tbl.Append([]string{sev, f.Rule, f.Type, fmt.Sprintf("%s@%d", f.Path, f.Offset), clipValue(f.Preview)})
	}
	_ = tbl.Render()
	footer(w, findings, opts)
}

// PrintTypes renders the public chunk registry with the property bits of
// each code.
func PrintTypes(w io.Writer) {
	tbl := tablewriter.NewTable(w)
	tbl.Header([]string{"TYPE", "CRITICAL", "PUBLIC", "SAFE TO COPY", "DESCRIPTION"})
	for _, code := range png.RegisteredTypes() {
		ct, err := png.ChunkTypeFromString(code)
		if err != nil {
			continue
		}
		_ = tbl.Append([]string{
			code,
			yesNo(ct.IsCritical()),
			yesNo(ct.IsPublic()),
			yesNo(ct.IsSafeToCopy()),
			png.Describe(code),
		})
	}
	_ = tbl.Render()
}

func footer(w io.Writer, findings []types.Finding, opts PrintOptions) {
	high, med, low := 0, 0, 0
	for _, f := range findings {
		switch f.Severity {
		case types.SevHigh:
			high++
		case types.SevMed:
			med++
		default:
			low++
		}
	}
	// Summary footer (always show if we have stats)
	if opts.Duration > 0 || opts.FilesScanned > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Findings: %d (high: %d, medium: %d, low: %d)\n", len(findings), high, med, low)
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
		}
		if opts.FilesScanned > 0 {
			fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
		}
	}
}

func clipValue(s string) string {
	const max = 48
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "\x1b[31mhigh\x1b[0m" // red
	case types.SevMed:
		return "\x1b[33mmedium\x1b[0m" // yellow
	default:
		return "\x1b[36mlow\x1b[0m" // cyan
	}
}
