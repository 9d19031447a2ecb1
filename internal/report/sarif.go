// internal/report/sarif.go
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/AlekLefebvre/pngme/internal/types"
)

type sarif struct {
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	RuleIndex int          `json:"ruleIndex"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

// Findings point into binary containers, so regions use byte coordinates
// rather than lines.
type sarifRegion struct {
	ByteOffset int64        `json:"byteOffset"`
	ByteLength uint32       `json:"byteLength"`
	Snippet    sarifSnippet `json:"snippet"`
}

type sarifSnippet struct {
	Text string `json:"text"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

func resultMessage(f types.Finding) string {
	if f.Type == "" {
		if f.Context != "" {
			return f.Rule + ": " + f.Context
		}
		return f.Rule
	}
	msg := fmt.Sprintf("%s: %s chunk at byte %d", f.Rule, f.Type, f.Offset)
	if f.Context != "" {
		msg += " (" + f.Context + ")"
	}
	return msg
}

// WriteSARIF writes findings as SARIF 2.1.0 to the provided writer.
func WriteSARIF(w io.Writer, findings []types.Finding) error {
	return writeSARIF(w, findings, nil)
}

// WriteSARIFWithStats does the same and attaches scan statistics as run
// properties under "artifactStats".
func WriteSARIFWithStats(w io.Writer, findings []types.Finding, stats map[string]int) error {
	var props map[string]any
	if stats != nil {
		props = map[string]any{"artifactStats": stats}
	}
	return writeSARIF(w, findings, props)
}

func writeSARIF(w io.Writer, findings []types.Finding, props map[string]any) error {
	ruleIndex := map[string]int{}
	var rules []sarifRule
	run := sarifRun{Properties: props}
	for _, f := range findings {
		ri, ok := ruleIndex[f.Rule]
		if !ok {
			ri = len(rules)
			ruleIndex[f.Rule] = ri
			rules = append(rules, sarifRule{ID: f.Rule, ShortDescription: sarifMessage{Text: f.Rule}})
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:    f.Rule,
			RuleIndex: ri,
			Level:     sevToLevel(f.Severity),
			Message:   sarifMessage{Text: resultMessage(f)},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{
					ArtifactLocation: sarifArt{URI: f.Path},
					Region: sarifRegion{
						ByteOffset: f.Offset,
						ByteLength: f.Length,
						Snippet:    sarifSnippet{Text: f.Preview},
					},
				},
			}},
		})
	}
	run.Tool = sarifTool{Driver: sarifDriver{
		Name:    "pngme",
		Version: time.Now().Format("2006.01.02"),
		Rules:   rules,
	}}
	doc := sarif{Version: "2.1.0", Runs: []sarifRun{run}}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
