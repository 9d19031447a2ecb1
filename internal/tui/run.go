package tui

import (
	"fmt"
	"time"

	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

// launch runs a model in the alternate screen until the user quits.
func launch(m Model) error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// asCached marks a model as showing results restored from the results cache,
// stamping the header with when they were produced.
func asCached(m Model, timestamp time.Time) Model {
	m.viewingCached = true
	m.lastScanTime = timestamp
	return m
}

// Run opens the finding browser on live findings.
func Run(findings []types.Finding, rescanFunc func() ([]types.Finding, error)) error {
	return launch(NewModel(findings, rescanFunc))
}

// RunWithBaseline is Run with baselined findings marked and counted apart.
func RunWithBaseline(findings []types.Finding, baseline report.Baseline, rescanFunc func() ([]types.Finding, error)) error {
	return launch(NewModelWithBaseline(findings, baseline, rescanFunc))
}

// RunCached opens the browser on a previous scan loaded from the cache.
func RunCached(findings []types.Finding, rescanFunc func() ([]types.Finding, error), timestamp time.Time) error {
	return launch(asCached(NewModel(findings, rescanFunc), timestamp))
}

// RunCachedWithBaseline combines RunCached and RunWithBaseline.
func RunCachedWithBaseline(findings []types.Finding, baseline report.Baseline, rescanFunc func() ([]types.Finding, error), timestamp time.Time) error {
	return launch(asCached(NewModelWithBaseline(findings, baseline, rescanFunc), timestamp))
}
