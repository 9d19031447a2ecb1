package tui

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/internal/validate"
	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	previewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	emptyTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Align(lipgloss.Center)

	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	detailPaneBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(1, 4)

	sevHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sevLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// severityText returns plain text for severity (ANSI codes break table truncation).
func severityText(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "HIGH"
	case types.SevMed:
		return "MED"
	case types.SevLow:
		return "LOW"
	default:
		return string(s)
	}
}

// locationText renders a finding's position the same way the text report does.
func locationText(f types.Finding) string {
	return fmt.Sprintf("%s@%d", f.Path, f.Offset)
}

func isBaselined(f types.Finding, baselinedSet map[string]bool) bool {
	if baselinedSet == nil {
		return false
	}
	return baselinedSet[report.Key(f)]
}

func severityRank(s types.Severity) int {
	switch s {
	case types.SevHigh:
		return 0
	case types.SevMed:
		return 1
	case types.SevLow:
		return 2
	default:
		return 3
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// Model holds the whole interactive review session. bubbletea passes it by
// value, so every mutation happens on the copy returned from Update.
type Model struct {
	table       table.Model
	viewport    viewport.Model
	spinner     spinner.Model
	searchInput textinput.Model

	findings     []types.Finding
	baselinedSet map[string]bool
	prefs        Prefs

	// Filtering. filteredFindings is nil when no filter is active;
	// filteredIndices maps a filtered row back to its index in findings.
	filteredFindings []types.Finding
	filteredIndices  []int
	searchMode       bool
	searchQuery      string
	severityFilter   types.Severity

	// Sorting and selection.
	sortColumn       string
	sortReverse      bool
	selectedFindings map[int]bool

	// Scan lifecycle.
	scanning       bool
	hasScannedOnce bool
	lastScanTime   time.Time
	viewingCached  bool
	rescanFunc     func() ([]types.Finding, error)

	// Audit history popup.
	viewingHistorical bool
	showScanHistory   bool
	scanHistory       []audit.ScanRecord
	historySelection  int

	// Diff against the previous recorded scan.
	diffMode          bool
	diffNewFindings   []types.Finding
	diffFixedFindings []types.Finding
	diffPrevTimestamp time.Time

	// Grouped display.
	groupMode       string
	expandedGroups  map[string]bool
	groupedFindings []GroupedItem
	pendingKey      string

	// Layout and transient UI state.
	width          int
	height         int
	ready          bool
	quitting       bool
	showEmpty      bool
	showHelp       bool
	showExportMenu bool
	statusMessage  string
	statusTimeout  *time.Time
	contextLines   int
}

// GroupedItem is one row of the grouped view: either a group header or a
// finding belonging to the group above it.
type GroupedItem struct {
	IsGroup    bool
	GroupKey   string
	GroupCount int
	Finding    *types.Finding
}

const (
	SortDefault  = ""
	SortSeverity = "severity"
	SortPath     = "path"
	SortRule     = "rule"
)

const (
	GroupNone   = "none"
	GroupByFile = "file"
	GroupByRule = "rule"
)

func findingColumns() []table.Column {
	return []table.Column{
		{Title: "Sev", Width: 8},
		{Title: "Rule", Width: 18},
		{Title: "Type", Width: 6},
		{Title: "Location", Width: 40},
		{Title: "Preview", Width: 30},
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Left)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	return s
}

// NewModel initializes a review session over the given findings.
func NewModel(findings []types.Finding, rescanFunc func() ([]types.Finding, error)) Model {
	t := table.New(
		table.WithColumns(findingColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	// Line spinner; Braille spinners render badly on some terminals.
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ti := textinput.New()
	ti.Placeholder = "Search path, rule, type, or preview..."
	ti.CharLimit = 100
	ti.Width = 50
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	m := Model{
		table:            t,
		spinner:          sp,
		searchInput:      ti,
		findings:         findings,
		prefs:            LoadPrefs(),
		rescanFunc:       rescanFunc,
		showEmpty:        len(findings) == 0,
		hasScannedOnce:   true,
		lastScanTime:     time.Now(),
		selectedFindings: make(map[int]bool),
		contextLines:     3,
		groupMode:        GroupNone,
		expandedGroups:   make(map[string]bool),
	}
	m.table.SetRows(m.plainRows(findings))
	m.statusMessage = m.hintLine()
	return m
}

// NewModelWithBaseline is NewModel plus baseline awareness: accepted findings
// get a (b) marker and the status line reports new versus baselined counts.
func NewModelWithBaseline(findings []types.Finding, baseline report.Baseline, rescanFunc func() ([]types.Finding, error)) Model {
	m := NewModel(findings, rescanFunc)
	m.baselinedSet = make(map[string]bool, len(baseline.Items))
	for key := range baseline.Items {
		m.baselinedSet[key] = true
	}

	newCount := 0
	for _, f := range findings {
		if !isBaselined(f, m.baselinedSet) {
			newCount++
		}
	}
	m.rebuildTableRows()

	if len(findings) > 0 && newCount == 0 {
		m.statusMessage = fmt.Sprintf("Showing %d baselined findings | q: quit | ?: help | r: rescan | a: audit log", len(findings))
	} else if newCount < len(findings) {
		m.statusMessage = fmt.Sprintf("%d new, %d baselined | q: quit | ?: help | j/k: navigate | o: open | i: ignore | b: baseline | a: audit", newCount, len(findings)-newCount)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// flash shows a status message that reverts to the hint line after ttl.
func (m *Model) flash(ttl time.Duration, format string, args ...any) {
	t := time.Now().Add(ttl)
	m.statusTimeout = &t
	m.statusMessage = fmt.Sprintf(format, args...)
}

// hintLine is the resting content of the status bar.
func (m *Model) hintLine() string {
	if m.showEmpty {
		return "q: quit | r: rescan | a: audit log"
	}
	return "q: quit | ?: help | j/k: navigate | o: open | r: rescan | i: ignore | b: baseline"
}

// plainRows renders findings as table rows without baseline or selection
// markers.
func (m *Model) plainRows(findings []types.Finding) []table.Row {
	rows := make([]table.Row, len(findings))
	for i, f := range findings {
		rows[i] = table.Row{
			severityText(f.Severity),
			f.Rule,
			f.Type,
			locationText(f),
			m.displayPreview(f),
		}
	}
	return rows
}

// displayPreview returns the preview cell for a finding, redacted when the
// hide-previews preference is on.
func (m *Model) displayPreview(f types.Finding) string {
	if f.Preview == "" {
		return ""
	}
	if m.prefs.HidePreviews {
		return redactPreview(f.Preview)
	}
	return f.Preview
}

type findingsMsg []types.Finding

func (m *Model) rescan() tea.Cmd {
	return func() tea.Msg {
		if m.rescanFunc == nil {
			return statusMsg("Rescan not available")
		}
		newFindings, err := m.rescanFunc()
		if err != nil {
			return statusMsg(fmt.Sprintf("Scan error: %v", err))
		}
		return findingsMsg(newFindings)
	}
}

func findingMatches(f types.Finding, query string) bool {
	for _, field := range []string{f.Path, f.Rule, f.Type, f.Preview} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (m *Model) applyFilters() {
	hasSearchFilter := m.searchQuery != ""
	hasSeverityFilter := m.severityFilter != ""

	if !hasSearchFilter && !hasSeverityFilter {
		m.filteredFindings = nil
		m.filteredIndices = nil
		m.rebuildTableRows()
		return
	}

	// Non-nil even when nothing matches, so an over-narrow filter shows an
	// empty table instead of falling back to the full list.
	filtered := []types.Finding{}
	indices := []int{}
	query := strings.ToLower(m.searchQuery)
	for i, f := range m.findings {
		if hasSeverityFilter && f.Severity != m.severityFilter {
			continue
		}
		if hasSearchFilter && !findingMatches(f, query) {
			continue
		}
		filtered = append(filtered, f)
		indices = append(indices, i)
	}

	m.filteredFindings = filtered
	m.filteredIndices = indices
	m.rebuildTableRows()
}

func (m *Model) clearFilters() {
	m.searchQuery = ""
	m.severityFilter = ""
	m.filteredFindings = nil
	m.filteredIndices = nil
	m.rebuildTableRows()
}

func (m *Model) rebuildTableRows() {
	if m.groupMode != GroupNone {
		m.buildGroupedFindings()
		rows := make([]table.Row, len(m.groupedFindings))
		for i, item := range m.groupedFindings {
			rows[i] = m.groupedRow(item)
		}
		m.table.SetRows(rows)
		if m.table.Cursor() >= len(m.groupedFindings) {
			m.table.SetCursor(0)
		}
		m.showEmpty = len(m.groupedFindings) == 0
		m.updateViewportContent()
		return
	}

	findings := m.getDisplayFindings()
	rows := make([]table.Row, len(findings))
	for i, f := range findings {
		rows[i] = m.flatRow(i, f)
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(findings) {
		m.table.SetCursor(0)
	}
	m.showEmpty = len(findings) == 0
	m.updateViewportContent()
}

func (m *Model) groupedRow(item GroupedItem) table.Row {
	if item.IsGroup {
		icon := "+"
		if m.expandedGroups[item.GroupKey] {
			icon = "-"
		}
		return table.Row{icon, "", "", fmt.Sprintf("%s [%d]", item.GroupKey, item.GroupCount), ""}
	}

	f := item.Finding
	sev := "  " + severityText(f.Severity)
	if isBaselined(*f, m.baselinedSet) {
		sev = "  (b) " + severityText(f.Severity)
	}
	loc := locationText(*f)
	if m.groupMode == GroupByFile {
		// The group header already shows the path.
		loc = fmt.Sprintf("@%d", f.Offset)
	}
	rule := f.Rule
	if m.groupMode == GroupByRule {
		rule = ""
	}
	return table.Row{sev, rule, f.Type, loc, m.displayPreview(*f)}
}

func (m *Model) flatRow(displayIdx int, f types.Finding) table.Row {
	sev := severityText(f.Severity)
	if isBaselined(f, m.baselinedSet) {
		sev = "(b) " + sev
	}
	if len(m.selectedFindings) > 0 {
		mark := "[ ] "
		if m.selectedFindings[m.getOriginalIndex(displayIdx)] {
			mark = "[x] "
		}
		sev = mark + sev
	}
	return table.Row{sev, f.Rule, f.Type, locationText(f), m.displayPreview(f)}
}

func (m *Model) getDisplayFindings() []types.Finding {
	if m.filteredFindings != nil {
		return m.filteredFindings
	}
	return m.findings
}

func (m *Model) getOriginalIndex(displayIdx int) int {
	if m.filteredIndices != nil {
		if displayIdx >= 0 && displayIdx < len(m.filteredIndices) {
			return m.filteredIndices[displayIdx]
		}
		return -1
	}
	return displayIdx
}

// jumpToNextSeverity moves the cursor to the next finding of the given
// severity, wrapping around. direction is 1 for forward, -1 for backward.
func (m *Model) jumpToNextSeverity(severity types.Severity, direction int) bool {
	displayFindings := m.getDisplayFindings()
	if len(displayFindings) == 0 {
		return false
	}

	current := m.table.Cursor()
	n := len(displayFindings)
	for i := 1; i <= n; i++ {
		idx := (current + direction*i + n) % n
		if displayFindings[idx].Severity == severity {
			m.table.SetCursor(idx)
			return true
		}
	}
	return false
}

func (m *Model) filterBySeverity(sev types.Severity) {
	m.severityFilter = sev
	m.applyFilters()
	m.flash(3*time.Second, "Showing %s severity only (Esc to clear)", severityText(sev))
}

func (m *Model) jumpHigh(direction int) {
	if m.jumpToNextSeverity(types.SevHigh, direction) {
		m.updateViewportContent()
	} else {
		m.flash(2*time.Second, "No more HIGH findings")
	}
}

func (m *Model) cycleSortColumn() {
	switch m.sortColumn {
	case SortDefault:
		m.sortColumn = SortSeverity
	case SortSeverity:
		m.sortColumn = SortPath
	case SortPath:
		m.sortColumn = SortRule
	case SortRule:
		m.sortColumn = SortDefault
	}
	m.sortReverse = false
	m.sortFindings()
}

func (m *Model) toggleSortReverse() {
	m.sortReverse = !m.sortReverse
	m.sortFindings()
}

func (m *Model) sortFindings() {
	if m.sortColumn == SortDefault {
		m.rebuildTableRows()
		return
	}

	var less func(a, b types.Finding) bool
	switch m.sortColumn {
	case SortSeverity:
		less = func(a, b types.Finding) bool { return severityRank(a.Severity) < severityRank(b.Severity) }
	case SortPath:
		less = func(a, b types.Finding) bool { return strings.ToLower(a.Path) < strings.ToLower(b.Path) }
	case SortRule:
		less = func(a, b types.Finding) bool { return strings.ToLower(a.Rule) < strings.ToLower(b.Rule) }
	default:
		return
	}

	sort.SliceStable(m.findings, func(i, j int) bool {
		l := less(m.findings[i], m.findings[j])
		if m.sortReverse {
			return !l
		}
		return l
	})
	m.applyFilters()
}

func (m *Model) getSortIndicator() string {
	if m.sortColumn == SortDefault {
		return ""
	}
	arrow := "^"
	if m.sortReverse {
		arrow = "v"
	}
	return fmt.Sprintf(" [%s %s]", m.sortColumn, arrow)
}

func keySet(findings []types.Finding) map[string]bool {
	set := make(map[string]bool, len(findings))
	for _, f := range findings {
		set[report.Key(f)] = true
	}
	return set
}

// computeDiff fills the diff fields by comparing the current findings with
// the previous scan in the audit journal. History is newest first, so the
// previous scan sits at index 1.
func (m *Model) computeDiff() bool {
	history, err := audit.NewAuditLog(".").LoadHistory()
	if err != nil || len(history) < 2 {
		return false
	}

	prev := history[1]
	m.diffPrevTimestamp = prev.Timestamp
	prevKeys := keySet(prev.AllFindings)
	currKeys := keySet(m.findings)

	m.diffNewFindings = nil
	for _, f := range m.findings {
		if !prevKeys[report.Key(f)] {
			m.diffNewFindings = append(m.diffNewFindings, f)
		}
	}
	m.diffFixedFindings = nil
	for _, f := range prev.AllFindings {
		if !currKeys[report.Key(f)] {
			m.diffFixedFindings = append(m.diffFixedFindings, f)
		}
	}
	return true
}

func (m *Model) exitDiffMode() {
	m.diffMode = false
	m.diffNewFindings = nil
	m.diffFixedFindings = nil
	m.rebuildTableRows()
}

// setGroupMode switches to the given grouping, or back to flat when the mode
// is already active. Groups start expanded.
func (m *Model) setGroupMode(mode string) {
	if m.groupMode == mode {
		m.groupMode = GroupNone
		m.groupedFindings = nil
		m.expandedGroups = make(map[string]bool)
	} else {
		m.groupMode = mode
		m.expandedGroups = make(map[string]bool)
		m.buildGroupedFindings()
		for _, item := range m.groupedFindings {
			if item.IsGroup {
				m.expandedGroups[item.GroupKey] = true
			}
		}
	}
	m.rebuildTableRows()
}

func (m *Model) buildGroupedFindings() {
	if m.groupMode == GroupNone {
		m.groupedFindings = nil
		return
	}

	groups := make(map[string][]types.Finding)
	var groupOrder []string
	for _, f := range m.getDisplayFindings() {
		var key string
		switch m.groupMode {
		case GroupByFile:
			key = f.Path
		case GroupByRule:
			key = f.Rule
		default:
			continue
		}
		if _, exists := groups[key]; !exists {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], f)
	}

	m.groupedFindings = nil
	for _, key := range groupOrder {
		findings := groups[key]
		m.groupedFindings = append(m.groupedFindings, GroupedItem{
			IsGroup:    true,
			GroupKey:   key,
			GroupCount: len(findings),
		})
		if !m.expandedGroups[key] {
			continue
		}
		for i := range findings {
			m.groupedFindings = append(m.groupedFindings, GroupedItem{
				GroupKey: key,
				Finding:  &findings[i],
			})
		}
	}
}

func (m *Model) toggleGroupExpansion() {
	if m.groupMode == GroupNone || len(m.groupedFindings) == 0 {
		return
	}
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.groupedFindings) {
		return
	}
	key := m.groupedFindings[idx].GroupKey
	m.expandedGroups[key] = !m.expandedGroups[key]
	m.buildGroupedFindings()
	m.rebuildTableRows()
}

func (m *Model) getGroupedDisplayItem(idx int) *GroupedItem {
	if m.groupMode == GroupNone || idx < 0 || idx >= len(m.groupedFindings) {
		return nil
	}
	return &m.groupedFindings[idx]
}

func (m *Model) expandContext() {
	if m.contextLines < 20 {
		m.contextLines += 2
		if m.contextLines > 20 {
			m.contextLines = 20
		}
		m.updateViewportContent()
	}
}

func (m *Model) contractContext() {
	if m.contextLines > 1 {
		m.contextLines -= 2
		if m.contextLines < 1 {
			m.contextLines = 1
		}
		m.updateViewportContent()
	}
}

// readChunk re-reads the chunk a finding points at from the container on
// disk, so the detail pane shows the live payload rather than the preview
// captured at scan time.
func readChunk(path string, offset int64) (*png.Chunk, error) {
	if strings.Contains(path, "::") {
		return nil, fmt.Errorf("virtual path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("offset %d beyond end of %s", offset, path)
	}

	chunk, _, err := png.DecodeChunk(data[offset:])
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// hexDump formats data as 16-bytes-per-row hex output, at most maxRows rows.
func hexDump(data []byte, maxRows int) []string {
	var rows []string
	for off := 0; off < len(data) && len(rows) < maxRows; off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		hexParts := make([]string, 0, 16)
		var ascii strings.Builder
		for _, c := range row {
			hexParts = append(hexParts, fmt.Sprintf("%02x", c))
			if c >= 0x20 && c < 0x7f {
				ascii.WriteByte(c)
			} else {
				ascii.WriteByte('.')
			}
		}
		rows = append(rows, fmt.Sprintf("%08x  %-47s  |%s|", off, strings.Join(hexParts, " "), ascii.String()))
	}
	return rows
}

type CommitInfo struct {
	Author string
	Date   string
	Commit string
}

// lastCommit returns the most recent commit that touched path, or nil when
// the file is untracked or git is unavailable.
func lastCommit(path string) *CommitInfo {
	if strings.Contains(path, "::") {
		return nil
	}

	cmd := fmt.Sprintf("git log -1 --format=%%H%%x09%%an%%x09%%at -- %q 2>/dev/null", path)
	out, err := runCommand(cmd)
	if err != nil || strings.TrimSpace(out) == "" {
		return nil
	}

	parts := strings.SplitN(strings.TrimSpace(out), "\t", 3)
	if len(parts) != 3 {
		return nil
	}

	info := &CommitInfo{Author: parts[1]}
	if len(parts[0]) >= 8 {
		info.Commit = parts[0][:8]
	}
	if ts, err := parseUnixTimestamp(parts[2]); err == nil {
		info.Date = ts.Format("2006-01-02")
	}
	return info
}

func runCommand(cmd string) (string, error) {
	out, err := execCommand("sh", "-c", cmd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var execCommand = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func parseUnixTimestamp(s string) (time.Time, error) {
	var ts int64
	if _, err := fmt.Sscanf(s, "%d", &ts); err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

// lexerFor matches a chroma lexer by filename, then by bare extension.
func lexerFor(filename string) chroma.Lexer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		if ext := filepath.Ext(filename); ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	return lexer
}

func highlightCode(code string, filename string) string {
	lexer := lexerFor(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

func highlightLine(line string, filename string) string {
	lexer := lexerFor(filename)
	if lexer == nil {
		return line
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (m *Model) toggleSelection() {
	idx := m.table.Cursor()
	origIdx := m.getOriginalIndex(idx)
	if origIdx < 0 {
		return
	}
	if m.selectedFindings[origIdx] {
		delete(m.selectedFindings, origIdx)
	} else {
		m.selectedFindings[origIdx] = true
	}
	m.rebuildTableRows()
	m.table.SetCursor(idx)
}

func (m *Model) selectAll() {
	for i := range m.getDisplayFindings() {
		if origIdx := m.getOriginalIndex(i); origIdx >= 0 {
			m.selectedFindings[origIdx] = true
		}
	}
	m.rebuildTableRows()
}

func (m *Model) deselectAll() {
	m.selectedFindings = make(map[int]bool)
	m.rebuildTableRows()
}

func (m *Model) toggleSelectAll() {
	allSelected := true
	for i := range m.getDisplayFindings() {
		origIdx := m.getOriginalIndex(i)
		if origIdx >= 0 && !m.selectedFindings[origIdx] {
			allSelected = false
			break
		}
	}
	if allSelected {
		m.deselectAll()
	} else {
		m.selectAll()
	}
}

func (m *Model) getSelectedCount() int {
	return len(m.selectedFindings)
}

func (m *Model) isSelected(displayIdx int) bool {
	origIdx := m.getOriginalIndex(displayIdx)
	return origIdx >= 0 && m.selectedFindings[origIdx]
}

func (m *Model) updateViewportContent() {
	if m.groupMode != GroupNone {
		m.updateGroupedViewport()
		return
	}

	displayFindings := m.getDisplayFindings()
	if len(displayFindings) == 0 || !m.ready {
		m.viewport.SetContent("")
		return
	}
	idx := m.table.Cursor()
	if idx >= 0 && idx < len(displayFindings) {
		m.updateViewportContentForFinding(displayFindings[idx])
	}
}

func (m *Model) updateGroupedViewport() {
	if len(m.groupedFindings) == 0 || !m.ready {
		m.viewport.SetContent("")
		return
	}
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.groupedFindings) {
		m.viewport.SetContent("")
		return
	}

	item := m.groupedFindings[idx]
	if !item.IsGroup {
		if item.Finding == nil {
			m.viewport.SetContent("")
			return
		}
		m.updateViewportContentForFinding(*item.Finding)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Group Summary"))
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Group:"), item.GroupKey)
	fmt.Fprintf(&b, "%s %d\n", keyStyle.Render("Findings:"), item.GroupCount)

	hint := "Press Tab to expand this group"
	if m.expandedGroups[item.GroupKey] {
		hint = "Press Tab to collapse this group"
	}
	fmt.Fprintf(&b, "\n%s\n", lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(hint))
	m.viewport.SetContent(b.String())
}

func (m *Model) updateViewportContentForFinding(f types.Finding) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Finding Details"))

	if isBaselined(f, m.baselinedSet) {
		note := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
		b.WriteString(note.Render("BASELINED: This finding is known/accepted. Press 'U' to remove from baseline."))
		b.WriteString("\n\n")
	}

	isVirtual := isVirtualPath(f.Path)
	if isVirtual {
		m.writeVirtualLocation(&b, f.Path)
	} else {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Path:"), f.Path)
	}

	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Rule:"), f.Rule)
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Severity:"), severityText(f.Severity))
	if f.Type != "" {
		if desc := png.Describe(f.Type); desc != "" {
			fmt.Fprintf(&b, "%s %s (%s)\n", keyStyle.Render("Chunk:"), f.Type, desc)
		} else {
			fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Chunk:"), f.Type)
		}
		fmt.Fprintf(&b, "%s #%d at byte %d, %d data bytes, CRC %08x\n",
			keyStyle.Render("Where:"), f.Index, f.Offset, f.Length, f.CRC)
	} else {
		fmt.Fprintf(&b, "%s byte %d\n", keyStyle.Render("Where:"), f.Offset)
	}
	fmt.Fprintf(&b, "%s %.2f\n", keyStyle.Render("Confidence:"), f.Confidence)
	if f.Context != "" {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Context:"), f.Context)
	}
	if preview := m.displayPreview(f); preview != "" {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Preview:"), previewStyle.Render(preview))
	}
	if len(f.Metadata) > 0 {
		fmt.Fprintf(&b, "%s\n", keyStyle.Render("Metadata:"))
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		for k, v := range f.Metadata {
			fmt.Fprintf(&b, "  %s: %s\n", dim.Render(k), v)
		}
	}

	if !isVirtual {
		if commit := lastCommit(f.Path); commit != nil {
			commitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
			fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Commit:"),
				commitStyle.Render(fmt.Sprintf("%s (%s, %s)", commit.Commit, commit.Author, commit.Date)))
		}
	}

	hint := fmt.Sprintf(" (+/- to expand/contract, showing up to %d lines)", m.contextLines*2+1)
	fmt.Fprintf(&b, "\n%s%s\n",
		keyStyle.Render("Payload:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(hint))

	chunk, err := readChunk(f.Path, f.Offset)
	if err == nil && len(chunk.Data()) > 0 {
		m.writePayload(&b, chunk.Data())
	} else if preview := m.displayPreview(f); preview != "" {
		// Container unreadable (virtual path, moved, rewritten): fall back
		// to the preview captured at scan time.
		b.WriteString(previewStyle.Render(preview))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) writeVirtualLocation(b *strings.Builder, path string) {
	note := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	b.WriteString(note.Render("VIRTUAL FILE: This finding is inside an archive/container image."))
	b.WriteString("\n")
	b.WriteString(note.Render("Press 'o' to extract the container to a temp file and open it."))
	b.WriteString("\n\n")

	parts := strings.Split(path, "::")
	if len(parts) < 2 {
		fmt.Fprintf(b, "%s %s\n", keyStyle.Render("Path:"), path)
		return
	}
	fmt.Fprintf(b, "%s %s\n", keyStyle.Render("Archive:"), parts[0])
	if len(parts) == 2 {
		fmt.Fprintf(b, "%s %s\n", keyStyle.Render("File:"), parts[1])
		return
	}
	fmt.Fprintf(b, "%s %s\n", keyStyle.Render("Layer:"), parts[1])
	fmt.Fprintf(b, "%s %s\n", keyStyle.Render("File:"), strings.Join(parts[2:], "::"))
}

// writePayload renders a chunk payload into the detail pane. Structured and
// printable payloads render as numbered text lines, everything else as a hex
// dump. The amount shown follows m.contextLines.
func (m *Model) writePayload(b *strings.Builder, data []byte) {
	maxLines := m.contextLines*2 + 1
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	if validate.MostlyPrintable(data) {
		text := strings.TrimRight(string(data), "\n")
		if kind := validate.StructuredKind(string(data)); kind != "" {
			text = strings.TrimRight(highlightCode(text, "payload."+kind), "\n")
		}

		lines := strings.Split(text, "\n")
		shown := len(lines)
		if shown > maxLines {
			shown = maxLines
		}
		for i := 0; i < shown; i++ {
			b.WriteString(dim.Render(fmt.Sprintf("%4d ", i+1)) + lines[i] + "\n")
		}
		if len(lines) > shown {
			b.WriteString(dim.Render(fmt.Sprintf("     ... %d more lines", len(lines)-shown)) + "\n")
		}
		return
	}

	rows := hexDump(data, maxLines)
	for _, row := range rows {
		b.WriteString(dim.Render(row) + "\n")
	}
	if len(data) > maxLines*16 {
		b.WriteString(dim.Render(fmt.Sprintf("     ... %d more bytes", len(data)-maxLines*16)) + "\n")
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Modal overlays take the keyboard until dismissed.
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.showScanHistory {
			m.handleHistoryKey(msg.String())
			return m, nil
		}
		if m.showExportMenu {
			return m, m.handleExportKey(msg.String())
		}
		if m.searchMode {
			return m, m.handleSearchKey(msg)
		}
		if m.pendingKey == "g" {
			m.pendingKey = ""
			m.handleGroupPrefixKey(msg.String())
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "/":
			if !m.showEmpty || len(m.findings) > 0 {
				m.searchMode = true
				m.searchInput.SetValue(m.searchQuery)
				m.searchInput.Focus()
				return m, textinput.Blink
			}
		case "1":
			m.filterBySeverity(types.SevHigh)
			return m, nil
		case "2":
			m.filterBySeverity(types.SevMed)
			return m, nil
		case "3":
			m.filterBySeverity(types.SevLow)
			return m, nil
		case "esc":
			if m.diffMode {
				m.exitDiffMode()
				m.flash(3*time.Second, "Exited diff view")
				return m, nil
			}
			if m.searchQuery != "" || m.severityFilter != "" {
				m.clearFilters()
				m.flash(3*time.Second, "Filters cleared")
				return m, nil
			}
		case "n":
			if !m.showEmpty {
				m.jumpHigh(1)
				return m, nil
			}
		case "N":
			if !m.showEmpty {
				m.jumpHigh(-1)
				return m, nil
			}
		case "s":
			if len(m.findings) > 0 {
				m.cycleSortColumn()
				if m.sortColumn == SortDefault {
					m.flash(3*time.Second, "Sort: default order")
				} else {
					m.flash(3*time.Second, "Sort by %s (S to reverse)", m.sortColumn)
				}
				return m, nil
			}
		case "S":
			if len(m.findings) > 0 && m.sortColumn != SortDefault {
				m.toggleSortReverse()
				direction := "ascending"
				if m.sortReverse {
					direction = "descending"
				}
				m.flash(3*time.Second, "Sort by %s (%s)", m.sortColumn, direction)
				return m, nil
			}
		case "v":
			if !m.showEmpty {
				m.toggleSelection()
				if count := m.getSelectedCount(); count == 0 {
					m.flash(2*time.Second, "Selection cleared")
				} else {
					m.flash(2*time.Second, "%d selected (V: all, B: baseline, Ctrl+i: ignore)", count)
				}
				return m, nil
			}
		case "V":
			if !m.showEmpty {
				m.toggleSelectAll()
				if count := m.getSelectedCount(); count == 0 {
					m.flash(2*time.Second, "All deselected")
				} else {
					m.flash(2*time.Second, "All %d selected (B: baseline, Ctrl+i: ignore)", count)
				}
				return m, nil
			}
		case "B":
			if len(m.selectedFindings) > 0 {
				cmd := m.bulkBaseline()
				m.rebuildTableRows()
				return m, cmd
			}
			m.flash(2*time.Second, "No findings selected (press v to select)")
			return m, nil
		case "ctrl+i":
			if len(m.selectedFindings) > 0 {
				cmd := m.bulkIgnore()
				m.rebuildTableRows()
				return m, cmd
			}
			m.flash(2*time.Second, "No findings selected (press v to select)")
			return m, nil
		case "o", "enter":
			if !m.showEmpty {
				return m, m.openEditor()
			}
		case "i":
			if !m.showEmpty {
				return m, m.ignoreFile()
			}
		case "I":
			if !m.showEmpty {
				return m, m.unignoreFile()
			}
		case "b":
			if !m.showEmpty {
				return m, m.addToBaseline()
			}
		case "U":
			if !m.showEmpty {
				return m, m.removeFromBaseline()
			}
		case "e":
			if len(m.getDisplayFindings()) > 0 {
				m.showExportMenu = true
				return m, nil
			}
		case "+", "=":
			if !m.showEmpty {
				m.expandContext()
				m.flash(2*time.Second, "Payload view: %d lines", m.contextLines*2+1)
				return m, nil
			}
		case "-", "_":
			if !m.showEmpty {
				m.contractContext()
				m.flash(2*time.Second, "Payload view: %d lines", m.contextLines*2+1)
				return m, nil
			}
		case "p":
			if !m.showEmpty {
				m.prefs.HidePreviews = !m.prefs.HidePreviews
				_ = SavePrefs(m.prefs)
				m.rebuildTableRows()
				if m.prefs.HidePreviews {
					m.flash(3*time.Second, "Payload previews hidden")
				} else {
					m.flash(3*time.Second, "Payload previews visible")
				}
				return m, nil
			}
		case "y":
			if !m.showEmpty {
				return m, m.copyPathToClipboard()
			}
		case "Y":
			if !m.showEmpty {
				return m, m.copyFindingToClipboard()
			}
		case "D":
			if m.diffMode {
				m.exitDiffMode()
				m.flash(3*time.Second, "Exited diff view")
				return m, nil
			}
			if m.computeDiff() {
				m.diffMode = true
				m.flash(5*time.Second, "Diff: %d new, %d fixed since %s",
					len(m.diffNewFindings), len(m.diffFixedFindings),
					m.diffPrevTimestamp.Format("Jan 2, 15:04"))
			} else {
				m.flash(3*time.Second, "Need at least 2 scans to show diff")
			}
			return m, nil
		case "tab":
			if m.groupMode != GroupNone {
				m.toggleGroupExpansion()
				return m, nil
			}
		case "r":
			if m.rescanFunc == nil {
				m.flash(3*time.Second, "Rescan not available")
				return m, nil
			}
			if !m.scanning {
				m.scanning = true
				m.hasScannedOnce = true
				m.statusMessage = "Rescanning..."
				return m, m.rescan()
			}
		case "a":
			if !m.showScanHistory {
				if history, err := audit.NewAuditLog(".").LoadHistory(); err == nil {
					m.scanHistory = history
					m.historySelection = 0
				}
			}
			m.showScanHistory = !m.showScanHistory
		case "?", "h":
			m.showHelp = !m.showHelp
			return m, nil
		case "down", "j", "up", "k":
			if !m.showEmpty {
				m.table, cmd = m.table.Update(msg)
				m.updateViewportContent()
				return m, cmd
			}
		case "ctrl+d":
			if !m.showEmpty {
				m.pageTable(m.halfPage())
				return m, nil
			}
		case "ctrl+u":
			if !m.showEmpty {
				m.pageTable(-m.halfPage())
				return m, nil
			}
		case "ctrl+f", "pgdown":
			if !m.showEmpty {
				m.pageTable(m.table.Height())
				return m, nil
			}
		case "ctrl+b", "pgup":
			if !m.showEmpty {
				m.pageTable(-m.table.Height())
				return m, nil
			}
		case "g":
			m.pendingKey = "g"
			return m, nil
		case "home":
			if !m.showEmpty {
				m.table.GotoTop()
				m.updateViewportContent()
				return m, nil
			}
		case "G", "end":
			if !m.showEmpty {
				m.table.GotoBottom()
				m.updateViewportContent()
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case findingsMsg:
		m.findings = msg
		m.showEmpty = len(m.findings) == 0
		m.lastScanTime = time.Now()
		m.viewingCached = false

		m.table.SetRows(m.plainRows(m.findings))
		if m.showEmpty {
			m.table.SetCursor(0)
		}
		m.updateViewportContent()

		m.scanning = false
		m.hasScannedOnce = true
		if m.showEmpty {
			m.flash(5*time.Second, "Rescan complete - no suspicious chunks found")
		} else {
			m.flash(5*time.Second, "Rescan complete - found %d findings", len(m.findings))
		}

	case statusMsg:
		m.flash(3*time.Second, "%s", string(msg))

	case spinner.TickMsg:
		var spinCmd tea.Cmd
		m.spinner, spinCmd = m.spinner.Update(msg)
		if m.statusTimeout != nil && time.Now().After(*m.statusTimeout) {
			m.statusTimeout = nil
			m.statusMessage = m.hintLine()
		}
		return m, spinCmd
	}

	// Forward everything else to the table, except the row-movement keys
	// already handled above.
	if !m.quitting && !m.showEmpty {
		forward := true
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "down", "j", "up", "k":
				forward = false
			}
		}
		if forward {
			m.table, cmd = m.table.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) handleHistoryKey(key string) {
	switch key {
	case "q", "esc", "a":
		m.showScanHistory = false
		m.historySelection = 0
	case "up", "k":
		if m.historySelection > 0 {
			m.historySelection--
		}
	case "down", "j":
		if m.historySelection < len(m.scanHistory)-1 {
			m.historySelection++
		}
	case "enter":
		m.loadHistoricalScan()
	case "d", "x", "backspace", "delete":
		m.deleteHistoryEntry()
	}
}

func (m *Model) loadHistoricalScan() {
	if m.historySelection < 0 || m.historySelection >= len(m.scanHistory) {
		return
	}
	selected := m.scanHistory[m.historySelection]
	m.findings = selected.AllFindings
	m.lastScanTime = selected.Timestamp
	m.viewingHistorical = true
	m.showScanHistory = false

	m.table.SetRows(m.plainRows(m.findings))
	m.updateViewportContent()
	m.flash(5*time.Second, "Loaded historical scan from %s", selected.Timestamp.Format("Jan 2, 15:04"))
}

func (m *Model) deleteHistoryEntry() {
	if m.historySelection < 0 || m.historySelection >= len(m.scanHistory) {
		return
	}
	auditLog := audit.NewAuditLog(".")
	if err := auditLog.DeleteRecord(m.historySelection); err != nil {
		return
	}
	history, err := auditLog.LoadHistory()
	if err != nil {
		return
	}
	m.scanHistory = history
	if m.historySelection >= len(m.scanHistory) {
		m.historySelection = len(m.scanHistory) - 1
	}
	if m.historySelection < 0 {
		m.historySelection = 0
	}
}

func (m *Model) handleExportKey(key string) tea.Cmd {
	switch key {
	case "1", "j":
		m.showExportMenu = false
		return m.exportFindings("json")
	case "2", "c":
		m.showExportMenu = false
		return m.exportFindings("csv")
	case "3", "s":
		m.showExportMenu = false
		return m.exportFindings("sarif")
	case "esc", "q", "e":
		m.showExportMenu = false
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.searchQuery = m.searchInput.Value()
		m.searchMode = false
		m.searchInput.Blur()
		return nil
	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.SetValue(m.searchQuery)
		m.applyFilters()
		return nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.searchQuery = m.searchInput.Value()
	m.applyFilters()
	return cmd
}

func (m *Model) handleGroupPrefixKey(key string) {
	switch key {
	case "f":
		m.setGroupMode(GroupByFile)
		if m.groupMode == GroupByFile {
			m.flash(3*time.Second, "Grouped by file (Tab to expand/collapse, gf to ungroup)")
		} else {
			m.flash(3*time.Second, "Grouping disabled")
		}
	case "r":
		m.setGroupMode(GroupByRule)
		if m.groupMode == GroupByRule {
			m.flash(3*time.Second, "Grouped by rule (Tab to expand/collapse, gr to ungroup)")
		} else {
			m.flash(3*time.Second, "Grouping disabled")
		}
	case "g":
		if !m.showEmpty {
			m.table.GotoTop()
			m.updateViewportContent()
		}
	}
}

func (m *Model) halfPage() int {
	h := m.table.Height() / 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) pageTable(rows int) {
	if rows >= 0 {
		m.table.MoveDown(rows)
	} else {
		m.table.MoveUp(-rows)
	}
	m.updateViewportContent()
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h
	m.ready = true

	// Severity, rule and type get fixed widths; the rest splits between
	// location and preview.
	const sevWidth, ruleWidth, typeWidth = 8, 18, 6
	remaining := m.width - 12 - sevWidth - ruleWidth - typeWidth
	locationWidth := int(float64(remaining) * 0.55)
	previewWidth := remaining - locationWidth
	if locationWidth < 25 {
		locationWidth = 25
	}
	if previewWidth < 20 {
		previewWidth = 20
	}

	cols := m.table.Columns()
	cols[0].Width = sevWidth
	cols[1].Width = ruleWidth
	cols[2].Width = typeWidth
	cols[3].Width = locationWidth
	cols[4].Width = previewWidth
	m.table.SetColumns(cols)

	availableHeight := m.height - lipgloss.Height(statusStyle.Render("")) - 1
	tableHeight := int(float64(availableHeight) * 0.45)
	viewportHeight := availableHeight - tableHeight - detailPaneBorderStyle.GetVerticalFrameSize() - 1

	m.table.SetWidth(m.width)
	m.table.SetHeight(tableHeight)

	if m.viewport.Height == 0 {
		m.viewport = viewport.New(m.width, viewportHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = viewportHeight
	}
	m.updateViewportContent()
	statusStyle = statusStyle.Width(m.width)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	switch {
	case m.scanning:
		return m.scanningView()
	case m.showHelp:
		return m.helpView()
	case m.showExportMenu:
		return m.exportMenuView()
	case m.diffMode:
		return m.diffView()
	case m.showScanHistory:
		return m.historyView()
	}
	return m.mainView()
}

func (m Model) scanningView() string {
	scanType := "Scanning"
	if m.hasScannedOnce {
		scanType = "Rescanning"
	}
	box := popupStyle.
		Width(55).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("%s  %s...\n\nPlease wait", m.spinner.View(), scanType))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) mainView() string {
	displayFindings := m.getDisplayFindings()

	statsHeader := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("237")).
		Render(m.statsLine(displayFindings))

	tableRender := tableBorderStyle.
		Width(m.width).
		Height(m.table.Height()).
		Render(m.table.View())

	var detailContent string
	if len(displayFindings) == 0 {
		emptyMsg := "No findings match filter.\n\nPress 'Esc' to clear filter"
		if len(m.findings) == 0 {
			emptyMsg = "No findings to review.\n\nPress 'r' to rescan\nPress '?' for help"
		}
		detailContent = lipgloss.Place(
			m.width,
			m.viewport.Height,
			lipgloss.Center,
			lipgloss.Center,
			emptyTextStyle.Render(emptyMsg),
		)
	} else {
		detailContent = m.viewport.View()
	}
	detailRender := detailPaneBorderStyle.
		Width(m.width).
		Height(m.viewport.Height).
		Render(detailContent)

	return lipgloss.JoinVertical(lipgloss.Left,
		statsHeader,
		tableRender,
		detailRender,
		m.bottomBar(),
	)
}

func (m Model) statsLine(displayFindings []types.Finding) string {
	if len(m.findings) == 0 {
		ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		if m.viewingCached {
			return ok.Render("[OK] All findings baselined")
		}
		return ok.Render("[OK] No suspicious chunks")
	}

	var highCount, medCount, lowCount int
	for _, f := range displayFindings {
		switch f.Severity {
		case types.SevHigh:
			highCount++
		case types.SevMed:
			medCount++
		case types.SevLow:
			lowCount++
		}
	}
	counts := fmt.Sprintf("%s %-4d  |  %s %-4d  |  %s %-4d",
		sevHighStyle.Render("High:"), highCount,
		sevMedStyle.Render("Med:"), medCount,
		sevLowStyle.Render("Low:"), lowCount)

	var selectionInfo string
	if len(m.selectedFindings) > 0 {
		selectionInfo = fmt.Sprintf("  [%d selected]", len(m.selectedFindings))
	}

	if m.filteredFindings != nil {
		var parts []string
		if m.searchQuery != "" {
			parts = append(parts, fmt.Sprintf("search:'%s'", m.searchQuery))
		}
		if m.severityFilter != "" {
			parts = append(parts, fmt.Sprintf("sev:%s", severityText(m.severityFilter)))
		}
		filterInfo := fmt.Sprintf("  [FILTER: %s]", strings.Join(parts, ", "))
		return fmt.Sprintf("Showing: %d/%d  |  %s%s%s%s",
			len(displayFindings), len(m.findings), counts, filterInfo, m.getSortIndicator(), selectionInfo)
	}
	return fmt.Sprintf("Total: %-4d  |  %s%s%s",
		len(m.findings), counts, m.getSortIndicator(), selectionInfo)
}

func (m Model) bottomBar() string {
	if m.searchMode {
		bar := lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("15")).
			Width(m.width).
			Padding(0, 1)
		return bar.Render(fmt.Sprintf("%s (%d matches)", m.searchInput.View(), len(m.getDisplayFindings())))
	}
	return statusStyle.Width(m.width).Padding(0, 2).Render(m.statusLine())
}

func (m Model) statusLine() string {
	var timeInfo string
	if m.viewingHistorical {
		timeInfo = fmt.Sprintf("Viewing: %s", m.lastScanTime.Format("Jan 2, 15:04"))
	} else if !m.lastScanTime.IsZero() {
		timeInfo = fmt.Sprintf("Scanned: %s ago", formatDuration(time.Since(m.lastScanTime)))
	}
	if timeInfo == "" {
		return m.statusMessage
	}

	spacer := m.width - 4 - lipgloss.Width(m.statusMessage) - lipgloss.Width(timeInfo)
	if spacer < 1 {
		spacer = 1
	}
	return m.statusMessage + strings.Repeat(" ", spacer) + timeInfo
}

func (m Model) helpView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	section := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyText := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	descText := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"Navigation", [][2]string{
			{"j / k", "Move down / up"},
			{"Ctrl+d/u", "Half-page down / up"},
			{"Ctrl+f/b", "Full page down / up"},
			{"g / G", "First / last row"},
			{"n / N", "Next / prev HIGH finding"},
		}},
		{"Search & Filter", [][2]string{
			{"/", "Search findings"},
			{"1 / 2 / 3", "Filter HIGH / MED / LOW"},
			{"s / S", "Sort / reverse sort"},
			{"Esc", "Clear filters"},
		}},
		{"Selection & Bulk", [][2]string{
			{"v / V", "Select one / select all"},
			{"B", "Bulk baseline selected"},
			{"Ctrl+i", "Bulk ignore selected"},
		}},
		{"Export & Copy", [][2]string{
			{"e", "Export (JSON/CSV/SARIF)"},
			{"y / Y", "Copy location / full finding"},
		}},
		{"Payload", [][2]string{
			{"+ / -", "Expand / contract payload view"},
			{"p", "Show / hide previews"},
		}},
		{"Actions", [][2]string{
			{"Enter", "Open in $EDITOR"},
			{"i / I", "Ignore / unignore file"},
			{"b / U", "Baseline / unbaseline"},
			{"r", "Rescan"},
		}},
		{"Grouping", [][2]string{
			{"gf", "Group by file"},
			{"gr", "Group by rule"},
			{"Tab", "Expand/collapse group"},
		}},
		{"Diff & History", [][2]string{
			{"D", "Diff vs previous scan"},
			{"a", "View audit history"},
		}},
		{"Other", [][2]string{
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	lines := []string{title.Render("Keyboard Shortcuts"), ""}
	for _, sec := range sections {
		lines = append(lines, section.Render(sec.name))
		for _, kv := range sec.keys {
			pad := 12 - len(kv[0])
			if pad < 1 {
				pad = 1
			}
			lines = append(lines, "  "+keyText.Render(kv[0])+strings.Repeat(" ", pad)+descText.Render(kv[1]))
		}
		lines = append(lines, "")
	}
	lines = append(lines, lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true).
		Render("Press any key to close"))

	box := popupStyle.Width(46).Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) exportMenuView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	keyText := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	lines := []string{
		title.Render("Export Findings"),
		"",
		fmt.Sprintf("  %s  JSON  (human readable)", keyText.Render("1/j")),
		fmt.Sprintf("  %s  CSV   (spreadsheet)", keyText.Render("2/c")),
		fmt.Sprintf("  %s  SARIF (CI/CD integration)", keyText.Render("3/s")),
		"",
		lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true).
			Render(fmt.Sprintf("Exporting %d findings", len(m.getDisplayFindings()))),
		"",
		lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true).
			Render("Esc to cancel"),
	}

	box := popupStyle.Width(40).Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// diffSection appends one side of the diff (new or fixed), capped at eight
// entries.
func diffSection(lines []string, heading, sign string, items []types.Finding, style, dim lipgloss.Style) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, style.Render(heading))
	shown := len(items)
	if shown > 8 {
		shown = 8
	}
	for _, f := range items[:shown] {
		lines = append(lines, style.Render(fmt.Sprintf("  %s [%s] %s@%d  %s",
			sign, severityText(f.Severity), f.Path, f.Offset, f.Rule)))
	}
	if len(items) > shown {
		lines = append(lines, dim.Render(fmt.Sprintf("  ... and %d more", len(items)-shown)))
	}
	return append(lines, "")
}

func (m Model) diffView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	newStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	fixedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	lines := []string{
		title.Render(fmt.Sprintf("DIFF: %s vs Current", m.diffPrevTimestamp.Format("Jan 2, 15:04"))),
		"",
	}

	var summary []string
	if len(m.diffNewFindings) > 0 {
		summary = append(summary, newStyle.Render(fmt.Sprintf("+%d new", len(m.diffNewFindings))))
	}
	if len(m.diffFixedFindings) > 0 {
		summary = append(summary, fixedStyle.Render(fmt.Sprintf("-%d fixed", len(m.diffFixedFindings))))
	}
	if len(summary) == 0 {
		lines = append(lines, dim.Render("No changes between scans"))
	} else {
		lines = append(lines, strings.Join(summary, "  "))
	}
	lines = append(lines, "")

	lines = diffSection(lines, "NEW FINDINGS (added since last scan):", "+", m.diffNewFindings, newStyle, dim)
	lines = diffSection(lines, "FIXED FINDINGS (removed since last scan):", "-", m.diffFixedFindings, fixedStyle, dim)

	lines = append(lines, "")
	lines = append(lines, dim.Italic(true).Render("Press D or Esc to close"))

	box := popupStyle.Width(70).Padding(2, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) historyView() string {
	history, err := audit.NewAuditLog(".").LoadHistory()

	var content string
	if err != nil || len(history) == 0 {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Render("No scan history found.\n\nRun scans to build audit history.")
	} else {
		lines := []string{
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("SCAN HISTORY"),
			"",
		}
		shown := len(history)
		if shown > 10 {
			shown = 10
		}
		for i := 0; i < shown; i++ {
			lines = append(lines, m.historyLine(i, history[i]))
		}
		lines = append(lines, "", "")
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true).
			Render("Enter: view | d: delete | a: close"))
		content = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	box := popupStyle.Width(70).Padding(2, 4).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) historyLine(i int, scan audit.ScanRecord) string {
	timeStr := scan.Timestamp.Format("Jan 2, 15:04:05")

	var summary string
	if scan.Action != "" && scan.Action != "scan" {
		summary = fmt.Sprintf("%s - %s %s", timeStr, scan.Action, scan.Target)
	} else {
		summary = fmt.Sprintf("%s - %d findings (%d new, %d baselined)",
			timeStr, scan.TotalFindings, scan.NewFindings, scan.BaselinedCount)
	}

	if i == m.historySelection {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("208")).
			Bold(true).
			Render("  > " + summary)
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	if scan.TotalFindings == 0 {
		style = style.Foreground(lipgloss.Color("10"))
	} else if scan.NewFindings > 0 {
		style = style.Foreground(lipgloss.Color("11"))
	}
	return style.Render("    " + summary)
}
