package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/AlekLefebvre/pngme/internal/artifacts"
	"github.com/AlekLefebvre/pngme/internal/cache"
	"github.com/AlekLefebvre/pngme/internal/git"
	"github.com/AlekLefebvre/pngme/internal/ignore"
	"github.com/AlekLefebvre/pngme/internal/types"
)

// Config controls what a scan covers and how it runs.
type Config struct {
	Root                string
	IncludeGlobs        string
	ExcludeGlobs        string
	MaxBytes            int64
	ScanStaged          bool
	HistoryCommits      int
	BaseBranch          string
	Threads             int
	EnableRules         string
	DisableRules        string
	MinConfidence       float64
	DryRun              bool
	NoColor             bool
	DefaultExcludes     bool
	NoCache             bool
	SniffAll            bool     // inspect every file for the container signature, not just *.png
	IncludeStandardText bool     // also report registered text chunks (tEXt, iTXt, zTXt)
	TargetTypes         []string // chunk type codes to flag wherever they appear
	Progress            func()

	// Deep artifact scanning (optional)
	ScanArchives         bool
	ScanContainers       bool
	ScanOCI              bool     // Scan OCI image layout directories
	RegistryImages       []string // Remote registry images to scan (e.g. gcr.io/proj/img:tag)
	MaxArchiveBytes      int64
	MaxEntries           int
	MaxDepth             int
	ScanTimeBudget       time.Duration
	GlobalArtifactBudget time.Duration
}

// Result holds findings plus scan statistics.
type Result struct {
	Findings       []types.Finding
	FilesScanned   int
	Duration       time.Duration
	ArtifactStats  DeepStats
	ArtifactErrors []error
}

// DeepStats counts artifact scans cut short by a limit.
type DeepStats struct {
	AbortedByBytes   int
	AbortedByEntries int
	AbortedByDepth   int
	AbortedByTime    int
}

type pendingScan struct {
	path     string
	data     []byte
	cacheKey string
	cacheVal string
}

func toJob(path string, data []byte) pendingScan {
	return pendingScan{path: path, data: data, cacheKey: path, cacheVal: fastHash(data)}
}

func determineBatchSize(threads int) int {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads < 2 {
		threads = 2
	}
	if threads > 32 {
		threads = 32
	}
	return threads * 4
}

// processChunk inspects one batch of files, applies the confidence and rule
// filters, and records the cache entries of everything scanned.
func processChunk(cfg Config, chunk []pendingScan, emit func([]types.Finding), updated map[string]string, res *Result) {
	if len(chunk) == 0 {
		return
	}

	if !cfg.DryRun {
		findings := inspectBatch(cfg, chunk)
		findings = filterByConfidence(findings, cfg.MinConfidence)
		findings = filterByRules(findings, cfg.EnableRules, cfg.DisableRules)
		emit(findings)
	}

	for _, job := range chunk {
		res.FilesScanned++
		if cfg.Progress != nil {
			cfg.Progress()
		}
		if !cfg.NoCache && !cfg.DryRun && job.cacheKey != "" && job.cacheVal != "" {
			updated[job.cacheKey] = job.cacheVal
		}
	}
}

// inspectBatch fans one batch out over cfg.Threads workers and returns the
// findings in batch order.
func inspectBatch(cfg Config, chunk []pendingScan) []types.Finding {
	workers := cfg.Threads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(chunk) {
		workers = len(chunk)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]types.Finding, len(chunk))
	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = inspectContainer(chunk[i].path, chunk[i].data, cfg)
			}
		}()
	}
	for i := range chunk {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []types.Finding
	for _, fs := range results {
		out = append(out, fs...)
	}
	return out
}

// drainBatches feeds jobs through processChunk in batch-sized slices.
func drainBatches(cfg Config, jobs []pendingScan, emit func([]types.Finding), updated map[string]string, result *Result) {
	batch := determineBatchSize(cfg.Threads)
	for len(jobs) > 0 {
		n := min(batch, len(jobs))
		processChunk(cfg, jobs[:n], emit, updated, result)
		jobs = jobs[n:]
	}
}

// Scan runs a scan and returns only findings (without stats).
func Scan(cfg Config) ([]types.Finding, error) {
	res, err := ScanWithStats(cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// ScanWithStats runs a scan and returns findings along with timing and counts.
func ScanWithStats(cfg Config) (Result, error) {
	var result Result

	var db cache.DB
	if !cfg.NoCache {
		db, _ = cache.Load(cfg.Root)
	} else {
		db.Entries = map[string]string{}
	}
	updated := map[string]string{}

	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}

	ign, _ := ignore.Load(filepath.Join(cfg.Root, ".pngmeignore"))
	ctx := context.Background()

	var out []types.Finding
	started := time.Now()
	emit := func(fs []types.Finding) {
		out = append(out, fs...)
	}

	// History and diff scans replace the working-tree walk; staged and
	// artifact scans stack on top of whichever base ran.
	if cfg.HistoryCommits == 0 && cfg.BaseBranch == "" {
		if err := scanFilesystem(ctx, cfg, ign, db, emit, updated, &result); err != nil {
			return result, err
		}
	}
	if cfg.ScanStaged {
		if err := scanStaged(cfg, emit, updated, &result); err != nil {
			return result, err
		}
	}
	if cfg.HistoryCommits > 0 {
		if err := scanHistory(cfg, ign, emit, updated, &result); err != nil {
			return result, err
		}
	}
	if cfg.BaseBranch != "" {
		if err := scanDiff(cfg, ign, emit, updated, &result); err != nil {
			return result, err
		}
	}
	if cfg.ScanArchives || cfg.ScanContainers || cfg.ScanOCI || len(cfg.RegistryImages) > 0 {
		scanArtifacts(ctx, cfg, emit, updated, &result)
	}

	result.Findings = out
	result.Duration = time.Since(started)
	if !cfg.NoCache && len(updated) > 0 {
		if db.Entries == nil {
			db.Entries = map[string]string{}
		}
		for k, v := range updated {
			db.Entries[k] = v
		}
		_ = cache.Save(cfg.Root, db)
	}
	return result, nil
}

func scanFilesystem(ctx context.Context, cfg Config, ign ignore.Matcher, db cache.DB, emit func([]types.Finding), updated map[string]string, result *Result) error {
	batchSize := determineBatchSize(cfg.Threads)
	queue := make([]pendingScan, 0, batchSize)

	err := Walk(ctx, cfg, ign, func(p string, data []byte) {
		h := fastHash(data)
		if !cfg.NoCache && db.Entries != nil && db.Entries[p] == h {
			return
		}
		queue = append(queue, pendingScan{path: p, data: data, cacheKey: p, cacheVal: h})
		if len(queue) >= batchSize {
			processChunk(cfg, queue, emit, updated, result)
			queue = queue[:0]
		}
	})
	if err != nil {
		return err
	}
	processChunk(cfg, queue, emit, updated, result)
	return nil
}

// pairedJobs filters parallel file/content slices down to scannable jobs.
// A nil matcher skips the ignore check.
func pairedJobs(cfg Config, files []string, data [][]byte, ign *ignore.Matcher) []pendingScan {
	jobs := make([]pendingScan, 0, len(files))
	for i, p := range files {
		if !allowedByGlobs(p, cfg) {
			continue
		}
		if ign != nil && ign.Match(p) {
			continue
		}
		if cfg.MaxBytes > 0 && int64(len(data[i])) > cfg.MaxBytes {
			continue
		}
		jobs = append(jobs, toJob(p, data[i]))
	}
	return jobs
}

func scanStaged(cfg Config, emit func([]types.Finding), updated map[string]string, result *Result) error {
	files, data, err := git.StagedFiles(cfg.Root, cfg.SniffAll)
	if err != nil {
		return err
	}
	drainBatches(cfg, pairedJobs(cfg, files, data, nil), emit, updated, result)
	return nil
}

func scanHistory(cfg Config, ign ignore.Matcher, emit func([]types.Finding), updated map[string]string, result *Result) error {
	entries, err := git.LastNCommits(cfg.Root, cfg.HistoryCommits, cfg.SniffAll)
	if err != nil {
		return err
	}

	var jobs []pendingScan
	for _, e := range entries {
		for path, blob := range e.Files {
			if !allowedByGlobs(path, cfg) || ign.Match(path) {
				continue
			}
			if cfg.MaxBytes > 0 && int64(len(blob)) > cfg.MaxBytes {
				continue
			}
			jobs = append(jobs, toJob(path, blob))
		}
	}
	drainBatches(cfg, jobs, emit, updated, result)
	return nil
}

func scanDiff(cfg Config, ign ignore.Matcher, emit func([]types.Finding), updated map[string]string, result *Result) error {
	files, data, err := git.ChangedSince(cfg.Root, cfg.BaseBranch, cfg.SniffAll)
	if err != nil {
		return err
	}
	drainBatches(cfg, pairedJobs(cfg, files, data, &ign), emit, updated, result)
	return nil
}

func scanArtifacts(ctx context.Context, cfg Config, emit func([]types.Finding), updated map[string]string, result *Result) {
	lim := artifacts.Limits{
		MaxArchiveBytes: cfg.MaxArchiveBytes,
		MaxEntries:      cfg.MaxEntries,
		MaxDepth:        cfg.MaxDepth,
		TimeBudget:      cfg.ScanTimeBudget,
	}
	if cfg.GlobalArtifactBudget > 0 {
		lim.GlobalDeadline = time.Now().Add(cfg.GlobalArtifactBudget)
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, lim.GlobalDeadline)
		defer cancel()
	}

	batchSize := determineBatchSize(cfg.Threads)
	queue := make([]pendingScan, 0, batchSize)
	flush := func() {
		if len(queue) > 0 {
			processChunk(cfg, queue, emit, updated, result)
			queue = queue[:0]
		}
	}
	emitArtifact := func(p string, b []byte) {
		if cfg.DryRun {
			return
		}
		queue = append(queue, toJob(p, b))
		if len(queue) >= batchSize {
			flush()
		}
	}
	allowArtifact := func(rel string) bool { return allowedByGlobs(rel, cfg) }

	var artStats artifacts.Stats
	sources := []struct {
		enabled bool
		scan    func() error
	}{
		{cfg.ScanArchives, func() error {
			return artifacts.ScanArchivesWithStats(cfg.Root, lim, allowArtifact, emitArtifact, &artStats)
		}},
		{cfg.ScanContainers, func() error {
			return artifacts.ScanContainersWithStats(cfg.Root, lim, allowArtifact, emitArtifact, &artStats)
		}},
		{cfg.ScanOCI, func() error {
			return artifacts.ScanOCILayouts(cfg.Root, lim, allowArtifact, emitArtifact, &artStats)
		}},
	}
	for _, src := range sources {
		if !src.enabled {
			continue
		}
		if err := src.scan(); err != nil {
			result.ArtifactErrors = append(result.ArtifactErrors, err)
		}
	}
	for _, img := range cfg.RegistryImages {
		if err := artifacts.ScanRegistryImage(ctx, img, lim, emitArtifact, &artStats); err != nil {
			result.ArtifactErrors = append(result.ArtifactErrors, err)
		}
	}
	flush()

	result.ArtifactStats = DeepStats{
		AbortedByBytes:   artStats.AbortedByBytes,
		AbortedByEntries: artStats.AbortedByEntries,
		AbortedByDepth:   artStats.AbortedByDepth,
		AbortedByTime:    artStats.AbortedByTime,
	}
}

// fastHash returns a 16-character hex digest used as the cache fingerprint.
func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func filterByConfidence(fs []types.Finding, min float64) []types.Finding {
	if min <= 0 {
		return fs
	}
	var out []types.Finding
	for _, f := range fs {
		if f.Confidence >= min {
			out = append(out, f)
		}
	}
	return out
}

func csvSet(s string) map[string]bool {
	if s == "" {
		return nil
	}
	set := map[string]bool{}
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

func filterByRules(fs []types.Finding, enable, disable string) []types.Finding {
	allowed, blocked := csvSet(enable), csvSet(disable)
	if allowed == nil && blocked == nil {
		return fs
	}

	var out []types.Finding
	for _, f := range fs {
		if allowed != nil && !allowed[f.Rule] {
			continue
		}
		if blocked[f.Rule] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// allowedByGlobs applies the comma-separated include and exclude globs to a
// path. Includes, when present, act as a positive filter; excludes are
// subtracted afterwards. Matching uses forward-slash doublestar semantics.
func allowedByGlobs(relPath string, cfg Config) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	if includes := parseGlobsList(cfg.IncludeGlobs); len(includes) > 0 && !matchAnyGlob(rp, includes) {
		return false
	}
	return !matchAnyGlob(rp, parseGlobsList(cfg.ExcludeGlobs))
}

// parseGlobsList splits a comma-separated glob list. Each pattern is also
// added with its leading ./ and **/ stripped so anchored and floating forms
// both match.
func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if t := trimGlobPrefix(p); t != p {
			out = append(out, t)
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
