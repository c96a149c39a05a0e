// Package scanner implements DirectoryScanner: a breadth-first filesystem
// walk with bounded-worker-pool metadata extraction, followed by an optional
// LLM-ranked triage pass over the discovered candidates.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"sirchmunk/internal/extract"
	"sirchmunk/internal/llm"
)

// Relevance is the LLM-assigned triage bucket for a candidate.
type Relevance string

const (
	RelevanceUnset  Relevance = "unset"
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Candidate is one discovered file with whatever metadata the walk could
// cheaply extract.
type Candidate struct {
	Path         string
	Filename     string
	Extension    string
	SizeBytes    int64
	ModifiedAt   time.Time
	CreatedAt    time.Time
	MimeType     string
	Title        string
	Author       string
	PageCount    int
	Encoding     string
	LineCount    int
	Keywords     []string
	Preview      string
	FullContent  string
	ContentLoaded bool
	Relevance    Relevance
	Reason       string
}

// Result is the outcome of a scan, optionally narrowed by Rank. Usage is
// zero-valued until Rank runs its LLM triage call, so callers can charge it
// against a session's token accounting.
type Result struct {
	Candidates       []Candidate
	RankedCandidates []Candidate
	TotalFiles       int
	TotalDirs        int
	WalkDuration     time.Duration
	RankDuration     time.Duration
	Usage            llm.Usage
}

// defaultExclusions mirrors the VCS/cache/build-output directories every
// walk skips regardless of user-supplied globs.
var defaultExclusions = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "__pycache__": true, ".venv": true, "venv": true,
	".cache": true, "dist": true, "build": true, "target": true,
	".idea": true, ".vscode": true, ".pytest_cache": true,
}

const (
	defaultMaxDepth           = 8
	defaultMaxFiles           = 500
	defaultSmallFileThreshold = 100 * 1024
	defaultPreviewChars       = 400
	defaultWorkerCount        = 8
)

// Scanner implements DirectoryScanner.
type Scanner struct {
	Provider           llm.Provider
	Model              string
	MaxDepth           int
	MaxFiles           int
	SmallFileThreshold int64
	ExcludeGlobs       []string
	WorkerCount        int
}

// New constructs a Scanner with spec-stated defaults.
func New(provider llm.Provider, model string) *Scanner {
	return &Scanner{
		Provider:           provider,
		Model:              model,
		MaxDepth:           defaultMaxDepth,
		MaxFiles:           defaultMaxFiles,
		SmallFileThreshold: defaultSmallFileThreshold,
		WorkerCount:        defaultWorkerCount,
	}
}

type walkEntry struct {
	path  string
	depth int
}

// Scan performs the breadth-first walk and bounded-worker-pool metadata
// extraction. No LLM calls are made.
func (s *Scanner) Scan(ctx context.Context, paths []string) (Result, error) {
	start := time.Now()
	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	maxFiles := s.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	var filePaths []string
	totalDirs := 0
	queue := make([]walkEntry, 0, len(paths))
	for _, p := range paths {
		queue = append(queue, walkEntry{path: p, depth: 0})
	}

	for len(queue) > 0 && len(filePaths) < maxFiles {
		cur := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(cur.path)
		if err != nil {
			continue
		}
		totalDirs++

		for _, e := range entries {
			if len(filePaths) >= maxFiles {
				break
			}
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if defaultExclusions[name] || s.matchesExcludeGlob(name) {
				continue
			}
			full := filepath.Join(cur.path, name)
			if e.IsDir() {
				if cur.depth+1 <= maxDepth {
					queue = append(queue, walkEntry{path: full, depth: cur.depth + 1})
				}
				continue
			}
			filePaths = append(filePaths, full)
		}
	}

	candidates := s.extractAll(ctx, filePaths)

	return Result{
		Candidates:   candidates,
		TotalFiles:   len(candidates),
		TotalDirs:    totalDirs,
		WalkDuration: time.Since(start),
	}, nil
}

func (s *Scanner) matchesExcludeGlob(name string) bool {
	for _, g := range s.ExcludeGlobs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

// extractAll dispatches per-file metadata extraction to a bounded worker
// pool, preserving input order in the output.
func (s *Scanner) extractAll(ctx context.Context, paths []string) []Candidate {
	workers := s.WorkerCount
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	out := make([]Candidate, len(paths))
	jobs := make(chan int, len(paths))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.extractOne(ctx, paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (s *Scanner) extractOne(ctx context.Context, path string) Candidate {
	info, err := os.Stat(path)
	c := Candidate{
		Path:      path,
		Filename:  filepath.Base(path),
		Extension: strings.ToLower(filepath.Ext(path)),
		Relevance: RelevanceUnset,
	}
	if err == nil {
		c.SizeBytes = info.Size()
		c.ModifiedAt = info.ModTime()
		c.CreatedAt = info.ModTime()
	}

	res, err := extract.Extract(ctx, path)
	if err != nil {
		return c
	}
	c.Title = res.Meta.Title
	c.Author = res.Meta.Author
	c.PageCount = res.Meta.PageCount
	c.Encoding = res.Meta.Encoding
	c.LineCount = res.Meta.LineCount
	c.Preview = preview(res.Text, defaultPreviewChars)
	c.Keywords = extractKeywords(res.Text)

	if extract.IsTextFamily(c.Extension) && c.SizeBytes > 0 && c.SizeBytes <= s.effectiveSmallFileThreshold() {
		c.FullContent = res.Text
		c.ContentLoaded = true
	}
	return c
}

func (s *Scanner) effectiveSmallFileThreshold() int64 {
	if s.SmallFileThreshold > 0 {
		return s.SmallFileThreshold
	}
	return defaultSmallFileThreshold
}

func preview(text string, maxChars int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= maxChars {
		return string(r)
	}
	return string(r[:maxChars])
}

// extractKeywords pulls a handful of salient words from the first lines of
// text as a cheap proxy for content without running the LLM.
func extractKeywords(text string) []string {
	lines := strings.SplitN(text, "\n", 10)
	seen := make(map[string]bool)
	var out []string
	for _, line := range lines {
		for _, word := range strings.Fields(line) {
			w := strings.ToLower(strings.Trim(word, ".,;:()[]{}\"'"))
			if len(w) < 4 || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
			if len(out) >= 10 {
				return out
			}
		}
	}
	return out
}

type rankJudgement struct {
	Path      string `json:"path"`
	Relevance string `json:"relevance"`
	Reason    string `json:"reason"`
}

// Rank prompts the LLM to triage the top-topK candidates' summaries and
// returns a Result whose RankedCandidates are sorted by relevance bucket.
func (s *Scanner) Rank(ctx context.Context, query string, scanResult Result, topK int) (Result, error) {
	start := time.Now()
	if topK <= 0 || topK > len(scanResult.Candidates) {
		topK = len(scanResult.Candidates)
	}
	subset := scanResult.Candidates[:topK]

	var digest strings.Builder
	for _, c := range subset {
		fmt.Fprintf(&digest, "%s | %s | %s\n", c.Path, c.Title, c.Preview)
	}

	prompt := fmt.Sprintf(
		"Query: %s\n\nCandidate files (path | title | preview):\n%s\n\nReturn a JSON array of objects "+
			"{\"path\":..., \"relevance\":\"high|medium|low\", \"reason\":...} for each file above.",
		query, digest.String(),
	)

	resp, err := s.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: s.Model})
	if err != nil {
		return scanResult, fmt.Errorf("scanner: rank llm call: %w", err)
	}

	judgements := parseRankJSON(resp.Content)
	applyJudgements(subset, judgements)

	ranked := make([]Candidate, len(subset))
	copy(ranked, subset)
	sort.SliceStable(ranked, func(i, j int) bool {
		return relevanceRank(ranked[i].Relevance) < relevanceRank(ranked[j].Relevance)
	})

	out := scanResult
	out.RankedCandidates = ranked
	out.RankDuration = time.Since(start)
	out.Usage = resp.Usage
	return out, nil
}

func relevanceRank(r Relevance) int {
	switch r {
	case RelevanceHigh:
		return 0
	case RelevanceMedium:
		return 1
	case RelevanceLow:
		return 2
	default:
		return 3
	}
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

func parseRankJSON(content string) []rankJudgement {
	match := jsonArrayPattern.FindString(content)
	if match == "" {
		return nil
	}
	var out []rankJudgement
	_ = json.Unmarshal([]byte(match), &out)
	return out
}

// applyJudgements matches LLM-reported paths back onto candidates with a
// three-level matcher: exact path, unique basename, then suffix match —
// tolerating the common case where the model echoes a shortened or
// re-rooted path.
func applyJudgements(candidates []Candidate, judgements []rankJudgement) {
	byExact := make(map[string]int)
	byBase := make(map[string][]int)
	for i, c := range candidates {
		byExact[c.Path] = i
		byBase[filepath.Base(c.Path)] = append(byBase[filepath.Base(c.Path)], i)
	}

	for _, j := range judgements {
		idx, ok := byExact[j.Path]
		if !ok {
			if matches := byBase[filepath.Base(j.Path)]; len(matches) == 1 {
				idx, ok = matches[0], true
			}
		}
		if !ok {
			for i, c := range candidates {
				if strings.HasSuffix(c.Path, j.Path) || strings.HasSuffix(j.Path, c.Path) {
					idx, ok = i, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		candidates[idx].Relevance = Relevance(strings.ToLower(j.Relevance))
		candidates[idx].Reason = j.Reason
	}
}
