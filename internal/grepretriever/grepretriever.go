// Package grepretriever adapts an external ripgrep-all-compatible lexical
// search binary into a concurrency-bounded, JSON-event-parsing retriever
// with TF×IDF re-ranking.
package grepretriever

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"
)

// Submatch is one matched fragment within a line.
type Submatch struct {
	Match struct {
		Text string `json:"text"`
	} `json:"match"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Event mirrors the rga/ripgrep JSON event shape: type is one of
// match|context|begin|end.
type Event struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int        `json:"line_number"`
		Submatches []Submatch `json:"submatches"`
	} `json:"data"`
}

// Match is one matched line within a file, after event parsing.
type Match struct {
	Path       string
	LineNumber int
	Text       string
	Submatches []Submatch
	Score      float64
	Term       string
}

// FileMatches aggregates every matched line within one file.
type FileMatches struct {
	Path        string
	Matches     []Match
	TotalMatches int
	Score       float64
}

// Options configures one retrieval call.
type Options struct {
	CaseSensitive bool
	WholeWord     bool
	Literal       bool
	MaxDepth      int
	Include       []string
	Exclude       []string
	Timeout       time.Duration
}

// Retriever invokes the external lexical-search binary, bounding concurrent
// spawns with a semaphore (default 5, per the shared-resource policy).
type Retriever struct {
	BinaryName string
	WorkPath   string
	sem        *semaphore.Weighted
}

// New constructs a Retriever. concurrentLimit <= 0 defaults to 5.
func New(binaryName, workPath string, concurrentLimit int) *Retriever {
	if concurrentLimit <= 0 {
		concurrentLimit = 5
	}
	return &Retriever{
		BinaryName: binaryName,
		WorkPath:   workPath,
		sem:        semaphore.NewWeighted(int64(concurrentLimit)),
	}
}

// resolveBinary honors the discovery order: PATH, then <work_path>/bin.
func (r *Retriever) resolveBinary() (string, error) {
	if p, err := exec.LookPath(r.BinaryName); err == nil {
		return p, nil
	}
	candidate := filepath.Join(r.WorkPath, "bin", r.BinaryName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	return "", fmt.Errorf("grepretriever: %s not found on PATH or in %s/bin", r.BinaryName, r.WorkPath)
}

// Search runs one literal-vs-regex term against paths. With opts.Literal set,
// a multi-term query must never be collapsed into a single alternation call
// — callers OR-merge per-term results themselves via SearchTerms.
func (r *Retriever) Search(ctx context.Context, term string, paths []string, opts Options) ([]Event, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	bin, err := r.resolveBinary()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := buildArgs(term, paths, opts)
	cmd := exec.CommandContext(runCtx, bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	err = cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(cmd)
		return parseEvents(stdout.Bytes()), nil
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return parseEvents(stdout.Bytes()), nil
		}
		return nil, fmt.Errorf("grepretriever: spawn %s: %w", bin, err)
	}
	return parseEvents(stdout.Bytes()), nil
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.AfterFunc(2*time.Second, func() {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	})
}

func buildArgs(term string, paths []string, opts Options) []string {
	args := []string{"--json"}
	if opts.Literal {
		args = append(args, "--fixed-strings")
	}
	if !opts.CaseSensitive {
		args = append(args, "--ignore-case")
	}
	if opts.WholeWord {
		args = append(args, "--word-regexp")
	}
	if opts.MaxDepth > 0 {
		args = append(args, "--max-depth", fmt.Sprint(opts.MaxDepth))
	}
	for _, inc := range opts.Include {
		args = append(args, "--glob", inc)
	}
	for _, exc := range opts.Exclude {
		args = append(args, "--glob", "!"+exc)
	}
	args = append(args, term)
	args = append(args, paths...)
	return args
}

func parseEvents(raw []byte) []Event {
	var events []Event
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events
}

// SearchTerms issues one call per term (never a single alternation call when
// opts.Literal is set) and merges the results. Each resulting Match is
// tagged with the term that produced it, so callers needing keyword-diverse
// selection (round-robin across terms) can group by Match.Term.
func (r *Retriever) SearchTerms(ctx context.Context, terms []string, paths []string, opts Options) ([]FileMatches, error) {
	merged := make(map[string]*FileMatches)
	var order []string
	for _, term := range terms {
		events, err := r.Search(ctx, term, paths, opts)
		if err != nil {
			return nil, err
		}
		for _, fm := range mergeResultsTagged(events, term) {
			existing, ok := merged[fm.Path]
			if !ok {
				copyFM := fm
				merged[fm.Path] = &copyFM
				order = append(order, fm.Path)
				continue
			}
			existing.Matches = append(existing.Matches, fm.Matches...)
			existing.TotalMatches += fm.TotalMatches
		}
	}
	out := make([]FileMatches, 0, len(order))
	for _, p := range order {
		out = append(out, *merged[p])
	}
	return out, nil
}

// MergeResults groups match events by path and aggregates per-file totals.
func MergeResults(events []Event) []FileMatches {
	return mergeResultsTagged(events, "")
}

func mergeResultsTagged(events []Event, term string) []FileMatches {
	byPath := make(map[string]*FileMatches)
	var order []string
	for _, e := range events {
		if e.Type != "match" {
			continue
		}
		path := e.Data.Path.Text
		fm, ok := byPath[path]
		if !ok {
			fm = &FileMatches{Path: path}
			byPath[path] = fm
			order = append(order, path)
		}
		fm.Matches = append(fm.Matches, Match{
			Path:       path,
			LineNumber: e.Data.LineNumber,
			Text:       e.Data.Lines.Text,
			Submatches: e.Data.Submatches,
			Term:       term,
		})
		fm.TotalMatches += len(e.Data.Submatches)
	}
	out := make([]FileMatches, 0, len(order))
	for _, p := range order {
		out = append(out, *byPath[p])
	}
	return out
}

// penalty is a unimodal function peaking inside [lo,hi] and log-decaying
// outside it — used both for per-line term-frequency scoring and for
// ideal-length scoring of the matched line text.
func penalty(count int, lo, hi float64) float64 {
	c := float64(count)
	if c >= lo && c <= hi {
		return 1.0
	}
	var dist float64
	if c < lo {
		dist = lo - c
	} else {
		dist = c - hi
	}
	return 1.0 / (1.0 + math.Log1p(dist))
}

// Rank scores each file given per-term IDF weights, discarding files whose
// total match count is below the number of queried keywords.
func Rank(files []FileMatches, idf map[string]float64, keywordCount int) []FileMatches {
	kept := make([]FileMatches, 0, len(files))
	for _, f := range files {
		if f.TotalMatches < keywordCount {
			continue
		}
		tfDoc := make(map[string]int)
		for i := range f.Matches {
			m := &f.Matches[i]
			tfLine := make(map[string]int)
			for _, sm := range m.Submatches {
				tfLine[strings.ToLower(sm.Match.Text)]++
			}
			var lineScore float64
			for term, tf := range tfLine {
				tfDoc[term] += tf
				lineScore += idf[term] * penalty(tf, 1, 3)
			}
			m.Score = lineScore * penalty(len(m.Text), 50, 200)
		}
		var fileScore float64
		for term, tf := range tfDoc {
			fileScore += idf[term] * penalty(tf, 1, 50)
		}
		f.Score = fileScore
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept
}

// fingerprint computes a fast content-addressed dedup key: MD5 of the first
// 4 KiB, acceptable per spec for collapsing near-identical files.
func fingerprint(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	sum := md5.Sum(buf[:n])
	return fmt.Sprintf("%x", sum), true
}

// Dedup collapses files sharing a fast fingerprint, retaining the
// highest-scoring copy of each group.
func Dedup(files []FileMatches) []FileMatches {
	bestByFingerprint := make(map[string]FileMatches)
	var order []string
	for _, f := range files {
		fp, ok := fingerprint(f.Path)
		if !ok {
			fp = f.Path
		}
		if existing, seen := bestByFingerprint[fp]; !seen || f.Score > existing.Score {
			if !seen {
				order = append(order, fp)
			}
			bestByFingerprint[fp] = f
		}
	}
	out := make([]FileMatches, 0, len(order))
	for _, fp := range order {
		out = append(out, bestByFingerprint[fp])
	}
	return out
}

// FilenameMatch is one hit from the filename-pattern search path.
type FilenameMatch struct {
	Filename       string
	Path           string
	MatchScore     float64
	MatchedPattern string
}

// SearchFilenames walks paths looking for filenames matching any of
// patterns (already-compiled regexes) without reading file content — the
// fast path FILENAME_ONLY mode relies on.
func SearchFilenames(roots []string, patterns []*regexp.Regexp, scoreFn func(filename string) float64) []FilenameMatch {
	var out []FilenameMatch
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d == nil || d.IsDir() {
				return nil
			}
			name := d.Name()
			for _, pat := range patterns {
				if pat.MatchString(name) {
					out = append(out, FilenameMatch{
						Filename:       name,
						Path:           path,
						MatchScore:     scoreFn(name),
						MatchedPattern: pat.String(),
					})
					break
				}
			}
			return nil
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out
}
