package agentic

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"sirchmunk/internal/grepretriever"
)

var queryWordPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// searchFilenameOnly implements FILENAME_ONLY mode: no LLM calls at all.
// Each query word becomes a case-insensitive `.*word.*` regex fragment;
// every candidate filename is scored by the Levenshtein similarity of the
// whole lower-cased query against the whole lower-cased filename, and the
// top-K descriptors (by score) are returned.
func (e *Engine) searchFilenameOnly(query string, opts Options) (Result, error) {
	words := queryWordPattern.FindAllString(query, -1)
	if len(words) == 0 {
		return Result{}, nil
	}

	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		pat, err := regexp.Compile("(?i).*" + regexp.QuoteMeta(w) + ".*")
		if err != nil {
			continue
		}
		patterns = append(patterns, pat)
	}

	scoreFn := func(filename string) float64 {
		return levenshtein.Match(strings.ToLower(query), strings.ToLower(filename), nil)
	}

	matches := grepretriever.SearchFilenames(opts.Paths, patterns, scoreFn)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MatchScore > matches[j].MatchScore })

	topK := opts.TopKFiles
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	files := make([]FileDescriptor, 0, len(matches))
	for _, m := range matches {
		files = append(files, FileDescriptor{Path: m.Path, Filename: m.Filename, Score: m.MatchScore})
	}
	return Result{Files: files}, nil
}
