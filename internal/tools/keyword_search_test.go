package tools

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/grepretriever"
)

func submatch(text string) grepretriever.Submatch {
	var sm grepretriever.Submatch
	_ = json.Unmarshal([]byte(`{"match":{"text":"`+text+`"}}`), &sm)
	return sm
}

func TestDiverseSnippets_RoundRobinsAcrossTerms(t *testing.T) {
	matches := []grepretriever.Match{
		{Text: "alpha line 1", Term: "alpha", Score: 3, LineNumber: 1},
		{Text: "alpha line 2", Term: "alpha", Score: 2, LineNumber: 2},
		{Text: "alpha line 3", Term: "alpha", Score: 1, LineNumber: 3},
		{Text: "beta line 1", Term: "beta", Score: 1, LineNumber: 10},
	}
	out := diverseSnippets(matches, 3)
	require.Len(t, out, 3)

	var terms []string
	for _, m := range out {
		terms = append(terms, m.Term)
	}
	assert.Contains(t, terms, "beta")
}

func TestDiverseSnippets_DedupesByLineText(t *testing.T) {
	matches := []grepretriever.Match{
		{Text: "same line", Term: "a", Score: 2},
		{Text: "same line", Term: "b", Score: 1},
	}
	out := diverseSnippets(matches, 5)
	assert.Len(t, out, 1)
}

func TestFormatKeywordResults_IncludesPathAndLineNumbers(t *testing.T) {
	files := []grepretriever.FileMatches{
		{Path: "/a/b.go", Matches: []grepretriever.Match{
			{Text: "func main() {}", LineNumber: 5, Term: "main"},
		}},
	}
	text := formatKeywordResults(files)
	assert.True(t, strings.Contains(text, "[/a/b.go]"))
	assert.True(t, strings.Contains(text, "L5:"))
}

func TestBuildIDF_RarerTermScoresHigher(t *testing.T) {
	files := []grepretriever.FileMatches{
		{Path: "f1", Matches: []grepretriever.Match{
			{Submatches: []grepretriever.Submatch{submatch("common")}},
		}},
		{Path: "f2", Matches: []grepretriever.Match{
			{Submatches: []grepretriever.Submatch{submatch("common")}},
		}},
	}
	idf := buildIDF(files, []string{"common", "rare"})
	assert.Greater(t, idf["rare"], idf["common"])
}
