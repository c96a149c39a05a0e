package grepretriever

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvents_SkipsMalformedLines(t *testing.T) {
	raw := []byte(`{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"func foo()"},"line_number":10,"submatches":[{"match":{"text":"foo"},"start":5,"end":8}]}}
not json
{"type":"begin","data":{"path":{"text":"a.go"}}}
`)
	events := parseEvents(raw)
	require.Len(t, events, 2)
	assert.Equal(t, "match", events[0].Type)
	assert.Equal(t, "a.go", events[0].Data.Path.Text)
	assert.Equal(t, 10, events[0].Data.LineNumber)
}

func TestMergeResults_GroupsByPath(t *testing.T) {
	raw := []byte(`{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"line one"},"line_number":1,"submatches":[{"match":{"text":"term"}}]}}
{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"line two"},"line_number":2,"submatches":[{"match":{"text":"term"}}]}}
{"type":"match","data":{"path":{"text":"b.go"},"lines":{"text":"line three"},"line_number":3,"submatches":[{"match":{"text":"term"}}]}}
`)
	merged := MergeResults(parseEvents(raw))
	require.Len(t, merged, 2)
	assert.Equal(t, "a.go", merged[0].Path)
	assert.Equal(t, 2, merged[0].TotalMatches)
	assert.Equal(t, "b.go", merged[1].Path)
	assert.Equal(t, 1, merged[1].TotalMatches)
}

func TestRank_DiscardsBelowKeywordCount(t *testing.T) {
	raw := []byte(`{"type":"match","data":{"path":{"text":"high.go"},"lines":{"text":"short line"},"line_number":1,"submatches":[{"match":{"text":"term"}}]}}
{"type":"match","data":{"path":{"text":"high.go"},"lines":{"text":"short line"},"line_number":2,"submatches":[{"match":{"text":"term"}}]}}
{"type":"match","data":{"path":{"text":"low.go"},"lines":{"text":"short line"},"line_number":1,"submatches":[{"match":{"text":"term"}}]}}
`)
	merged := MergeResults(parseEvents(raw))
	ranked := Rank(merged, map[string]float64{"term": 1.0}, 2)
	require.Len(t, ranked, 1)
	assert.Equal(t, "high.go", ranked[0].Path)
}

func TestPenalty_PeaksInsideIdealRange(t *testing.T) {
	inside := penalty(2, 1, 3)
	below := penalty(0, 1, 3)
	above := penalty(10, 1, 3)
	assert.Equal(t, 1.0, inside)
	assert.Less(t, below, inside)
	assert.Less(t, above, inside)
}

func TestBuildArgs_LiteralDoesNotAlternate(t *testing.T) {
	args := buildArgs("a+b", []string{"/tmp"}, Options{Literal: true})
	assert.Contains(t, args, "--fixed-strings")
	assert.Contains(t, args, "a+b")
	for _, a := range args {
		assert.NotContains(t, a, "|")
	}
}

func TestDedup_KeepsHighestScoringCopy(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.go")
	p2 := filepath.Join(dir, "two.go")
	require.NoError(t, os.WriteFile(p1, []byte("same content"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("same content"), 0o644))

	files := []FileMatches{
		{Path: p1, Score: 1.0},
		{Path: p2, Score: 5.0},
	}
	out := Dedup(files)
	require.Len(t, out, 1)
	assert.Equal(t, p2, out[0].Path)
}
