package agentic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeRetrievalPaths_HigherPriorityWinsOnTie(t *testing.T) {
	sources := [][]string{
		{"/a/one.txt"},
		{"/a/one.txt"},
	}
	weights := []float64{1.0, 0.5}
	merged := mergeRetrievalPaths(sources, weights, 5)
	assert.Equal(t, []string{"/a/one.txt"}, merged)
}

func TestMergeRetrievalPaths_DeduplicatesAcrossSources(t *testing.T) {
	sources := [][]string{
		{"/a/one.txt", "/a/two.txt"},
		{"/a/two.txt"},
		{"/b/three.txt"},
	}
	merged := mergeRetrievalPaths(sources, []float64{1.0, 0.7, 0.4}, 10)
	assert.Len(t, merged, 3)
	seen := map[string]bool{}
	for _, p := range merged {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
}

func TestMergeRetrievalPaths_RespectsTopK(t *testing.T) {
	sources := [][]string{{"/a/1.txt", "/a/2.txt", "/a/3.txt"}}
	merged := mergeRetrievalPaths(sources, []float64{1.0}, 2)
	assert.Len(t, merged, 2)
}

func TestDiversifyByDirectory_SpreadsAcrossDirectories(t *testing.T) {
	fused := []fusedPath{
		{path: "/a/1.txt", fused: 0.9},
		{path: "/a/2.txt", fused: 0.85},
		{path: "/a/3.txt", fused: 0.8},
		{path: "/b/1.txt", fused: 0.5},
	}
	out := diversifyByDirectory(fused, 2)
	a := assert.New(t)
	a.Len(out, 2)
	a.Contains(out, "/a/1.txt")
	// The second pick favors the lower-directory-count /b file over the
	// next-highest raw score (/a/2.txt), which the same-directory penalty
	// now discounts below it.
	a.Contains(out, "/b/1.txt")
}
