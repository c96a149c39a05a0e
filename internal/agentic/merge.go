package agentic

import (
	"math"
	"path/filepath"
	"sort"
)

// fusedPath is one candidate path's reciprocal-rank-fused score across every
// source that surfaced it.
type fusedPath struct {
	path  string
	fused float64
}

// rrfK is the Reciprocal Rank Fusion denominator constant.
const rrfK = 60.0

// mergeRetrievalPaths fuses the three phase-2 path sources into one
// deduplicated, priority-ordered shortlist using Reciprocal Rank Fusion,
// then greedily diversifies the result so one directory doesn't dominate the
// shortlist purely because one source happened to rank many of its files
// highly. sources must be given in priority order (keyword_search first,
// knowledge_cache second, dir_scan last); weights scales each source's RRF
// contribution accordingly — keyword_search > knowledge_cache > dir_scan.
func mergeRetrievalPaths(sources [][]string, weights []float64, topK int) []string {
	scores := make(map[string]float64)
	var order []string
	for si, paths := range sources {
		w := 1.0
		if si < len(weights) {
			w = weights[si]
		}
		for i, p := range paths {
			if p == "" {
				continue
			}
			if _, seen := scores[p]; !seen {
				order = append(order, p)
			}
			scores[p] += w / (rrfK + float64(i+1))
		}
	}

	fused := make([]fusedPath, 0, len(order))
	for _, p := range order {
		fused = append(fused, fusedPath{path: p, fused: scores[p]})
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].fused != fused[j].fused {
			return fused[i].fused > fused[j].fused
		}
		return fused[i].path < fused[j].path
	})

	return diversifyByDirectory(fused, topK)
}

// diversifyByDirectory greedily selects up to k paths from fused, applying a
// multiplicative penalty to candidates whose containing directory has
// already contributed entries — the same reciprocal-penalty shape as a
// plain RRF cutoff, but biased against over-representing one directory.
func diversifyByDirectory(fused []fusedPath, k int) []string {
	if k <= 0 || k > len(fused) {
		k = len(fused)
	}
	const lambdaDir = 0.75
	dirCount := make(map[string]int)
	used := make([]bool, len(fused))
	selected := make([]string, 0, k)

	for len(selected) < k {
		bestIdx := -1
		bestAdj := -1.0
		for i, c := range fused {
			if used[i] {
				continue
			}
			dir := filepath.Dir(c.path)
			denom := 1.0 + lambdaDir*float64(dirCount[dir])
			adj := c.fused / denom
			if adj > bestAdj || (almostEqual(adj, bestAdj) && (bestIdx == -1 || c.path < fused[bestIdx].path)) {
				bestAdj = adj
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		pick := fused[bestIdx]
		selected = append(selected, pick.path)
		used[bestIdx] = true
		dirCount[filepath.Dir(pick.path)]++
	}
	return selected
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
