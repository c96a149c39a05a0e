// Package sampler implements MonteCarloEvidenceSampler: weighted anchor
// sampling over a document's text to find regions of interest likely
// relevant to a query, without a full-text index.
package sampler

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

const (
	anchorLength    = 8
	anchorStride    = 4
	defaultSampleSize = 50
	maxScanBytes    = 20_000
	scanStepBytes   = 1024
)

// ROI is one region of interest discovered in a document.
type ROI struct {
	Content string
	Score   float64
	Start   int
	End     int
	HitCount int
}

// Sampler draws anchors from evidence snippets and locates their occurrences
// in a document, expanding to semantic boundaries and scoring by fuzzy
// similarity against the original evidence.
type Sampler struct {
	SampleSize int
	MaxScan    int
	Rand       *rand.Rand
}

// New constructs a Sampler with the spec's stated defaults. rng may be nil,
// in which case a private source with the fixed seed 1 is used, so every
// such Sampler draws the same sequence.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Sampler{SampleSize: defaultSampleSize, MaxScan: maxScanBytes, Rand: rng}
}

type anchor struct {
	text   string
	weight float64
}

// buildAnchors slides fixed-length windows over each whitespace-stripped
// evidence snippet, weighting rarer anchors (across the whole evidence set)
// more heavily — len(a) / count(a)^2, normalized.
func buildAnchors(evidence []string) []anchor {
	counts := make(map[string]int)
	var order []string
	for _, snippet := range evidence {
		stripped := strings.Join(strings.Fields(snippet), "")
		for i := 0; i+anchorLength <= len(stripped); i += anchorStride {
			a := stripped[i : i+anchorLength]
			if counts[a] == 0 {
				order = append(order, a)
			}
			counts[a]++
		}
	}
	anchors := make([]anchor, 0, len(order))
	var totalWeight float64
	for _, a := range order {
		w := float64(len(a)) / float64(counts[a]*counts[a])
		anchors = append(anchors, anchor{text: a, weight: w})
		totalWeight += w
	}
	if totalWeight > 0 {
		for i := range anchors {
			anchors[i].weight /= totalWeight
		}
	}
	return anchors
}

// sampleWithoutReplacement draws up to n anchors proportional to weight.
func sampleWithoutReplacement(anchors []anchor, n int, rng *rand.Rand) []anchor {
	pool := make([]anchor, len(anchors))
	copy(pool, anchors)
	var drawn []anchor
	for len(pool) > 0 && len(drawn) < n {
		var total float64
		for _, a := range pool {
			total += a.weight
		}
		if total <= 0 {
			break
		}
		r := rng.Float64() * total
		var cum float64
		idx := len(pool) - 1
		for i, a := range pool {
			cum += a.weight
			if r <= cum {
				idx = i
				break
			}
		}
		drawn = append(drawn, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return drawn
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)
var sentenceBoundary = regexp.MustCompile(`[.!?]\s*\n`)

// expandToSemanticBoundary grows [start,end) outward in scanStepBytes chunks
// (up to maxScan total) until a paragraph break, sentence-end-then-newline,
// or plain newline is found on each side.
func expandToSemanticBoundary(text string, start, end, maxScan int) (int, int) {
	newStart := start
	scanned := 0
	for newStart > 0 && scanned < maxScan {
		lo := newStart - scanStepBytes
		if lo < 0 {
			lo = 0
		}
		window := text[lo:newStart]
		if b := lastBoundary(window); b >= 0 {
			newStart = lo + b
			break
		}
		scanned += newStart - lo
		newStart = lo
	}

	newEnd := end
	scanned = 0
	for newEnd < len(text) && scanned < maxScan {
		hi := newEnd + scanStepBytes
		if hi > len(text) {
			hi = len(text)
		}
		window := text[newEnd:hi]
		if b := firstBoundary(window); b >= 0 {
			newEnd = newEnd + b
			break
		}
		scanned += hi - newEnd
		newEnd = hi
	}
	return newStart, newEnd
}

func lastBoundary(window string) int {
	best := -1
	if loc := paragraphBreak.FindAllStringIndex(window, -1); len(loc) > 0 {
		best = loc[len(loc)-1][1]
	}
	if loc := sentenceBoundary.FindAllStringIndex(window, -1); len(loc) > 0 && loc[len(loc)-1][1] > best {
		best = loc[len(loc)-1][1]
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 && idx > best {
		best = idx + 1
	}
	return best
}

func firstBoundary(window string) int {
	if loc := paragraphBreak.FindStringIndex(window); loc != nil {
		return loc[0]
	}
	if loc := sentenceBoundary.FindStringIndex(window); loc != nil {
		return loc[0]
	}
	if idx := strings.Index(window, "\n"); idx >= 0 {
		return idx
	}
	return -1
}

// partialRatio approximates fuzzywuzzy's partial-ratio: the best
// Levenshtein-similarity of needle against any equal-length substring of
// haystack, falling back to whole-string similarity when needle is longer.
func partialRatio(needle, haystack string) float64 {
	if needle == "" || haystack == "" {
		return 0
	}
	if len(needle) >= len(haystack) {
		return levenshtein.Match(needle, haystack, nil)
	}
	best := 0.0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		score := levenshtein.Match(needle, haystack[i:i+len(needle)], nil)
		if score > best {
			best = score
		}
	}
	return best
}

// Sample runs the full Monte-Carlo protocol against text (already-extracted
// document content) guided by evidence snippets, returning the top-K ROIs.
func (s *Sampler) Sample(text string, evidence []string, topK int) []ROI {
	if len(text) == 0 || len(evidence) == 0 {
		return nil
	}
	anchors := buildAnchors(evidence)
	if len(anchors) == 0 {
		return nil
	}
	sampleSize := s.SampleSize
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}
	drawn := sampleWithoutReplacement(anchors, sampleSize, s.Rand)

	type hit struct{ start, end int }
	hitCounts := make(map[hit]int)
	var order []hit

	maxStart := len(text) - 1024
	if maxStart < 0 {
		maxStart = 0
	}
	maxScan := s.MaxScan
	if maxScan <= 0 {
		maxScan = maxScanBytes
	}

	for _, a := range drawn {
		startOffset := 0
		if maxStart > 0 {
			startOffset = s.Rand.Intn(maxStart + 1)
		}
		idx := strings.Index(text[startOffset:], a.text)
		if idx < 0 {
			continue
		}
		matchStart := startOffset + idx
		matchEnd := matchStart + len(a.text)
		pStart, pEnd := expandToSemanticBoundary(text, matchStart, matchEnd, maxScan)
		h := hit{start: pStart, end: pEnd}
		if hitCounts[h] == 0 {
			order = append(order, h)
		}
		hitCounts[h]++
	}

	rois := make([]ROI, 0, len(order))
	for _, h := range order {
		region := text[h.start:h.end]
		var best float64
		for _, e := range evidence {
			if r := partialRatio(e, region); r > best {
				best = r
			}
		}
		rois = append(rois, ROI{
			Content:  strings.TrimSpace(region),
			Score:    best,
			Start:    h.start,
			End:      h.end,
			HitCount: hitCounts[h],
		})
	}

	sort.SliceStable(rois, func(i, j int) bool { return rois[i].Score > rois[j].Score })
	if topK > 0 && len(rois) > topK {
		rois = rois[:topK]
	}
	return rois
}
