package sampler

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnchors_RarerAnchorsWeightedHigher(t *testing.T) {
	anchors := buildAnchors([]string{"abcdefghabcdefgh", "zzzzzzzz"})
	require.NotEmpty(t, anchors)
	var rareWeight, commonWeight float64
	for _, a := range anchors {
		if a.text == "zzzzzzzz" {
			rareWeight = a.weight
		}
		if a.text == "abcdefgh" {
			commonWeight = a.weight
		}
	}
	assert.Greater(t, rareWeight, commonWeight)
}

func TestSample_FindsRegionNearAnchor(t *testing.T) {
	text := strings.Repeat("filler text here. ", 50) + "the quick brown fox jumps over the lazy dog. " + strings.Repeat("more filler. ", 50)
	s := New(rand.New(rand.NewSource(42)))
	rois := s.Sample(text, []string{"the quick brown fox"}, 5)
	require.NotEmpty(t, rois)
	found := false
	for _, r := range rois {
		if strings.Contains(r.Content, "quick brown fox") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSample_EmptyInputsReturnNothing(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.Sample("", []string{"evidence"}, 5))
	assert.Empty(t, s.Sample("some text", nil, 5))
}

func TestPartialRatio_ExactSubstringScoresHigh(t *testing.T) {
	score := partialRatio("brown fox", "the quick brown fox jumps")
	assert.Greater(t, score, 0.9)
}
