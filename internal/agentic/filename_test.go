package agentic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilenameOnly_MatchesAndRanksByScore(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Attention_Is_All_You_Need.pdf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	}

	e := &Engine{}
	result, err := e.searchFilenameOnly("attention paper", Options{Paths: []string{dir}, TopKFiles: 5})
	require.NoError(t, err)
	require.NotEmpty(t, result.Files)
	assert.Equal(t, "Attention_Is_All_You_Need.pdf", result.Files[0].Filename)
	assert.Greater(t, result.Files[0].Score, 0.0)
	assert.LessOrEqual(t, len(result.Files), 5)
}

func TestSearchFilenameOnly_NoWordsReturnsEmpty(t *testing.T) {
	e := &Engine{}
	result, err := e.searchFilenameOnly("???", Options{Paths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}
