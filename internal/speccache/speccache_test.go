package speccache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	c := New(t.TempDir(), zerolog.Nop())
	paths := []string{"/docs/project-a"}

	c.SaveContext(paths, Entry{
		TotalLLMTokens: 1200,
		LoopCount:      3,
		FilesRead:      []string{"/docs/project-a/readme.md"},
		Summary:        "found the readme and two config files",
	})

	got := c.LoadContext(paths, 0)
	assert.Contains(t, got, "found the readme")
}

func TestLoadContext_SkipsStaleEntries(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, zerolog.Nop())
	paths := []string{"/docs/project-b"}

	c.SaveContext(paths, Entry{Summary: "stale summary"})

	// Force staleness by rewriting the entry with an old CachedAt.
	entry, ok := c.readEntry(paths[0])
	require.True(t, ok)
	entry.CachedAt = time.Now().Add(-100 * time.Hour)
	c.writeEntry(paths[0], entry)

	got := c.LoadContext(paths, DefaultStaleHours)
	assert.Empty(t, got)
}

func TestLoadContext_MissingEntryIsSilentlyEmpty(t *testing.T) {
	c := New(t.TempDir(), zerolog.Nop())
	got := c.LoadContext([]string{"/never/searched"}, 0)
	assert.Empty(t, got)
}

func TestSaveContext_WritesSeparateEntryPerPath(t *testing.T) {
	c := New(t.TempDir(), zerolog.Nop())
	paths := []string{"/a", "/b"}
	c.SaveContext(paths, Entry{Summary: "shared summary"})

	for _, p := range paths {
		entry, ok := c.readEntry(p)
		require.True(t, ok)
		assert.Equal(t, p, entry.SearchPath)
		assert.Equal(t, "shared summary", entry.Summary)
	}
}
