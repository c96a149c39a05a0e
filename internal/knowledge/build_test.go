package knowledge

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sirchmunk/internal/llm"
	"sirchmunk/internal/sampler"
)

type fakeProvider struct {
	response string
}

func (p *fakeProvider) Chat(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions) (llm.Response, error) {
	return llm.Response{Content: p.response, Usage: llm.Usage{TotalTokens: 42}}, nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions, onDelta llm.StreamFunc) (llm.Response, error) {
	onDelta(p.response)
	return llm.Response{Content: p.response, Usage: llm.Usage{TotalTokens: 42}}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuild_NoEvidenceReturnsUnnamedCluster(t *testing.T) {
	path := writeTemp(t, "empty.txt", "nothing relevant in here at all, just filler words")
	provider := &fakeProvider{}
	b := New(provider, "test-model", sampler.New(rand.New(rand.NewSource(1))))

	c, _, err := b.Build(context.Background(), Request{
		UserInput: "completely unrelated query about zzqzqzqz",
		FilePaths: []string{path},
	})
	require.NoError(t, err)
	assert.Empty(t, c.Name)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, len(c.Evidences))
	assert.False(t, c.Evidences[0].IsFound)
}

func TestBuild_FindsEvidenceAndSynthesizes(t *testing.T) {
	content := "intro filler text. the quick brown fox jumps over the lazy dog near the config file. more filler."
	path := writeTemp(t, "doc.txt", content)
	provider := &fakeProvider{response: "<NAME>Fox Config</NAME><DESCRIPTION>Describes the fox and config.</DESCRIPTION><CONTENT>The fox is near the config file.</CONTENT>"}
	b := New(provider, "test-model", sampler.New(rand.New(rand.NewSource(7))))

	c, usage, err := b.Build(context.Background(), Request{
		UserInput: "the quick brown fox jumps over the lazy dog",
		FilePaths: []string{path},
		IDF:       map[string]float64{"fox": 2.0, "config": 1.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, usage.TotalTokens)
	assert.Equal(t, "Fox Config", c.Name)
	assert.Equal(t, []string{"Describes the fox and config."}, c.Description)
	assert.Equal(t, []string{"The fox is near the config file."}, c.Content)
	assert.True(t, c.Evidences[0].IsFound)
	assert.NotEmpty(t, c.Evidences[0].Snippets)
	assert.Equal(t, 0.5, c.Confidence)
	assert.Equal(t, uint32(1), c.Version)
}

func TestBuild_RespectsTopKFilesLimit(t *testing.T) {
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeTemp(t, "f.txt", "irrelevant content"))
	}
	b := New(&fakeProvider{}, "test-model", sampler.New(rand.New(rand.NewSource(2))))

	c, _, err := b.Build(context.Background(), Request{
		UserInput: "query",
		FilePaths: paths,
		TopKFiles: 2,
	})
	require.NoError(t, err)
	assert.Len(t, c.Evidences, 2)
}

func TestEvidenceQueriesFor_OrdersByDescendingIDF(t *testing.T) {
	queries := evidenceQueriesFor("base query", map[string]float64{"rare": 3.0, "common": 0.5})
	require.Len(t, queries, 3)
	assert.Equal(t, "base query", queries[0])
	assert.Equal(t, "rare", queries[1])
	assert.Equal(t, "common", queries[2])
}
