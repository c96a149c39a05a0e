package agentic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords_ParsesTwoTierBulletList(t *testing.T) {
	response := "- machine learning\n" +
		"- neural networks\n" +
		"* transformer attention mechanism\n" +
		"- \"BERT\"\n"
	e := &Engine{Provider: &scriptedChatProvider{response: response}, Model: "test"}

	idf, keywords, _, err := e.extractKeywords(context.Background(), "how do transformers work")
	require.NoError(t, err)
	require.Len(t, keywords, 4)
	assert.Equal(t, "machine learning", keywords[0])
	assert.Equal(t, "BERT", keywords[3])

	// later keywords carry a higher IDF weight than earlier ones
	assert.Greater(t, idf["bert"], idf["machine learning"])
}

func TestExtractKeywords_DedupesCaseInsensitively(t *testing.T) {
	response := "- Fox\n- fox\n- FOX\n"
	e := &Engine{Provider: &scriptedChatProvider{response: response}, Model: "test"}

	_, keywords, _, err := e.extractKeywords(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, keywords, 1)
}

func TestExtractKeywords_FallsBackWhenNoBulletsParsed(t *testing.T) {
	e := &Engine{Provider: &scriptedChatProvider{response: "I cannot help with that."}, Model: "test"}

	_, keywords, _, err := e.extractKeywords(context.Background(), "find the config loader")
	require.NoError(t, err)
	assert.Contains(t, keywords, "find")
	assert.Contains(t, keywords, "config")
	assert.Contains(t, keywords, "loader")
}

func TestFallbackKeywords_ExtractsWordsOfMinLength(t *testing.T) {
	got := fallbackKeywords("a the cat sat on a mat 42x")
	for _, w := range got {
		assert.GreaterOrEqual(t, len(w), 3)
	}
	assert.Contains(t, got, "cat")
	assert.Contains(t, got, "sat")
	assert.NotContains(t, got, "a")
}
