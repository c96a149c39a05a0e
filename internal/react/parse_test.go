package react

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall_JSONCodeBlock(t *testing.T) {
	content := "I should search for this.\n```json\n{\"tool\":\"keyword_search\",\"arguments\":{\"keywords\":[\"foo\"]}}\n```\n"
	tc, ok := ParseToolCall(content)
	require.True(t, ok)
	assert.Equal(t, "keyword_search", tc.Name)
	assert.Equal(t, []any{"foo"}, tc.Args["keywords"])
}

func TestParseToolCall_BareJSONObject(t *testing.T) {
	content := `Let me call {"name":"dir_scan","arguments":{"query":"config","top_k":5}} now.`
	tc, ok := ParseToolCall(content)
	require.True(t, ok)
	assert.Equal(t, "dir_scan", tc.Name)
	assert.Equal(t, "config", tc.Args["query"])
}

func TestParseToolCall_FunctionCallSyntax(t *testing.T) {
	content := `file_read({"file_paths":["a.txt","b.txt"]})`
	tc, ok := ParseToolCall(content)
	require.True(t, ok)
	assert.Equal(t, "file_read", tc.Name)
}

func TestParseToolCall_NoCallReturnsFalse(t *testing.T) {
	_, ok := ParseToolCall("just some plain text with no tool call")
	assert.False(t, ok)
}

func TestExtractAnswer_FindsTaggedBlock(t *testing.T) {
	content := "Some reasoning.\n<ANSWER>The config lives in config.yaml.</ANSWER>"
	answer, ok := ExtractAnswer(content)
	require.True(t, ok)
	assert.Equal(t, "The config lives in config.yaml.", answer)
}

func TestExtractAnswer_AbsentReturnsFalse(t *testing.T) {
	_, ok := ExtractAnswer("no answer tag here")
	assert.False(t, ok)
}
