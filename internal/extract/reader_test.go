package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\nbody line one\nbody line two\n"), 0o644))

	res, err := Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Title", res.Meta.Title)
	assert.Equal(t, 3, res.Meta.LineCount)
	assert.Contains(t, res.Text, "body line one")
}

func TestExtractRejectsBinaryAsPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.dat")
	require.NoError(t, os.WriteFile(path, []byte("a\x00b\x00c"), 0o644))

	_, err := Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestIsTextFamily(t *testing.T) {
	assert.True(t, IsTextFamily(".md"))
	assert.True(t, IsTextFamily(".GO"))
	assert.False(t, IsTextFamily(".pdf"))
	assert.False(t, IsTextFamily(".xlsx"))
}
