package absolutify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "a")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "b")
	writeFile(t, filepath.Join(dir, "a.absolute.md"), "generated")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not markdown")

	files, err := CollectDocuments(dir, "**/*.md", "absolute")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "sub", "b.md"),
	}, files)
}

func TestCollectDocumentsNoExclusion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "a")
	writeFile(t, filepath.Join(dir, "a.absolute.md"), "generated")

	files, err := CollectDocuments(dir, "**/*.md", "")

	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCollectDocumentsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path, "a")

	files, err := CollectDocuments(path, "**/*.md", "absolute")

	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectDocumentsMissingRoot(t *testing.T) {
	_, err := CollectDocuments(filepath.Join(t.TempDir(), "nope"), "**/*.md", "")
	assert.Error(t, err)
}
