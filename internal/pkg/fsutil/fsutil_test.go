package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	files, err := FindFiles(dir, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.pdf")}, files)

	_, err = FindFiles(filepath.Join(dir, "missing"), ".pdf")
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos_link.txt")
	content := "https://youtu.be/a\n\n# comment\n  https://www.youtube.com/watch?v=b  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a", "https://www.youtube.com/watch?v=b"}, lines)
}

func TestNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o600))

	assert.False(t, NonEmptyFile(empty))
	assert.True(t, NonEmptyFile(full))
	assert.False(t, NonEmptyFile(filepath.Join(dir, "none")))
	assert.True(t, FileExists(empty))
	require.NoError(t, EnsureDir(filepath.Join(dir, "a", "b")))
}
