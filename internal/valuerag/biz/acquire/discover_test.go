package acquire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=9bZkp7q19f0&t=42s", "9bZkp7q19f0"},
		{"https://youtu.be/kJQP7kiw5Fk", "kJQP7kiw5Fk"},
		{"https://youtu.be/kJQP7kiw5Fk?si=share", "kJQP7kiw5Fk"},
		{"https://m.youtube.com/watch?v=OPf0YbXqDm0", "OPf0YbXqDm0"},
		{"https://YouTube.com/shorts/a_b-C1d2E3f/", "a_b-C1d2E3f"},
		{"  https://www.youtube.com/embed/JGwWNGJdvx8  ", "JGwWNGJdvx8"},
	}
	for _, tt := range tests {
		got, err := ParseVideoID(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}

	for _, bad := range []string{
		"",
		"not a url",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=../../../../tmp/pwned",
		"https://www.youtube.com/watch?v=dQw4w9WgXc",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQQ",
		"https://youtu.be/..%2F..%2Fetc",
		"https://example.com/not-a-video",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com.evil.test/watch?v=dQw4w9WgXcQ",
		"file:///etc/passwd",
	} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParseVideoID(bad)
			assert.ErrorIs(t, err, errors.ErrInvalidURL)
		})
	}
}

func TestDiscoverVideos(t *testing.T) {
	dir := t.TempDir()
	links := filepath.Join(dir, "videos_link.txt")
	content := "# channel backlog\n\nhttps://www.youtube.com/watch?v=aaaaaaaaaaa\n   \nhttps://youtu.be/bbbbbbbbbbb\nnonsense\n"
	require.NoError(t, os.WriteFile(links, []byte(content), 0o644))

	refs, err := DiscoverVideos(links)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "aaaaaaaaaaa", refs[0].ID)
	assert.Equal(t, "bbbbbbbbbbb", refs[1].ID)
	assert.Equal(t, model.SourceVideo, refs[1].Kind)
	assert.Equal(t, "", refs[2].ID)
	assert.Equal(t, "nonsense", refs[2].Location)

	refs, err = DiscoverVideos(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDiscoverPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"nvidia.pdf", "Apple.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	refs, err := DiscoverPDFs(dir)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Apple.PDF", refs[0].ID)
	assert.Equal(t, "nvidia.pdf", refs[1].ID)
	assert.Equal(t, model.SourcePDF, refs[0].Kind)

	refs, err = DiscoverPDFs(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, refs)
}
