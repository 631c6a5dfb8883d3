package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteDerivesPaths(t *testing.T) {
	o := NewOptions()
	o.DataDir = "/srv/data"
	o.PDFDir = "/mnt/pdfs"
	require.NoError(t, o.Complete())

	assert.Equal(t, filepath.Join("/srv/data", "videos_link.txt"), o.LinksFile)
	assert.Equal(t, "/mnt/pdfs", o.PDFDir)
	assert.Equal(t, filepath.Join("/srv/data", "audio"), o.AudioDir)
	assert.Equal(t, filepath.Join("/srv/data", "transcripts"), o.TranscriptDir)
	assert.Empty(t, o.Validate())
}
