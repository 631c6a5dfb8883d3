package acquire

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/valuerag/internal/pkg/fsutil"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// videoHosts 仅接受 YouTube 的域名。
var videoHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// ParseVideoID extracts the 11-character video id from a YouTube URL.
//
//	https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1 -> dQw4w9WgXcQ
//	https://youtu.be/dQw4w9WgXcQ                    -> dQw4w9WgXcQ
//	https://www.youtube.com/shorts/dQw4w9WgXcQ      -> dQw4w9WgXcQ
//
// The id names files under the audio and transcript directories, so anything
// that is not a well-formed id is rejected.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.ErrInvalidURL.WithMessagef("invalid video URL: %q", raw)
	}
	if !videoHosts[strings.ToLower(u.Hostname())] {
		return "", errors.ErrInvalidURL.WithMessagef("not a YouTube URL: %q", raw)
	}

	id := u.Query().Get("v")
	if id == "" {
		id = path.Base(strings.TrimRight(u.Path, "/"))
	}
	if !videoIDRe.MatchString(id) {
		return "", errors.ErrInvalidURL.WithMessagef("no video id in URL: %q", raw)
	}
	return id, nil
}

// VideoRef builds a reference for a video URL.
func VideoRef(rawURL string) (model.SourceRef, error) {
	id, err := ParseVideoID(rawURL)
	if err != nil {
		return model.SourceRef{}, err
	}
	return model.SourceRef{Kind: model.SourceVideo, Location: strings.TrimSpace(rawURL), ID: id}, nil
}

// PDFRef builds a reference for a PDF path; the id is the file name.
func PDFRef(p string) model.SourceRef {
	return model.SourceRef{Kind: model.SourcePDF, Location: p, ID: filepath.Base(p)}
}

// DiscoverVideos reads the link list. 无法解析的链接保留下来，ID 留空，由导入流程记录失败。
func DiscoverVideos(linksFile string) ([]model.SourceRef, error) {
	if !fsutil.FileExists(linksFile) {
		return nil, nil
	}
	lines, err := fsutil.ReadLines(linksFile)
	if err != nil {
		return nil, err
	}

	refs := make([]model.SourceRef, 0, len(lines))
	for _, line := range lines {
		ref, err := VideoRef(line)
		if err != nil {
			ref = model.SourceRef{Kind: model.SourceVideo, Location: line}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// DiscoverPDFs lists *.pdf files in dir, sorted by name.
func DiscoverPDFs(dir string) ([]model.SourceRef, error) {
	if !fsutil.FileExists(dir) {
		return nil, nil
	}
	files, err := fsutil.FindFiles(dir, ".pdf")
	if err != nil {
		return nil, err
	}
	refs := make([]model.SourceRef, 0, len(files))
	for _, f := range files {
		refs = append(refs, PDFRef(f))
	}
	return refs, nil
}
