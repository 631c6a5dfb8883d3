package acquire

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

type stubStrategy struct {
	name     string
	segments []model.Segment
	err      error
	calls    int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Acquire(context.Context, model.SourceRef) ([]model.Segment, error) {
	s.calls++
	return s.segments, s.err
}

func seg(text string) model.Segment {
	return model.Segment{Text: text, Metadata: model.Metadata{SourceID: "vid", DocType: model.DocTypeCaption}}
}

var videoRef = model.SourceRef{Kind: model.SourceVideo, Location: "https://youtu.be/vid", ID: "vid"}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &stubStrategy{name: "captions", err: stderrors.New("no subs")}
	second := &stubStrategy{name: "audio-transcript", segments: []model.Segment{seg("hello")}}
	third := &stubStrategy{name: "never"}

	res, err := NewChain(first, second, third).Acquire(context.Background(), videoRef)
	require.NoError(t, err)
	assert.Equal(t, "audio-transcript", res.Strategy)
	assert.Len(t, res.Segments, 1)
	assert.Equal(t, 0, third.calls)
}

func TestChainEmptySuccessFallsThrough(t *testing.T) {
	first := &stubStrategy{name: "captions", segments: []model.Segment{seg("   ")}}
	second := &stubStrategy{name: "audio-transcript", segments: []model.Segment{seg("text")}}

	res, err := NewChain(first, second).Acquire(context.Background(), videoRef)
	require.NoError(t, err)
	assert.Equal(t, "audio-transcript", res.Strategy)
}

func TestChainAllFailWrapsLastCause(t *testing.T) {
	last := stderrors.New("whisper crashed")
	chain := NewChain(
		&stubStrategy{name: "captions", err: stderrors.New("no subs")},
		&stubStrategy{name: "audio-transcript", err: last},
	)

	_, err := chain.Acquire(context.Background(), videoRef)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAcquisitionFailed)
	assert.ErrorIs(t, err, last)
}

func TestChainOnlyEmptyIsSkipped(t *testing.T) {
	chain := NewChain(
		&stubStrategy{name: "text-layer", err: ErrNoText},
		&stubStrategy{name: "ocr"},
	)

	res, err := chain.Acquire(context.Background(), videoRef)
	require.NoError(t, err)
	assert.Empty(t, res.Segments)
	assert.Empty(t, res.Strategy)
}

func TestChainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &stubStrategy{name: "captions", segments: []model.Segment{seg("x")}}

	_, err := NewChain(s).Acquire(ctx, videoRef)
	assert.ErrorIs(t, err, errors.ErrAcquisitionFailed)
	assert.Equal(t, 0, s.calls)
}

func TestAcquirerDispatch(t *testing.T) {
	video := &stubStrategy{name: "captions", segments: []model.Segment{seg("video")}}
	pdf := &stubStrategy{name: "text-layer", segments: []model.Segment{seg("pdf")}}
	a := NewAcquirer(NewChain(video), NewChain(pdf))

	res, err := a.Acquire(context.Background(), model.SourceRef{Kind: model.SourcePDF, ID: "x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "text-layer", res.Strategy)
	assert.Equal(t, 1, pdf.calls)
	assert.Equal(t, 0, video.calls)

	_, err = a.Acquire(context.Background(), model.SourceRef{Kind: "podcast"})
	assert.ErrorIs(t, err, errors.ErrAcquisitionFailed)

	_, err = NewChain().Acquire(context.Background(), videoRef)
	assert.ErrorIs(t, err, errors.ErrAcquisitionFailed)
}

func TestVideoChainFailsWithoutCaptionsOrAudio(t *testing.T) {
	dir := t.TempDir()
	unavailable := stderrors.New("yt-dlp: exit status 1: Video unavailable")
	var invocations [][]string
	ytdlp := func(_ context.Context, _ string, args ...string) error {
		invocations = append(invocations, args)
		for _, a := range args {
			if a == "--skip-download" {
				return nil
			}
		}
		return unavailable
	}

	captions := NewCaptionStrategy("yt-dlp", nil)
	captions.WithCommandRunner(ytdlp)
	tr := &fakeTranscriber{text: "never"}
	audio := NewAudioTranscriptStrategy("yt-dlp", filepath.Join(dir, "audio"), filepath.Join(dir, "transcripts"), tr)
	audio.WithCommandRunner(ytdlp)

	res, err := NewAcquirer(NewChain(captions, audio), NewChain()).Acquire(context.Background(), videoRef)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAcquisitionFailed)
	assert.ErrorIs(t, err, unavailable)
	assert.NotErrorIs(t, err, ErrNoText)
	assert.Len(t, invocations, 2)
	assert.Empty(t, tr.paths)
}
