package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	ledgeropts "github.com/kart-io/valuerag/pkg/options/ledger"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	opts := ledgeropts.NewOptions()
	opts.DSN = filepath.Join(t.TempDir(), "sub", "ledger.db")

	l, err := OpenLedger(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedgerRecordAndQuery(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	src := model.SourceRef{Kind: model.SourceVideo, Location: "https://youtu.be/dQw4w9WgXcQ", ID: "abc"}
	require.NoError(t, l.Record(ctx, &model.IngestResult{
		Source: src, SourceID: "abc", Kind: model.SourceVideo,
		Strategy: "captions", Status: model.StatusIndexed, Chunks: 3, Duration: time.Second,
	}))
	require.NoError(t, l.Record(ctx, &model.IngestResult{
		Source: src, SourceID: "abc", Kind: model.SourceVideo,
		Strategy: "captions", Status: model.StatusIndexed, Chunks: 3,
	}))
	require.NoError(t, l.Record(ctx, &model.IngestResult{
		SourceID: "broken.pdf", Kind: model.SourcePDF, Status: model.StatusFailed, Error: "no text",
	}))

	latest, err := l.Latest(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", latest.Location)
	assert.Equal(t, "captions", latest.Strategy)

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "broken.pdf", recent[0].SourceID)
	assert.Equal(t, model.StatusFailed, recent[0].Status)

	none, err := l.Latest(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDialectorUnsupported(t *testing.T) {
	_, err := dialectorFor(&ledgeropts.Options{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestLedgerErrorsAreTyped(t *testing.T) {
	opts := ledgeropts.NewOptions()
	opts.DSN = filepath.Join(t.TempDir(), "closed.db")
	l, err := OpenLedger(opts)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = l.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, errors.ErrLedger)
	_, err = l.Latest(context.Background(), "abc")
	assert.ErrorIs(t, err, errors.ErrLedger)
}
