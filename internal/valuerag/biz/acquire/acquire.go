// Package acquire turns source references into raw text segments.
//
// 每类来源对应一条有序的策略链，第一个产出非空文本的策略胜出：
//
//	视频: 字幕 -> 音频转写
//	PDF:  文本层 -> 页面 OCR
package acquire

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// ErrNoText 策略成功执行但没有得到任何文本。
var ErrNoText = stderrors.New("no text extracted")

// Strategy produces segments for one source using one technique.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, ref model.SourceRef) ([]model.Segment, error)
}

// Result is the outcome of a successful acquisition.
type Result struct {
	Segments []model.Segment
	// Strategy 产出文本的策略名，来源无文本时为空。
	Strategy string
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a Chain.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Acquire runs the strategies until one yields non-empty text.
//
// 全部策略都只报告 ErrNoText 时返回空结果而非错误，调用方按“跳过”处理。
func (c *Chain) Acquire(ctx context.Context, ref model.SourceRef) (*Result, error) {
	if len(c.strategies) == 0 {
		return nil, errors.ErrAcquisitionFailed.WithCause(fmt.Errorf("no strategy for %s", ref.Kind))
	}

	var lastErr error
	onlyEmpty := true
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, errors.ErrAcquisitionFailed.WithCause(err)
		}

		segments, err := s.Acquire(ctx, ref)
		if err == nil {
			segments = nonEmpty(segments)
			if len(segments) > 0 {
				return &Result{Segments: segments, Strategy: s.Name()}, nil
			}
			err = ErrNoText
		}

		if !stderrors.Is(err, ErrNoText) {
			onlyEmpty = false
		}
		logger.Warnw("Acquisition strategy failed",
			"source_id", ref.ID,
			"strategy", s.Name(),
			"error", err.Error(),
		)
		lastErr = err
	}

	if onlyEmpty {
		return &Result{}, nil
	}
	return nil, errors.ErrAcquisitionFailed.WithCause(lastErr)
}

func nonEmpty(segments []model.Segment) []model.Segment {
	out := segments[:0]
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Acquirer dispatches a reference to the chain of its kind.
type Acquirer struct {
	chains map[model.SourceKind]*Chain
}

// NewAcquirer creates an Acquirer from the video and PDF chains.
func NewAcquirer(video, pdf *Chain) *Acquirer {
	return &Acquirer{chains: map[model.SourceKind]*Chain{
		model.SourceVideo: video,
		model.SourcePDF:   pdf,
	}}
}

// Acquire implements the source acquirer.
func (a *Acquirer) Acquire(ctx context.Context, ref model.SourceRef) (*Result, error) {
	chain, ok := a.chains[ref.Kind]
	if !ok || chain == nil {
		return nil, errors.ErrAcquisitionFailed.WithCause(fmt.Errorf("unsupported source kind %q", ref.Kind))
	}
	return chain.Acquire(ctx, ref)
}
