package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/biz/acquire"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/infra/pool"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// SourceAcquirer turns a source reference into text segments.
type SourceAcquirer interface {
	Acquire(ctx context.Context, ref model.SourceRef) (*acquire.Result, error)
}

// ChunkIndex writes chunks to the vector index.
type ChunkIndex interface {
	Upsert(ctx context.Context, chunks []model.Chunk) (int, error)
	Purge(ctx context.Context, sourceID string) (int64, error)
}

// IngestRecorder persists ingestion outcomes.
type IngestRecorder interface {
	Record(ctx context.Context, res *model.IngestResult) error
}

// IngestLedger persists ingestion outcomes and answers what a source last did.
type IngestLedger interface {
	IngestRecorder
	Latest(ctx context.Context, sourceID string) (*store.SourceRecord, error)
}

// Submitter schedules a task, e.g. (*pool.Pool).SubmitWithContext.
type Submitter func(ctx context.Context, task func(ctx context.Context)) error

// CacheClearer drops cached answers once the index changed.
type CacheClearer interface {
	Clear(ctx context.Context) error
}

// IngestConfig 导入配置。
type IngestConfig struct {
	LinksFile string
	PDFDir    string
	// LockFile 批量导入的文件锁，为空时不加锁。
	LockFile string
	// Purge 导入前删除该来源已有的分块。
	Purge bool
}

// Ingester runs acquire → chunk → index for videos and PDFs.
type Ingester struct {
	acquirer SourceAcquirer
	chunker  *Chunker
	index    ChunkIndex
	config   *IngestConfig

	ledger  IngestLedger
	workers *pool.Pool
	cache   CacheClearer

	running atomic.Bool
	pending sync.WaitGroup
	now     func() time.Time

	// indexed 记录本进程内最近一次成功索引的时间，台账关闭时增量导入依赖它。
	mu      sync.Mutex
	indexed map[string]time.Time
}

// NewIngester creates an Ingester.
func NewIngester(acquirer SourceAcquirer, chunker *Chunker, index ChunkIndex, config *IngestConfig) *Ingester {
	if config == nil {
		config = &IngestConfig{}
	}
	return &Ingester{
		acquirer: acquirer,
		chunker:  chunker,
		index:    index,
		config:   config,
		now:      time.Now,
		indexed:  make(map[string]time.Time),
	}
}

// WithLedger records every result. 提供 workers 时台账写入在后台执行。
func (s *Ingester) WithLedger(ledger IngestLedger, workers *pool.Pool) *Ingester {
	s.ledger = ledger
	s.workers = workers
	return s
}

// WithAnswerCache clears the answer cache after new video text is indexed.
func (s *Ingester) WithAnswerCache(cache CacheClearer) *Ingester {
	s.cache = cache
	return s
}

// Running reports whether a batch is in progress.
func (s *Ingester) Running() bool {
	return s.running.Load()
}

// IngestVideo ingests one YouTube video. 返回的 error 仅表示该来源失败。
func (s *Ingester) IngestVideo(ctx context.Context, url string) (*model.IngestResult, error) {
	ref, err := acquire.VideoRef(url)
	if err != nil {
		res := &model.IngestResult{Source: model.SourceRef{Kind: model.SourceVideo, Location: url}, Kind: model.SourceVideo}
		s.finish(ctx, res, s.now(), err)
		return res, err
	}
	res, err := s.ingest(ctx, ref, s.config.Purge)
	if err == nil && res.Status == model.StatusIndexed {
		s.clearCache(ctx)
	}
	return res, err
}

// IngestPDF ingests one PDF file.
func (s *Ingester) IngestPDF(ctx context.Context, path string) (*model.IngestResult, error) {
	return s.ingest(ctx, acquire.PDFRef(path), s.config.Purge)
}

// RunBatch ingests every PDF and then every listed video, one at a time.
// 单个来源失败只记录，不中断批次。
func (s *Ingester) RunBatch(ctx context.Context) (*model.BatchReport, error) {
	return s.run(ctx, false)
}

// RunIncremental is RunBatch restricted to sources that are new or changed:
// a source whose last outcome was indexed is left alone, except a PDF modified
// since then, which is purged and indexed again.
func (s *Ingester) RunIncremental(ctx context.Context) (*model.BatchReport, error) {
	return s.run(ctx, true)
}

// StartBatch claims the ingester and runs a full batch through submit.
// The claim and the running check are the same operation, so a second
// caller gets ErrIngestionRunning. done receives the outcome and may be nil.
func (s *Ingester) StartBatch(ctx context.Context, submit Submitter, done func(*model.BatchReport, error)) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.ErrIngestionRunning
	}
	err := submit(ctx, func(ctx context.Context) {
		defer s.running.Store(false)
		report, err := s.runClaimed(ctx, false)
		if done != nil {
			done(report, err)
		}
	})
	if err != nil {
		s.running.Store(false)
		return errors.ErrIngestionRunning.WithCause(err)
	}
	return nil
}

func (s *Ingester) run(ctx context.Context, incremental bool) (*model.BatchReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.ErrIngestionRunning
	}
	defer s.running.Store(false)
	return s.runClaimed(ctx, incremental)
}

// runClaimed 调用方已持有 running 标记。
func (s *Ingester) runClaimed(ctx context.Context, incremental bool) (*model.BatchReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := &model.BatchReport{StartedAt: s.now()}

	pdfs, err := acquire.DiscoverPDFs(s.config.PDFDir)
	if err != nil {
		logger.Warnw("Failed to list PDFs", "dir", s.config.PDFDir, "error", err.Error())
	}
	videos, err := acquire.DiscoverVideos(s.config.LinksFile)
	if err != nil {
		logger.Warnw("Failed to read video links", "file", s.config.LinksFile, "error", err.Error())
	}
	if incremental {
		// 后台台账写入完成后再判断哪些来源已索引。
		s.pending.Wait()
	}
	logger.Infow("Batch ingestion started", "pdfs", len(pdfs), "videos", len(videos), "incremental", incremental)

	newVideos := false
	for _, ref := range append(pdfs, videos...) {
		if ctx.Err() != nil {
			logger.Warnw("Batch ingestion cancelled", "error", ctx.Err().Error())
			break
		}

		var res *model.IngestResult
		switch {
		case ref.Kind == model.SourceVideo && ref.ID == "":
			res = &model.IngestResult{Source: ref, Kind: ref.Kind}
			s.finish(ctx, res, s.now(), errors.ErrInvalidURL.WithMessagef("cannot parse video id from %s", ref.Location))
		case incremental:
			changed, known := s.changedSince(ctx, ref)
			if known && !changed {
				report.Unchanged++
				logger.Debugw("Source unchanged, skipped", "source_id", ref.ID, "kind", ref.Kind)
				continue
			}
			// 已索引但文件被修改的 PDF 先清除旧分块。
			res, _ = s.ingest(ctx, ref, s.config.Purge || known)
		case ref.Kind == model.SourcePDF:
			res, _ = s.IngestPDF(ctx, ref.Location)
		default:
			res, _ = s.ingest(ctx, ref, s.config.Purge)
		}
		if ref.Kind == model.SourceVideo && res.Status == model.StatusIndexed {
			newVideos = true
		}
		report.Results = append(report.Results, res)
	}

	if newVideos {
		s.clearCache(ctx)
	}
	report.FinishedAt = s.now()
	logger.Infow("Batch ingestion finished",
		"indexed", report.Count(model.StatusIndexed),
		"skipped", report.Count(model.StatusSkipped),
		"failed", report.Count(model.StatusFailed),
		"unchanged", report.Unchanged,
		"duration", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}

// changedSince 返回 known=true 表示该来源上次已成功索引；changed 仅对修改过的 PDF 为 true。
func (s *Ingester) changedSince(ctx context.Context, ref model.SourceRef) (changed, known bool) {
	s.mu.Lock()
	at, ok := s.indexed[ref.ID]
	s.mu.Unlock()

	if !ok && s.ledger != nil {
		rec, err := s.ledger.Latest(ctx, ref.ID)
		if err != nil {
			logger.Warnw("Failed to read ingestion ledger", "source_id", ref.ID, "error", err.Error())
		} else if rec != nil && rec.Status == model.StatusIndexed {
			at, ok = rec.CreatedAt, true
		}
	}
	if !ok {
		return false, false
	}
	if ref.Kind != model.SourcePDF {
		return false, true
	}
	info, err := os.Stat(ref.Location)
	if err != nil {
		return false, true
	}
	return info.ModTime().After(at), true
}

// Wait blocks until background ledger writes are done.
func (s *Ingester) Wait() {
	s.pending.Wait()
}

func (s *Ingester) ingest(ctx context.Context, ref model.SourceRef, purge bool) (*model.IngestResult, error) {
	start := s.now()
	res := &model.IngestResult{Source: ref, SourceID: ref.ID, Kind: ref.Kind}

	acquired, err := s.acquirer.Acquire(ctx, ref)
	if err != nil {
		s.finish(ctx, res, start, err)
		return res, err
	}
	res.Strategy = acquired.Strategy

	chunks := s.chunker.Chunk(acquired.Segments)
	if len(chunks) == 0 {
		s.finish(ctx, res, start, nil)
		return res, nil
	}

	if purge {
		removed, err := s.index.Purge(ctx, ref.ID)
		if err != nil {
			s.finish(ctx, res, start, err)
			return res, err
		}
		logger.Infow("Purged previous chunks", "source_id", ref.ID, "removed", removed)
	}

	n, err := s.index.Upsert(ctx, chunks)
	res.Chunks = n
	if err != nil {
		s.finish(ctx, res, start, err)
		return res, err
	}
	s.finish(ctx, res, start, nil)
	return res, nil
}

// finish 设置状态、记录日志并写入台账。
func (s *Ingester) finish(ctx context.Context, res *model.IngestResult, start time.Time, err error) {
	res.Duration = s.now().Sub(start)
	switch {
	case err != nil:
		res.Status = model.StatusFailed
		res.Error = errors.FromError(err).Message("en")
		if cause := errors.FromError(err).Cause(); cause != nil {
			res.Error = fmt.Sprintf("%s: %v", res.Error, cause)
		}
		logger.Warnw("Source ingestion failed", "source_id", res.SourceID, "kind", res.Kind, "location", res.Source.Location, "error", res.Error)
	case res.Chunks == 0:
		res.Status = model.StatusSkipped
		logger.Warnw("No text extracted, source skipped", "source_id", res.SourceID, "kind", res.Kind)
	default:
		res.Status = model.StatusIndexed
		logger.Infow("Source indexed", "source_id", res.SourceID, "kind", res.Kind, "strategy", res.Strategy, "chunks", res.Chunks)
		s.mu.Lock()
		s.indexed[res.SourceID] = s.now()
		s.mu.Unlock()
	}
	s.record(ctx, res)
}

func (s *Ingester) record(ctx context.Context, res *model.IngestResult) {
	if s.ledger == nil {
		return
	}
	snapshot := *res
	write := func() {
		defer s.pending.Done()
		// 台账写入不跟随请求上下文取消。
		if err := s.ledger.Record(context.WithoutCancel(ctx), &snapshot); err != nil {
			logger.Warnw("Failed to record ingestion result", "source_id", snapshot.SourceID, "error", err.Error())
		}
	}

	s.pending.Add(1)
	if s.workers != nil {
		if err := s.workers.Submit(write); err == nil {
			return
		}
	}
	write()
}

func (s *Ingester) clearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("Failed to clear answer cache", "error", err.Error())
		return
	}
	logger.Infow("Answer cache cleared after new videos")
}

func (s *Ingester) lock() (func(), error) {
	if s.config.LockFile == "" {
		return func() {}, nil
	}
	fl := flock.New(filepath.Clean(s.config.LockFile))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.ErrInternal.WithCause(fmt.Errorf("lock %s: %w", s.config.LockFile, err))
	}
	if !locked {
		return nil, errors.ErrIngestionRunning.WithMessage("another ingestion process holds the lock")
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warnw("Failed to release ingestion lock", "file", s.config.LockFile, "error", err.Error())
		}
	}, nil
}
