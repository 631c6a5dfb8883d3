package valuerag

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/model"
)

// RunIngest runs one ingestion batch and prints the per-source report.
// 开启 watch 后会持续监听 PDF 目录和链接文件，直到 ctx 取消。
func (cfg *Config) RunIngest(ctx context.Context) error {
	if err := cfg.initLogger("ingest"); err != nil {
		return err
	}

	c, err := cfg.newComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := runAndReport(ctx, c.ingester.RunBatch, os.Stdout); err != nil {
		return err
	}

	if !cfg.IngestOptions.Watch {
		return nil
	}
	w, err := newSourceWatcher(cfg.IngestOptions.PDFDir, cfg.IngestOptions.LinksFile, defaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Infow("Watching for new sources", "pdf_dir", cfg.IngestOptions.PDFDir, "links_file", cfg.IngestOptions.LinksFile)
	return watchAndIngest(ctx, w, c.ingester.RunIncremental, os.Stdout)
}

type batchFunc func(ctx context.Context) (*model.BatchReport, error)

// watchAndIngest 每次变更只导入新增或修改过的来源。
func watchAndIngest(ctx context.Context, w *sourceWatcher, run batchFunc, out io.Writer) error {
	return w.Run(ctx, func() {
		if err := runAndReport(ctx, run, out); err != nil {
			logger.Errorw("Ingestion batch failed", "error", err.Error())
		}
	})
}

func runAndReport(ctx context.Context, run batchFunc, out io.Writer) error {
	report, err := run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderReport(report))
	logger.Infow("Ingestion batch finished",
		"indexed", report.Count(model.StatusIndexed),
		"skipped", report.Count(model.StatusSkipped),
		"failed", report.Count(model.StatusFailed),
		"unchanged", report.Unchanged,
		"chunks", report.TotalChunks(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String())
	return nil
}

func renderReport(report *model.BatchReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Source", "Kind", "Strategy", "Status", "Chunks", "Error", "Duration"})
	for _, r := range report.Results {
		tw.AppendRow(table.Row{
			r.SourceID,
			string(r.Kind),
			r.Strategy,
			r.Status,
			strconv.Itoa(r.Chunks),
			r.Error,
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	tw.AppendFooter(table.Row{
		"Total", "", "",
		fmt.Sprintf("%d indexed / %d failed / %d unchanged", report.Count(model.StatusIndexed), report.Count(model.StatusFailed), report.Unchanged),
		strconv.Itoa(report.TotalChunks()), "", "",
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, WidthMax: 60},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
