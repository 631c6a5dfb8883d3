// Package ingest provides options for source acquisition and batch ingestion.
package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains ingestion configuration.
type Options struct {
	// DataDir 数据根目录，其余路径为空时基于它推导。
	DataDir       string `json:"data-dir" mapstructure:"data-dir"`
	LinksFile     string `json:"links-file" mapstructure:"links-file"`
	PDFDir        string `json:"pdf-dir" mapstructure:"pdf-dir"`
	AudioDir      string `json:"audio-dir" mapstructure:"audio-dir"`
	TranscriptDir string `json:"transcript-dir" mapstructure:"transcript-dir"`

	YtDlpBinary  string   `json:"ytdlp-binary" mapstructure:"ytdlp-binary"`
	CaptionLangs []string `json:"caption-langs" mapstructure:"caption-langs"`

	// Purge 重新导入前先删除该来源已有的分块。
	Purge bool `json:"purge" mapstructure:"purge"`

	// Watch 持续监听 PDF 目录与链接文件。
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		DataDir:      "data",
		YtDlpBinary:  "yt-dlp",
		CaptionLangs: []string{"en", "es"},
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "ingest."
	fs.StringVar(&o.DataDir, p+"data-dir", o.DataDir, "Root data directory.")
	fs.StringVar(&o.LinksFile, p+"links-file", o.LinksFile, "Video link list (defaults to <data-dir>/videos_link.txt).")
	fs.StringVar(&o.PDFDir, p+"pdf-dir", o.PDFDir, "PDF directory (defaults to <data-dir>/pdfs).")
	fs.StringVar(&o.AudioDir, p+"audio-dir", o.AudioDir, "Downloaded audio directory (defaults to <data-dir>/audio).")
	fs.StringVar(&o.TranscriptDir, p+"transcript-dir", o.TranscriptDir, "Transcript directory (defaults to <data-dir>/transcripts).")
	fs.StringVar(&o.YtDlpBinary, p+"ytdlp-binary", o.YtDlpBinary, "yt-dlp executable.")
	fs.StringSliceVar(&o.CaptionLangs, p+"caption-langs", o.CaptionLangs, "Caption languages in priority order. Each code also matches regional and machine-translated tracks (en matches en-US).")
	fs.BoolVar(&o.Purge, p+"purge", o.Purge, "Delete existing chunks of a source before re-ingesting it.")
	fs.BoolVar(&o.Watch, p+"watch", o.Watch, "Keep running and ingest new PDFs and links as they appear.")
}

// Complete derives unset paths from DataDir.
func (o *Options) Complete() error {
	if o.LinksFile == "" {
		o.LinksFile = filepath.Join(o.DataDir, "videos_link.txt")
	}
	if o.PDFDir == "" {
		o.PDFDir = filepath.Join(o.DataDir, "pdfs")
	}
	if o.AudioDir == "" {
		o.AudioDir = filepath.Join(o.DataDir, "audio")
	}
	if o.TranscriptDir == "" {
		o.TranscriptDir = filepath.Join(o.DataDir, "transcripts")
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.DataDir == "" {
		errs = append(errs, fmt.Errorf("ingest.data-dir is required"))
	}
	if o.YtDlpBinary == "" {
		errs = append(errs, fmt.Errorf("ingest.ytdlp-binary is required"))
	}
	if len(o.CaptionLangs) == 0 {
		errs = append(errs, fmt.Errorf("ingest.caption-langs must not be empty"))
	}
	return errs
}
