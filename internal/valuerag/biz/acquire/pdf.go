package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kart-io/logger"
	"github.com/ledongthuc/pdf"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/execx"
)

// TextLayerStrategy reads the embedded text layer page by page.
type TextLayerStrategy struct {
	minTextLength int
}

// NewTextLayerStrategy creates a TextLayerStrategy. 总字符数低于 minTextLength 视为扫描件。
func NewTextLayerStrategy(minTextLength int) *TextLayerStrategy {
	if minTextLength <= 0 {
		minTextLength = 100
	}
	return &TextLayerStrategy{minTextLength: minTextLength}
}

// Name implements Strategy.
func (s *TextLayerStrategy) Name() string { return "text-layer" }

// Acquire implements Strategy.
func (s *TextLayerStrategy) Acquire(ctx context.Context, ref model.SourceRef) ([]model.Segment, error) {
	pages, err := ReadTextLayer(ref.Location)
	if err != nil {
		return nil, err
	}

	var (
		segments []model.Segment
		total    int
	)
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		total += utf8.RuneCountInString(text)
		segments = append(segments, model.Segment{
			Text:     text,
			Metadata: model.Metadata{SourceID: ref.ID, DocType: model.DocTypePDF, Page: i + 1},
		})
	}

	if total < s.minTextLength {
		return nil, fmt.Errorf("text layer has %d characters, below %d: %w", total, s.minTextLength, ErrNoText)
	}
	return segments, nil
}

// ReadTextLayer returns the plain text of every page, index 0 being page 1.
func ReadTextLayer(path string) (pages []string, err error) {
	// 解析器遇到损坏文件可能 panic。
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Debugw("Failed to read page text", "file", filepath.Base(path), "page", i, "error", err.Error())
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// PageReader recognizes the content of one rendered page image.
type PageReader interface {
	Name() string
	ReadPage(ctx context.Context, imagePath string, page int) (*model.PageAnalysis, error)
}

// OCRStrategy renders pages to PNG and runs page readers on each image.
//
// 每页按顺序尝试 readers，第一个可读且非空的结果胜出。
type OCRStrategy struct {
	renderer      string
	dpi           int
	readers       []PageReader
	commandRunner execx.Runner
}

// NewOCRStrategy creates an OCRStrategy.
func NewOCRStrategy(renderer string, dpi int, readers ...PageReader) *OCRStrategy {
	if renderer == "" {
		renderer = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 144
	}
	return &OCRStrategy{renderer: renderer, dpi: dpi, readers: readers}
}

// WithCommandRunner overrides how external commands are executed.
func (s *OCRStrategy) WithCommandRunner(runner execx.Runner) {
	s.commandRunner = runner
}

// Name implements Strategy.
func (s *OCRStrategy) Name() string { return "ocr" }

// Acquire implements Strategy.
func (s *OCRStrategy) Acquire(ctx context.Context, ref model.SourceRef) ([]model.Segment, error) {
	if len(s.readers) == 0 {
		return nil, fmt.Errorf("no page reader configured")
	}

	dir, err := os.MkdirTemp("", "valuerag-pages-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	images, err := s.render(ctx, ref.Location, dir)
	if err != nil {
		return nil, err
	}

	var segments []model.Segment
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := s.readPage(ctx, ref, img.path, img.page)
		if text == "" {
			continue
		}
		segments = append(segments, model.Segment{
			Text:     text,
			Metadata: model.Metadata{SourceID: ref.ID, DocType: model.DocTypeOCRPDF, Page: img.page},
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no page recognized in %d pages: %w", len(images), ErrNoText)
	}
	return segments, nil
}

func (s *OCRStrategy) readPage(ctx context.Context, ref model.SourceRef, imagePath string, page int) string {
	for _, r := range s.readers {
		analysis, err := r.ReadPage(ctx, imagePath, page)
		if err != nil {
			logger.Warnw("Page reader failed",
				"source_id", ref.ID,
				"page", page,
				"reader", r.Name(),
				"error", err.Error(),
			)
			continue
		}
		if text := analysis.Text(); text != "" {
			return text
		}
	}
	return ""
}

type pageImage struct {
	path string
	page int
}

var pageImageRe = regexp.MustCompile(`-(\d+)\.png$`)

// render 调用 pdftoppm 输出 page-N.png，页码位数随总页数补零。
func (s *OCRStrategy) render(ctx context.Context, pdfPath, dir string) ([]pageImage, error) {
	args := []string{"-r", strconv.Itoa(s.dpi), "-png", pdfPath, filepath.Join(dir, "page")}
	if err := execx.OrDefault(s.commandRunner)(ctx, s.renderer, args...); err != nil {
		return nil, fmt.Errorf("render pages: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}

	images := make([]pageImage, 0, len(matches))
	for _, m := range matches {
		sub := pageImageRe.FindStringSubmatch(m)
		if sub == nil {
			continue
		}
		n, _ := strconv.Atoi(sub[1])
		images = append(images, pageImage{path: m, page: n})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].page < images[j].page })

	if len(images) == 0 {
		return nil, fmt.Errorf("renderer produced no pages")
	}
	return images, nil
}

// TesseractReader runs classical OCR with tesseract.
type TesseractReader struct {
	binary        string
	lang          string
	commandRunner execx.Runner
}

// NewTesseractReader creates a TesseractReader.
func NewTesseractReader(binary, lang string) *TesseractReader {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractReader{binary: binary, lang: lang}
}

// WithCommandRunner overrides how external commands are executed.
func (r *TesseractReader) WithCommandRunner(runner execx.Runner) {
	r.commandRunner = runner
}

// Name implements PageReader.
func (r *TesseractReader) Name() string { return "tesseract" }

// ReadPage implements PageReader. tesseract 把结果写入 <outbase>.txt。
func (r *TesseractReader) ReadPage(ctx context.Context, imagePath string, page int) (*model.PageAnalysis, error) {
	outBase := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "-ocr"
	args := []string{imagePath, outBase}
	if r.lang != "" {
		args = append(args, "-l", r.lang)
	}
	if err := execx.OrDefault(r.commandRunner)(ctx, r.binary, args...); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	return &model.PageAnalysis{
		PageNumber: page,
		IsReadable: text != "",
		MainText:   text,
	}, nil
}
