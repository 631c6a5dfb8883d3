// Package ocr provides options for scanned PDF text recovery.
package ocr

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains OCR configuration.
type Options struct {
	// MinTextLength 文本层总长度低于该值时改用 OCR。
	MinTextLength int `json:"min-text-length" mapstructure:"min-text-length"`

	// VisionEnabled 是否先使用视觉模型识别页面。
	VisionEnabled bool   `json:"vision-enabled" mapstructure:"vision-enabled"`
	VisionModel   string `json:"vision-model" mapstructure:"vision-model"`

	// DPI 页面渲染分辨率 (144 即 2 倍缩放)。
	DPI int `json:"dpi" mapstructure:"dpi"`

	RendererBinary  string `json:"renderer-binary" mapstructure:"renderer-binary"`
	TesseractBinary string `json:"tesseract-binary" mapstructure:"tesseract-binary"`
	TesseractLang   string `json:"tesseract-lang" mapstructure:"tesseract-lang"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		MinTextLength:   100,
		VisionEnabled:   true,
		VisionModel:     "gpt-4o-mini",
		DPI:             144,
		RendererBinary:  "pdftoppm",
		TesseractBinary: "tesseract",
		TesseractLang:   "spa+eng",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "ocr."
	fs.IntVar(&o.MinTextLength, p+"min-text-length", o.MinTextLength, "Text-layer length below which OCR is used.")
	fs.BoolVar(&o.VisionEnabled, p+"vision-enabled", o.VisionEnabled, "Try the vision model before classical OCR.")
	fs.StringVar(&o.VisionModel, p+"vision-model", o.VisionModel, "Vision model for page OCR.")
	fs.IntVar(&o.DPI, p+"dpi", o.DPI, "Page render resolution.")
	fs.StringVar(&o.RendererBinary, p+"renderer-binary", o.RendererBinary, "PDF page rasterizer executable.")
	fs.StringVar(&o.TesseractBinary, p+"tesseract-binary", o.TesseractBinary, "Tesseract executable.")
	fs.StringVar(&o.TesseractLang, p+"tesseract-lang", o.TesseractLang, "Tesseract language packs.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MinTextLength < 0 {
		errs = append(errs, fmt.Errorf("ocr.min-text-length must not be negative"))
	}
	if o.DPI < 36 || o.DPI > 600 {
		errs = append(errs, fmt.Errorf("ocr.dpi must be in [36, 600]"))
	}
	return errs
}
