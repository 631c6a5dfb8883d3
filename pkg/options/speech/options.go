// Package speech provides speech-to-text and text-to-speech options.
package speech

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Transcriber backends.
const (
	TranscriberWhisperCLI = "whisper-cli"
	TranscriberOpenAI     = "openai"
)

// Options contains speech configuration.
type Options struct {
	// Transcriber 转写后端: whisper-cli (本地) 或 openai (托管)。
	Transcriber string `json:"transcriber" mapstructure:"transcriber"`

	// WhisperBinary 本地 whisper 可执行文件。
	WhisperBinary string `json:"whisper-binary" mapstructure:"whisper-binary"`

	// WhisperModel 本地 whisper 模型。
	WhisperModel string `json:"whisper-model" mapstructure:"whisper-model"`

	// TranscriptionModel 托管转写模型。
	TranscriptionModel string `json:"transcription-model" mapstructure:"transcription-model"`

	// TTSEnabled 是否为回答生成语音。
	TTSEnabled bool   `json:"tts-enabled" mapstructure:"tts-enabled"`
	TTSModel   string `json:"tts-model" mapstructure:"tts-model"`
	TTSVoice   string `json:"tts-voice" mapstructure:"tts-voice"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Transcriber:        TranscriberWhisperCLI,
		WhisperBinary:      "whisper",
		WhisperModel:       "base",
		TranscriptionModel: "whisper-1",
		TTSEnabled:         true,
		TTSModel:           "tts-1",
		TTSVoice:           "alloy",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "speech."
	fs.StringVar(&o.Transcriber, p+"transcriber", o.Transcriber, "Transcription backend (whisper-cli, openai).")
	fs.StringVar(&o.WhisperBinary, p+"whisper-binary", o.WhisperBinary, "Local whisper executable.")
	fs.StringVar(&o.WhisperModel, p+"whisper-model", o.WhisperModel, "Local whisper model.")
	fs.StringVar(&o.TranscriptionModel, p+"transcription-model", o.TranscriptionModel, "Hosted transcription model.")
	fs.BoolVar(&o.TTSEnabled, p+"tts-enabled", o.TTSEnabled, "Synthesize audio for answers.")
	fs.StringVar(&o.TTSModel, p+"tts-model", o.TTSModel, "Text-to-speech model.")
	fs.StringVar(&o.TTSVoice, p+"tts-voice", o.TTSVoice, "Text-to-speech voice.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	switch o.Transcriber {
	case TranscriberWhisperCLI:
		if o.WhisperBinary == "" {
			errs = append(errs, fmt.Errorf("speech.whisper-binary is required"))
		}
	case TranscriberOpenAI:
	default:
		errs = append(errs, fmt.Errorf("speech.transcriber must be %q or %q", TranscriberWhisperCLI, TranscriberOpenAI))
	}
	return errs
}
