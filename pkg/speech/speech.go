// Package speech provides speech-to-text and text-to-speech backends.
//
// 转写支持本地 whisper 命令行与托管 whisper 两种后端，语音合成使用托管 TTS。
package speech

import (
	"context"
	"fmt"

	sdk "github.com/openai/openai-go/v2"

	speechopts "github.com/kart-io/valuerag/pkg/options/speech"
)

// MaxSpeechInput 语音合成输入的最大字符数。
const MaxSpeechInput = 4096

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Name() string
}

// Synthesizer converts text into audio bytes (mp3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NewTranscriber 根据配置创建转写器。托管后端需要 client。
func NewTranscriber(opts *speechopts.Options, client *sdk.Client) (Transcriber, error) {
	if opts == nil {
		opts = speechopts.NewOptions()
	}
	switch opts.Transcriber {
	case speechopts.TranscriberWhisperCLI:
		return NewWhisperCLI(opts.WhisperBinary, opts.WhisperModel), nil
	case speechopts.TranscriberOpenAI:
		if client == nil {
			return nil, fmt.Errorf("transcriber %q requires an openai api key", opts.Transcriber)
		}
		return NewOpenAITranscriber(client, opts.TranscriptionModel), nil
	default:
		return nil, fmt.Errorf("unknown transcriber: %s", opts.Transcriber)
	}
}

// NewSynthesizer 创建语音合成器；禁用或缺少 client 时返回 nil。
func NewSynthesizer(opts *speechopts.Options, client *sdk.Client) Synthesizer {
	if opts == nil || !opts.TTSEnabled || client == nil {
		return nil
	}
	return NewOpenAISynthesizer(client, opts.TTSModel, opts.TTSVoice)
}
