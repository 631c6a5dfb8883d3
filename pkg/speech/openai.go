package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	sdk "github.com/openai/openai-go/v2"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// OpenAITranscriber uses the hosted whisper model.
type OpenAITranscriber struct {
	client *sdk.Client
	model  string
}

// NewOpenAITranscriber creates an OpenAITranscriber.
func NewOpenAITranscriber(client *sdk.Client, model string) *OpenAITranscriber {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAITranscriber{client: client, model: model}
}

// Name implements Transcriber.
func (t *OpenAITranscriber) Name() string { return "openai" }

// Transcribe uploads the audio file and returns the recognized text.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}
	defer f.Close()

	res, err := t.client.Audio.Transcriptions.New(ctx, sdk.AudioTranscriptionNewParams{
		File:  f,
		Model: sdk.AudioModel(t.model),
	})
	if err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", errors.ErrTranscription
	}
	return text, nil
}

// OpenAISynthesizer produces mp3 audio with the hosted TTS model.
type OpenAISynthesizer struct {
	client *sdk.Client
	model  string
	voice  string
}

// NewOpenAISynthesizer creates an OpenAISynthesizer.
func NewOpenAISynthesizer(client *sdk.Client, model, voice string) *OpenAISynthesizer {
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISynthesizer{client: client, model: model, voice: voice}
}

// Synthesize converts text to speech. 输入超过 MaxSpeechInput 个字符时截断。
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	input := textutil.TruncateString(strings.TrimSpace(text), MaxSpeechInput)
	if input == "" {
		return nil, fmt.Errorf("empty speech input")
	}

	resp, err := s.client.Audio.Speech.New(ctx, sdk.AudioSpeechNewParams{
		Input: input,
		Model: sdk.SpeechModel(s.model),
		Voice: sdk.AudioSpeechNewParamsVoice(s.voice),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech synthesis: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
