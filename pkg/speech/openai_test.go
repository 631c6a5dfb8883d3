package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	speechopts "github.com/kart-io/valuerag/pkg/options/speech"
	"github.com/kart-io/valuerag/pkg/utils/errors"
	"github.com/kart-io/valuerag/pkg/utils/json"
)

type fakeOpenAI struct {
	transcript  string
	speechInput string
	speechModel string
	speechVoice string
	failSpeech  bool
}

func (f *fakeOpenAI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "whisper-1", r.FormValue("model"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"text":"` + f.transcript + `"}`))
		case strings.HasSuffix(r.URL.Path, "/audio/speech"):
			if f.failSpeech {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"bad input"}}`))
				return
			}
			body, _ := io.ReadAll(r.Body)
			var req map[string]any
			require.NoError(t, json.Unmarshal(body, &req))
			f.speechInput, _ = req["input"].(string)
			f.speechModel, _ = req["model"].(string)
			f.speechVoice, _ = req["voice"].(string)
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("MP3DATA"))
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, f *fakeOpenAI) *sdk.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	client := sdk.NewClient(
		option.WithAPIKey("sk-test"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	return &client
}

func TestOpenAITranscriber(t *testing.T) {
	f := &fakeOpenAI{transcript: "what is a moat"}
	tr := NewOpenAITranscriber(newTestClient(t, f), "")

	text, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "what is a moat", text)
	assert.Equal(t, "openai", tr.Name())
}

func TestOpenAITranscriberEmpty(t *testing.T) {
	f := &fakeOpenAI{transcript: " "}
	tr := NewOpenAITranscriber(newTestClient(t, f), "whisper-1")

	_, err := tr.Transcribe(context.Background(), writeAudio(t))
	assert.ErrorIs(t, err, errors.ErrTranscription)
}

func TestOpenAISynthesizerTruncates(t *testing.T) {
	f := &fakeOpenAI{}
	s := NewOpenAISynthesizer(newTestClient(t, f), "", "")

	long := strings.Repeat("á", MaxSpeechInput+500)
	audio, err := s.Synthesize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, []byte("MP3DATA"), audio)
	assert.Equal(t, MaxSpeechInput, utf8.RuneCountInString(f.speechInput))
	assert.Equal(t, "tts-1", f.speechModel)
	assert.Equal(t, "alloy", f.speechVoice)
}

func TestOpenAISynthesizerFailure(t *testing.T) {
	f := &fakeOpenAI{failSpeech: true}
	s := NewOpenAISynthesizer(newTestClient(t, f), "tts-1", "alloy")

	audio, err := s.Synthesize(context.Background(), "hola")
	assert.Error(t, err)
	assert.Nil(t, audio)

	_, err = s.Synthesize(context.Background(), "   ")
	assert.Error(t, err)
}

func TestFactories(t *testing.T) {
	opts := speechopts.NewOptions()
	tr, err := NewTranscriber(opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "whisper-cli", tr.Name())

	opts.Transcriber = speechopts.TranscriberOpenAI
	_, err = NewTranscriber(opts, nil)
	assert.Error(t, err)

	assert.Nil(t, NewSynthesizer(opts, nil))
	opts.TTSEnabled = false
	assert.Nil(t, NewSynthesizer(opts, &sdk.Client{}))
}
