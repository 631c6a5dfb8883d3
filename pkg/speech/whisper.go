package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/valuerag/pkg/utils/errors"
	"github.com/kart-io/valuerag/pkg/utils/execx"
)

// WhisperCLI transcribes audio with the local whisper command line tool.
type WhisperCLI struct {
	binary        string
	model         string
	commandRunner execx.Runner
}

// NewWhisperCLI creates a WhisperCLI.
func NewWhisperCLI(binary, model string) *WhisperCLI {
	if binary == "" {
		binary = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &WhisperCLI{binary: binary, model: model}
}

// WithCommandRunner overrides how external commands are executed.
func (w *WhisperCLI) WithCommandRunner(runner execx.Runner) {
	w.commandRunner = runner
}

// Name implements Transcriber.
func (w *WhisperCLI) Name() string { return "whisper-cli" }

// Transcribe runs whisper into a scratch directory and reads the txt output.
func (w *WhisperCLI) Transcribe(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}

	outDir, err := os.MkdirTemp("", "valuerag-whisper-*")
	if err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		path,
		"--model", w.model,
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if err := execx.OrDefault(w.commandRunner)(ctx, w.binary, args...); err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return "", errors.ErrTranscription.WithCause(err)
	}

	text := strings.Join(strings.Fields(string(data)), " ")
	if text == "" {
		return "", errors.ErrTranscription
	}
	return text, nil
}
