package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/speech"
)

// Tool is an action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// Answerer answers a question from the indexed videos.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// VideoIngester ingests one video URL.
type VideoIngester interface {
	IngestVideo(ctx context.Context, url string) (*model.IngestResult, error)
}

// Tool names.
const (
	ToolRAGAnswer        = "rag_answer"
	ToolYouTubeIngestion = "youtube_ingestion"
	ToolSpeechToText     = "speech_to_text"
	ToolRetriever        = "retriever"
)

type ragAnswerTool struct{ qa Answerer }

// NewRAGAnswerTool wraps grounded QA.
func NewRAGAnswerTool(qa Answerer) Tool { return &ragAnswerTool{qa: qa} }

func (t *ragAnswerTool) Name() string { return ToolRAGAnswer }

func (t *ragAnswerTool) Description() string {
	return "Use this to answer questions about value investing based on the video knowledge base. Input should be a fully formed question."
}

func (t *ragAnswerTool) Run(ctx context.Context, input string) (string, error) {
	return t.qa.Answer(ctx, input)
}

type ingestionTool struct{ ingester VideoIngester }

// NewIngestionTool wraps single-video ingestion.
func NewIngestionTool(ingester VideoIngester) Tool { return &ingestionTool{ingester: ingester} }

func (t *ingestionTool) Name() string { return ToolYouTubeIngestion }

func (t *ingestionTool) Description() string {
	return "Use this to ingest a new YouTube video into the knowledge base. Input should be a valid YouTube URL."
}

func (t *ingestionTool) Run(ctx context.Context, input string) (string, error) {
	url := cleanInput(input)
	res, err := t.ingester.IngestVideo(ctx, url)
	if err != nil {
		return "", err
	}
	if res.Status == model.StatusSkipped {
		return fmt.Sprintf("No text could be extracted from video: %s", url), nil
	}
	return fmt.Sprintf("Successfully ingested video: %s (%d chunks)", url, res.Chunks), nil
}

type speechTool struct{ transcriber speech.Transcriber }

// NewSpeechTool wraps speech-to-text on a local file.
func NewSpeechTool(transcriber speech.Transcriber) Tool { return &speechTool{transcriber: transcriber} }

func (t *speechTool) Name() string { return ToolSpeechToText }

func (t *speechTool) Description() string {
	return "Use this to transcribe an audio file to text. Input should be a local file path."
}

func (t *speechTool) Run(ctx context.Context, input string) (string, error) {
	text, err := t.transcriber.Transcribe(ctx, cleanInput(input))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "No transcription available.", nil
	}
	return text, nil
}

type retrieverTool struct {
	searcher biz.Searcher
	k        int
	filter   model.Filter
}

// NewRetrieverTool returns raw chunks with provenance, without synthesis.
func NewRetrieverTool(searcher biz.Searcher, k int, filter model.Filter) Tool {
	if k <= 0 {
		k = 5
	}
	return &retrieverTool{searcher: searcher, k: k, filter: filter}
}

func (t *retrieverTool) Name() string { return ToolRetriever }

func (t *retrieverTool) Description() string {
	return "Use this to retrieve raw documents/context from the vector store without generating an answer. Input is a search query."
}

func (t *retrieverTool) Run(ctx context.Context, input string) (string, error) {
	chunks, err := t.searcher.Search(ctx, cleanInput(input), t.k, t.filter)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "No documents found.", nil
	}
	return biz.FormatRaw(chunks), nil
}

// cleanInput 去掉模型常在工具输入两侧加的引号与反引号。
func cleanInput(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`")
}
