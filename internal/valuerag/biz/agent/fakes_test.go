package agent

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/llm"
)

// scriptedChat 依次返回预设的模型输出。
type scriptedChat struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedChat) Name() string { return "scripted" }

func (c *scriptedChat) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	return c.next(msgs[len(msgs)-1].Content)
}

func (c *scriptedChat) Generate(_ context.Context, prompt, _ string) (string, error) {
	return c.next(prompt)
}

func (c *scriptedChat) next(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", fmt.Errorf("script exhausted")
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

type stubAnswerer struct {
	answer    string
	err       error
	questions []string
}

func (s *stubAnswerer) Answer(_ context.Context, q string) (string, error) {
	s.questions = append(s.questions, q)
	return s.answer, s.err
}

type stubIngester struct {
	result *model.IngestResult
	err    error
	urls   []string
}

func (s *stubIngester) IngestVideo(_ context.Context, url string) (*model.IngestResult, error) {
	s.urls = append(s.urls, url)
	return s.result, s.err
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Name() string { return "stub" }

func (s *stubTranscriber) Transcribe(context.Context, string) (string, error) {
	return s.text, s.err
}

type stubSearcher struct {
	chunks []*model.ScoredChunk
	k      int
	filter model.Filter
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int, f model.Filter) ([]*model.ScoredChunk, error) {
	s.k, s.filter = k, f
	return s.chunks, nil
}

// runeCounter 用字符数近似 token 数。
type runeCounter struct{}

func (runeCounter) Count(s string) int { return utf8.RuneCountInString(s) }
