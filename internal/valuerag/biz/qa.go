package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// RefusalSentence 语料中找不到答案时的固定回答，调用方会按字节匹配。
const RefusalSentence = "This information does not appear in the Invertir Desde Cero videos."

const qaSystemPrompt = `You are a specialized assistant for "Invertir Desde Cero" YouTube videos.
Answer the question strictly based on the context from the video captions provided by the user.
Do NOT analyze the video itself, only the captions provided in the context.
Do not use outside knowledge.

If the answer is not contained in the context, you must answer EXACTLY:
"` + RefusalSentence + `"

Examples:

Context: "In this video, we discuss that Apple's competitive advantage is its ecosystem."
Question: "What is Apple's competitive advantage?"
Answer: Apple's competitive advantage is its ecosystem.

Context: "We are analyzing Tesla's production numbers for 2023."
Question: "Who is the president of France?"
Answer: ` + RefusalSentence + `

Context: "Warren Buffett advises to buy businesses with a moat."
Question: "What does Warren Buffett advise?"
Answer: Warren Buffett advises to buy businesses that have a moat.`

// QAConfig grounded QA 配置。
type QAConfig struct {
	// TopK 检索片段数。
	TopK int
	// Filter 检索范围，默认只检索视频字幕。
	Filter model.Filter
}

// GroundedQA 只依据检索到的字幕片段回答问题。
type GroundedQA struct {
	searcher Searcher
	chat     llm.ChatProvider
	cache    *AnswerCache
	config   QAConfig
}

// NewGroundedQA 创建问答实例，cache 可以为 nil。
func NewGroundedQA(searcher Searcher, chat llm.ChatProvider, cache *AnswerCache, config QAConfig) *GroundedQA {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.Filter.IsZero() {
		config.Filter = model.Filter{DocType: model.DocTypeCaption}
	}
	return &GroundedQA{searcher: searcher, chat: chat, cache: cache, config: config}
}

// Answer 返回依据上下文生成的回答，或固定拒答句。检索为空时不调用大模型。
func (q *GroundedQA) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.ErrInvalidRequest.WithMessage("question is empty")
	}

	if cached, ok := q.cache.Get(ctx, question); ok {
		return cached, nil
	}

	chunks, err := q.searcher.Search(ctx, question, q.config.TopK, q.config.Filter)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		logger.Infow("no context retrieved, refusing", "question_length", len(question))
		return RefusalSentence, nil
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s\n\nAnswer:", formatContext(chunks), question)
	answer, err := q.chat.Generate(ctx, prompt, qaSystemPrompt)
	if err != nil {
		return "", errors.ErrLLMUnavailable.WithCause(err)
	}

	answer = NormalizeAnswer(answer)
	q.cache.Set(ctx, question, answer)
	return answer, nil
}

// NormalizeAnswer 去掉首尾空白与引号；包含拒答句的回答统一为拒答句本身。
func NormalizeAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if strings.Contains(answer, RefusalSentence) || strings.Contains(answer, strings.TrimSuffix(RefusalSentence, ".")) {
		return RefusalSentence
	}
	answer = strings.TrimPrefix(answer, "Answer:")
	return strings.Trim(strings.TrimSpace(answer), `"`)
}

func formatContext(chunks []*model.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// FormatRaw 把检索结果格式化为 "Content: ...\nSource: ..."，供原始检索工具使用。
func FormatRaw(chunks []*model.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		source := c.SourceID
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("Content: %s\nSource: %s", c.Text, source))
	}
	return strings.Join(parts, "\n\n")
}
