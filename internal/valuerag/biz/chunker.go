package biz

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/internal/valuerag/model"
)

// DefaultSeparators 递归切分时依次尝试的分隔符，最后退化为按字符切分。
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// ChunkerConfig 切分配置。
type ChunkerConfig struct {
	// ChunkSize 单个片段的最大字符数（rune）。
	ChunkSize int
	// ChunkOverlap 同一段落内相邻片段的重叠字符数。
	ChunkOverlap int
	// MaxTokens 单个片段的最大 token 数，0 表示不检查。
	MaxTokens int
	// Separators 为空时使用 DefaultSeparators。
	Separators []string
}

// Chunker 将 Segment 切分为带元数据的重叠片段。
type Chunker struct {
	config ChunkerConfig
	tokens TokenCounter
}

// NewChunker 创建切分器，tokens 为 nil 时跳过 token 检查。
func NewChunker(config ChunkerConfig, tokens TokenCounter) *Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = 0
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}
	return &Chunker{config: config, tokens: tokens}
}

// Chunk 按输入顺序切分所有 Segment，片段继承 source_id、doc_type 与页码。
func (c *Chunker) Chunk(segments []model.Segment) []model.Chunk {
	var chunks []model.Chunk
	for _, seg := range segments {
		for _, text := range c.splitText(seg.Text, c.config.Separators) {
			for _, piece := range c.tokenGuard(text) {
				piece = strings.TrimSpace(piece)
				if piece == "" {
					continue
				}
				chunks = append(chunks, model.Chunk{Text: piece, Metadata: seg.Metadata})
			}
		}
	}
	return chunks
}

func (c *Chunker) splitText(text string, seps []string) []string {
	size := c.config.ChunkSize
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	sep := ""
	var rest []string
	for i, s := range seps {
		if s != "" && strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return textutil.SplitIntoChunks(text, size, c.config.ChunkOverlap)
	}

	var out, fits []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if utf8.RuneCountInString(piece) <= size {
			fits = append(fits, piece)
			continue
		}
		if len(fits) > 0 {
			out = append(out, c.merge(fits)...)
			fits = nil
		}
		out = append(out, c.splitText(piece, rest)...)
	}
	if len(fits) > 0 {
		out = append(out, c.merge(fits)...)
	}
	return out
}

// merge 把不超过 ChunkSize 的小块拼成窗口，窗口之间保留 ChunkOverlap 的尾部。
func (c *Chunker) merge(pieces []string) []string {
	size, overlap := c.config.ChunkSize, c.config.ChunkOverlap

	var out, window []string
	total := 0
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > size && len(window) > 0 {
			out = append(out, strings.Join(window, ""))
			for len(window) > 0 && (total > overlap || total+n > size) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if len(window) > 0 {
		out = append(out, strings.Join(window, ""))
	}
	return out
}

// tokenGuard 对超过 token 上限的片段按比例再切分。
func (c *Chunker) tokenGuard(text string) []string {
	if c.tokens == nil || c.config.MaxTokens <= 0 {
		return []string{text}
	}
	n := c.tokens.Count(text)
	if n <= c.config.MaxTokens {
		return []string{text}
	}

	runes := utf8.RuneCountInString(text)
	parts := (n + c.config.MaxTokens - 1) / c.config.MaxTokens
	size := runes / parts
	if size < 1 {
		size = 1
	}
	logger.Debugw("chunk exceeds token budget, splitting", "tokens", n, "max_tokens", c.config.MaxTokens, "parts", parts)

	var out []string
	for _, piece := range textutil.SplitIntoChunks(text, size, 0) {
		if size > 1 && c.tokens.Count(piece) > c.config.MaxTokens {
			out = append(out, c.tokenGuard(piece)...)
			continue
		}
		out = append(out, piece)
	}
	return out
}

// splitKeepSeparator 切分并把分隔符保留在前一块末尾，拼接后可还原原文。
func splitKeepSeparator(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
