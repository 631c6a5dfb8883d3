package biz

import (
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts model tokens in a string.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter returns a cl100k_base counter (the encoding of the OpenAI embedding and chat models).
func NewTokenCounter() (TokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &tiktokenCounter{codec: codec}, nil
}

func (t *tiktokenCounter) Count(text string) int {
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		// 编码失败时按字符数估算
		return len([]rune(text))
	}
	return len(ids)
}
