package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s *stubProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (s *stubProvider) EmbedSingle(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}
func (s *stubProvider) Chat(context.Context, []Message) (string, error) { return "ok", nil }
func (s *stubProvider) Generate(context.Context, string, string) (string, error) {
	return "ok", nil
}
func (s *stubProvider) Name() string { return s.name }

func TestRegistry(t *testing.T) {
	RegisterProvider("stub-test", func(cfg map[string]any) (Provider, error) {
		return &stubProvider{name: cfg["name"].(string)}, nil
	})

	p, err := NewChatProvider("stub-test", map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", p.Name())

	_, err = NewEmbeddingProvider("missing", nil)
	assert.ErrorContains(t, err, "unknown provider: missing")

	assert.Contains(t, ListProviders(), "stub-test")
}

func TestMessages(t *testing.T) {
	msgs := Messages("sys", "hi")
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, RoleUser, msgs[1].Role)

	assert.Len(t, Messages("", "hi"), 1)
}
