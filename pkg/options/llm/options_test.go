package llm

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingAndChatFlagsDoNotCollide(t *testing.T) {
	embed := NewEmbeddingOptions()
	chat := NewChatOptions()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	embed.AddFlags(fs)
	chat.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--embedding.model=nomic-embed-text", "--chat.model=gpt-4o"}))
	assert.Equal(t, "nomic-embed-text", embed.Model)
	assert.Equal(t, "gpt-4o", chat.Model)
}

func TestCompleteReadsOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	o := NewChatOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "sk-test", o.APIKey)
	assert.Empty(t, o.Validate())
}

func TestValidateRequiresKeyForOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	o := NewChatOptions()
	require.NoError(t, o.Complete())
	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "chat.api-key")

	o.Provider = "ollama"
	assert.Empty(t, o.Validate())
}

func TestToConfigMap(t *testing.T) {
	o := NewEmbeddingOptions()
	m := o.ToConfigMap()
	assert.Equal(t, "text-embedding-3-small", m["embed_model"])
	assert.Equal(t, o.BaseURL, m["base_url"])
}
