package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openaiopts "github.com/kart-io/valuerag/pkg/options/openai"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://api.openai.com/v1", "https://api.openai.com/v1/"},
		{"https://api.openai.com", "https://api.openai.com/v1/"},
		{"http://127.0.0.1:8080/proxy/", "http://127.0.0.1:8080/proxy/v1/"},
		{"not a url", "not a url/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBaseURL(tt.in), tt.in)
	}
}

func TestNewWithoutKey(t *testing.T) {
	opts := openaiopts.NewOptions()
	opts.APIKey = ""
	_, err := New(opts)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewWithKey(t *testing.T) {
	opts := openaiopts.NewOptions()
	opts.APIKey = "sk-test"
	client, err := New(opts)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewNilOptions(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
