package acquire

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/pkg/utils/json"
)

func TestParsePageAnalysis(t *testing.T) {
	content := "```json\n{\"is_readable\": true, \"main_text\": \"Moat: CUDA\", \"graphics\": [{\"type\": \"Chart\", \"caption\": \"Data center revenue\", \"content\": \"2023: 47B\"}]}\n```"
	page, err := ParsePageAnalysis(content, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, page.PageNumber)
	assert.True(t, page.IsReadable)
	require.Len(t, page.Graphics, 1)
	assert.Equal(t, "Chart", page.Graphics[0].Type)

	_, err = ParsePageAnalysis("I cannot read this page", 1)
	assert.Error(t, err)
}

func TestVisionReader(t *testing.T) {
	var gotModel string
	var gotImage bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		gotModel, _ = req["model"].(string)
		gotImage = strings.Contains(string(body), "data:image/png;base64,")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"page_number\": 2, \"is_readable\": true, \"main_text\": \"Free cash flow grows\", \"graphics\": []}"}
			}]
		}`))
	}))
	defer srv.Close()

	client := sdk.NewClient(option.WithAPIKey("sk-test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	reader := NewVisionReader(&client, "")

	img := filepath.Join(t.TempDir(), "page-2.png")
	require.NoError(t, os.WriteFile(img, []byte("PNG"), 0o644))

	page, err := reader.ReadPage(context.Background(), img, 2)
	require.NoError(t, err)
	assert.Equal(t, "Free cash flow grows", page.Text())
	assert.Equal(t, "gpt-4o-mini", gotModel)
	assert.True(t, gotImage)
	assert.Equal(t, "vision", reader.Name())
}
