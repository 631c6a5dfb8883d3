package acquire

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	sdk "github.com/openai/openai-go/v2"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/json"
)

const visionPrompt = `You are an expert technical document analyzer. The image is one page of an investment thesis, possibly a screenshot.

1. OCR text: extract all readable text. Join broken lines into coherent paragraphs and drop repeated headers, footers and page numbers. If the page cannot be read, set is_readable to false.
2. Graphics: list every figure, chart, table or diagram with a short caption and the text or numbers it contains.

Answer with JSON only, in this shape:
{
  "page_number": <int>,
  "is_readable": <bool>,
  "main_text": "<cleaned text>",
  "graphics": [{"type": "<Figure|Chart|Table|Diagram>", "caption": "<description>", "content": "<extracted data>"}]
}`

// VisionReader recognizes pages with a multimodal chat model.
type VisionReader struct {
	client *sdk.Client
	model  string
}

// NewVisionReader creates a VisionReader.
func NewVisionReader(client *sdk.Client, model string) *VisionReader {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &VisionReader{client: client, model: model}
}

// Name implements PageReader.
func (r *VisionReader) Name() string { return "vision" }

// ReadPage implements PageReader.
func (r *VisionReader) ReadPage(ctx context.Context, imagePath string, page int) (*model.PageAnalysis, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)

	resp, err := r.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(r.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
				sdk.TextContentPart(visionPrompt),
				sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
					URL:    dataURL,
					Detail: "high",
				}),
			}),
		},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision response has no choices")
	}

	return ParsePageAnalysis(resp.Choices[0].Message.Content, page)
}

// ParsePageAnalysis decodes the model's JSON answer, tolerating code fences and surrounding prose.
func ParsePageAnalysis(content string, page int) (*model.PageAnalysis, error) {
	raw, ok := textutil.ExtractJSONObject(textutil.StripCodeFence(content))
	if !ok {
		return nil, fmt.Errorf("vision response is not JSON")
	}
	var analysis model.PageAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if analysis.PageNumber == 0 {
		analysis.PageNumber = page
	}
	return &analysis, nil
}
