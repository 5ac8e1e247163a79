package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

// ImageClient generates poster and logo images through the OpenAI-compatible images endpoint.
type ImageClient struct {
	client  *openaisdk.Client
	model   string
	timeout time.Duration
}

var _ contractx.ImageGenerator = (*ImageClient)(nil)

// NewImageClient returns nil when client or model is missing; callers treat a nil
// generator as "images disabled".
func NewImageClient(client *openaisdk.Client, model string, timeout time.Duration) *ImageClient {
	model = strings.TrimSpace(model)
	if client == nil || model == "" {
		return nil
	}
	return &ImageClient{client: client, model: model, timeout: timeout}
}

func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: image prompt is required", contractx.ErrValidation)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Images.Generate(ctx, openaisdk.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openaisdk.ImageModel(c.model),
		N:              openaisdk.Int(1),
		ResponseFormat: openaisdk.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate image: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", fmt.Errorf("%w: image response is empty", contractx.ErrSchemaViolation)
	}

	img := resp.Data[0]
	if img.B64JSON != "" {
		return "data:image/png;base64," + img.B64JSON, nil
	}
	if img.URL != "" {
		return img.URL, nil
	}
	return "", fmt.Errorf("%w: image response has no payload", contractx.ErrSchemaViolation)
}
