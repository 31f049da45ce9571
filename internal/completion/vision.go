package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// visionInstruction asks the model for a retrieval-friendly factual
// description, suitable both as conversational context and as an embedding
// source.
const visionInstruction = "Given an image with the following features, " +
	"generate a concise textual summary that captures the key elements and " +
	"context of the image. Imagine this summary will be used as a data " +
	"source for an embeddings endpoint to enable content-based image " +
	"retrieval. Please ensure the summary is informative and conveys " +
	"relevant information about the visual content."

// VisionClient produces textual descriptions of images through a
// vision-capable completion deployment.
type VisionClient struct {
	HTTPClient *http.Client

	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

func NewVisionClient(endpoint, apiKey, deployment string) *VisionClient {
	return &VisionClient{
		HTTPClient: http.DefaultClient,
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Deployment: deployment,
		APIVersion: defaultAPIVersion,
	}
}

// Describe submits one embedded image and returns the model's description.
// The imageDataURL must be a data-URL-encoded image.
func (c *VisionClient) Describe(ctx context.Context, imageDataURL string) (string, error) {
	body := map[string]any{
		"messages": []map[string]any{
			{
				"role":    RoleSystem,
				"content": "You are a helpful AI assistant.",
			},
			{
				"role": RoleUser,
				"content": []map[string]any{
					{
						"type":      "image_url",
						"image_url": map[string]any{"url": imageDataURL},
					},
					{
						"type": "text",
						"text": visionInstruction,
					},
				},
			},
		},
		"max_tokens": 2000,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.Endpoint, "/"), c.Deployment, c.APIVersion)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var wire wireCompletion
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(wire.Choices) == 0 || wire.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *wire.Choices[0].Message.Content, nil
}
