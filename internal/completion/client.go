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

// Client issues grounded (retrieval-augmented) completion requests against
// an Azure-OpenAI-compatible deployment with an attached search data source.
type Client struct {
	HTTPClient *http.Client

	Endpoint   string // e.g. https://example.openai.azure.com
	APIKey     string
	Deployment string
	APIVersion string

	// Search data source wired into every grounded request.
	SearchEndpoint string
	SearchKey      string
}

const defaultAPIVersion = "2024-02-01"

func NewClient(endpoint, apiKey, deployment, searchEndpoint, searchKey string) *Client {
	return &Client{
		HTTPClient:     http.DefaultClient,
		Endpoint:       endpoint,
		APIKey:         apiKey,
		Deployment:     deployment,
		APIVersion:     defaultAPIVersion,
		SearchEndpoint: searchEndpoint,
		SearchKey:      searchKey,
	}
}

// Complete sends one grounded completion request. Sampling is deterministic
// (temperature 0, top-p 1) so a fixed sequence of backend replies yields a
// fixed result.
func (c *Client) Complete(ctx context.Context, req GroundedRequest) (*Response, error) {
	body := c.buildRequest(req)
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.Endpoint, "/"), c.Deployment, c.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var wire wireCompletion
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Response{}
	for _, ch := range wire.Choices {
		// A null content is no answer at all; dropping the choice lets
		// callers treat it as no completion, distinct from a literal "".
		if ch.Message.Content == nil {
			continue
		}
		out.Choices = append(out.Choices, Choice{
			Content:   *ch.Message.Content,
			Citations: ch.Message.Context.Citations,
		})
	}
	return out, nil
}

func (c *Client) buildRequest(req GroundedRequest) map[string]any {
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, map[string]any{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	return map[string]any{
		"messages":    messages,
		"temperature": 0,
		"top_p":       1,
		"max_tokens":  req.MaxTokens,
		"data_sources": []map[string]any{
			{
				"type": "azure_search",
				"parameters": map[string]any{
					"endpoint":         c.SearchEndpoint,
					"index_name":       req.IndexName,
					"in_scope":         true,
					"strictness":       3,
					"top_n_documents":  5,
					"role_information": req.RoleInformation,
					"authentication": map[string]any{
						"type": "api_key",
						"key":  c.SearchKey,
					},
				},
			},
		},
	}
}

// Wire types

type wireCompletion struct {
	Choices []wireChoice `json:"choices"`
}

type wireChoice struct {
	Message wireMessage `json:"message"`
}

type wireMessage struct {
	Content *string     `json:"content"`
	Context wireContext `json:"context"`
}

type wireContext struct {
	Citations []Citation `json:"citations"`
}

// APIError represents an HTTP error from the completion backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error (status %d): %s", e.StatusCode, e.Body)
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool { return e.StatusCode == 429 }

// IsAuth returns true if this is an authentication error.
func (e *APIError) IsAuth() bool { return e.StatusCode == 401 || e.StatusCode == 403 }
