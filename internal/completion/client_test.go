package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteRequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/openai/deployments/gpt-test/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"answer"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "gpt-test", "https://search.example", "search-key")
	resp, err := c.Complete(context.Background(), GroundedRequest{
		Messages:        []Message{UserMessage("hello")},
		IndexName:       "manuals",
		RoleInformation: "You are helpful.",
		MaxTokens:       1000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "answer", resp.Choices[0].Content)

	assert.Equal(t, float64(0), got["temperature"])
	assert.Equal(t, float64(1), got["top_p"])
	assert.Equal(t, float64(1000), got["max_tokens"])

	sources := got["data_sources"].([]any)
	require.Len(t, sources, 1)
	params := sources[0].(map[string]any)["parameters"].(map[string]any)
	assert.Equal(t, "https://search.example", params["endpoint"])
	assert.Equal(t, "manuals", params["index_name"])
	assert.Equal(t, "You are helpful.", params["role_information"])
	assert.Equal(t, true, params["in_scope"])
}

func TestCompleteParsesCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{
			"content":"see the manual [doc1]",
			"context":{"citations":[{"content":"chunk","title":"Manual","filepath":"m3.pdf","chunk_id":"2"}]}
		}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "d", "", "")
	resp, err := c.Complete(context.Background(), GroundedRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].Citations, 1)
	assert.Equal(t, "m3.pdf", resp.Choices[0].Citations[0].Filepath)
	assert.Equal(t, "Manual", resp.Choices[0].Citations[0].Title)
}

func TestCompleteNullContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "d", "", "")
	resp, err := c.Complete(context.Background(), GroundedRequest{})
	require.NoError(t, err)

	assert.Empty(t, resp.Choices,
		"null content is no answer at all, not an empty-string answer")
}

func TestCompleteEmptyStringContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "d", "", "")
	resp, err := c.Complete(context.Background(), GroundedRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "", resp.Choices[0].Content, "a literal empty string survives as a choice")
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "d", "", "")
	_, err := c.Complete(context.Background(), GroundedRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimit())
	assert.False(t, apiErr.IsAuth())
	assert.Contains(t, apiErr.Error(), "slow down")
}
