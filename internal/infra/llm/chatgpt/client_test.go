package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletionSendsJSONFormat(t *testing.T) {
	var captured ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer srv.Close()

	client, err := NewClient("secret", srv.URL+"/")
	require.NoError(t, err)

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "gpt-4o-mini",
		Messages:       []Message{{Role: "user", Content: "hi"}},
		ResponseFormat: JSONObjectFormat,
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, `{"ok":true}`, resp.Choices[0].Message.Content)
	require.Equal(t, 15, resp.Usage.TotalTokens)
	require.NotNil(t, captured.ResponseFormat)
	require.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestCreateChatCompletionReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("secret", srv.URL)
	require.NoError(t, err)

	_, err = client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatus())
	require.Contains(t, apiErr.Body, "slow down")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("  ", "")
	require.Error(t, err)
}
