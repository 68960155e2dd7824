package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundextract/groundextract"
)

func TestOpenAI_InferBatch_ReturnsContentInOrder(t *testing.T) {
	var received []chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)

		resp := chatCompletionResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: `[{"class":"x","text":"` + req.Messages[0].Content + `"}]`}}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "test-key", "gpt-test", nil)
	out, err := o.InferBatch(context.Background(), []string{"alpha", "beta"}, groundextract.Params{
		Temperature:    0.2,
		ResponseFormat: groundextract.ResponseFormatJSON,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "alpha")
	assert.Contains(t, out[1], "beta")
	assert.Len(t, received, 2)
	assert.Equal(t, "json_object", received[0].ResponseFormat.Type)
}

func TestOpenAI_InferBatch_RetriableOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "", "gpt-test", nil)
	_, err := o.InferBatch(context.Background(), []string{"x"}, groundextract.Params{})
	require.Error(t, err)
	var ie *groundextract.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.True(t, ie.Retriable)
	assert.Equal(t, http.StatusInternalServerError, ie.Status)
}

func TestOpenAI_InferBatch_NonRetriableOn400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`bad request`))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "", "gpt-test", nil)
	_, err := o.InferBatch(context.Background(), []string{"x"}, groundextract.Params{})
	require.Error(t, err)
	var ie *groundextract.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.False(t, ie.Retriable)
}

func TestOpenAI_Name(t *testing.T) {
	o := NewOpenAI("http://example.test", "", "gpt-test", nil)
	assert.Equal(t, "openai", o.Name())
	assert.True(t, o.SupportsSchema())
}
