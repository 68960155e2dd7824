package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/groundextract/groundextract"
)

// OpenAI talks to any OpenAI-compatible /v1/chat/completions endpoint
// (OpenAI itself, Azure OpenAI, vLLM, llama.cpp's server, etc). It uses
// net/http directly rather than an SDK, the same way the teacher's
// Gemini path uses a client the caller constructs — this adapter is the
// generalization of that pattern to a second wire protocol.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *slog.Logger
}

// NewOpenAI returns an adapter targeting baseURL (e.g.
// "https://api.openai.com/v1" or a self-hosted vLLM base URL).
func NewOpenAI(baseURL, apiKey, model string, log *slog.Logger) *OpenAI {
	if log == nil {
		log = slog.Default()
	}
	return &OpenAI{baseURL: baseURL, apiKey: apiKey, model: model, client: http.DefaultClient, log: log}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) SupportsSchema() bool { return true }

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) InferBatch(ctx context.Context, prompts []string, params groundextract.Params) ([]string, error) {
	out := make([]string, len(prompts))
	runner := groundextract.NewLimitedRunner(ctx, len(prompts))

	for i, prompt := range prompts {
		i, prompt := i, prompt
		runner.Go(func() error {
			text, err := o.completeOne(runner.Context(), prompt, params)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}

	if err := runner.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *OpenAI) completeOne(ctx context.Context, prompt string, params groundextract.Params) (string, error) {
	req := chatCompletionRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxOutputTokens,
		Stop:        params.Stop,
	}
	if params.ResponseFormat == groundextract.ResponseFormatJSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("groundextract/providers: marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("groundextract/providers: build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	o.log.Debug("groundextract/providers: calling openai", "model", o.model, "prompt_length", len(prompt))

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: true, Err: err}
	}

	if resp.StatusCode >= 400 {
		retriable := resp.StatusCode == 429 || resp.StatusCode >= 500
		return "", &groundextract.InferenceError{
			Provider: o.Name(), Status: resp.StatusCode, Retriable: retriable,
			Err: fmt.Errorf("openai http %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: false, Err: err}
	}
	if parsed.Error != nil {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: false, Err: fmt.Errorf("%s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: true, Err: fmt.Errorf("no choices in response")}
	}
	return parsed.Choices[0].Message.Content, nil
}
