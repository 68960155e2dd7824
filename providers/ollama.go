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

// Ollama talks to a local Ollama server's /api/generate endpoint,
// matching the multipass walkthrough's use of a "mistral" model served
// from http://localhost:11434.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	log     *slog.Logger
}

func NewOllama(baseURL, model string, log *slog.Logger) *Ollama {
	if log == nil {
		log = slog.Default()
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{baseURL: baseURL, model: model, client: http.DefaultClient, log: log}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) SupportsSchema() bool { return false }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options ollamaGenOptions `json:"options,omitempty"`
}

type ollamaGenOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) InferBatch(ctx context.Context, prompts []string, params groundextract.Params) ([]string, error) {
	out := make([]string, len(prompts))
	runner := groundextract.NewLimitedRunner(ctx, len(prompts))

	for i, prompt := range prompts {
		i, prompt := i, prompt
		runner.Go(func() error {
			text, err := o.generateOne(runner.Context(), prompt, params)
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

func (o *Ollama) generateOne(ctx context.Context, prompt string, params groundextract.Params) (string, error) {
	req := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaGenOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxOutputTokens,
			Stop:        params.Stop,
		},
	}
	if params.ResponseFormat == groundextract.ResponseFormatJSON {
		req.Format = "json"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("groundextract/providers: marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("groundextract/providers: build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	o.log.Debug("groundextract/providers: calling ollama", "model", o.model, "prompt_length", len(prompt))

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
			Err: fmt.Errorf("ollama http %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &groundextract.InferenceError{Provider: o.Name(), Retriable: false, Err: err}
	}
	return parsed.Response, nil
}
