// Package providers collects concrete Provider wire adapters: Gemini via
// google.golang.org/genai, Ollama and OpenAI-compatible HTTP backends,
// and a deterministic in-memory fake for tests.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/groundextract/groundextract"
)

// Gemini calls Google's generateContent API. Concurrency across a
// batch's prompts is bounded by a groundextract.Runner rather than a
// bare loop of goroutines: within one InferBatch call every prompt must
// succeed or the whole batch is retried by the caller, so one failing
// prompt should cancel its siblings instead of letting them run on.
type Gemini struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// NewGemini wraps an already-constructed genai.Client. model is the
// model ID used for every call; an empty model defaults to
// "gemini-1.5-pro".
func NewGemini(client *genai.Client, model string, log *slog.Logger) *Gemini {
	if log == nil {
		log = slog.Default()
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}
	return &Gemini{client: client, model: model, log: log}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) SupportsSchema() bool { return true }

func (g *Gemini) InferBatch(ctx context.Context, prompts []string, params groundextract.Params) ([]string, error) {
	if g.client == nil {
		return nil, fmt.Errorf("groundextract/providers: gemini client not initialized")
	}

	out := make([]string, len(prompts))
	runner := groundextract.NewLimitedRunner(ctx, len(prompts))

	for i, prompt := range prompts {
		i, prompt := i, prompt
		runner.Go(func() error {
			text, err := g.generateOne(runner.Context(), prompt, params)
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

func (g *Gemini) generateOne(ctx context.Context, prompt string, params groundextract.Params) (string, error) {
	content := genai.NewContentFromParts(
		[]*genai.Part{genai.NewPartFromText(prompt)},
		genai.RoleUser,
	)

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if params.Temperature > 0 {
		t := float32(params.Temperature)
		cfg.Temperature = &t
	}
	if params.TopP > 0 {
		p := float32(params.TopP)
		cfg.TopP = &p
	}
	if params.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxOutputTokens)
	}
	if len(params.Schema) > 0 {
		g.log.Debug("groundextract/providers: gemini response schema requested but not wired to genai.Schema", "bytes", len(params.Schema))
	}

	g.log.Debug("groundextract/providers: calling gemini", "model", g.model, "prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, cfg)
	if err != nil {
		return "", &groundextract.InferenceError{Provider: g.Name(), Retriable: true, Err: err}
	}

	if len(resp.Candidates) == 0 {
		return "", &groundextract.InferenceError{Provider: g.Name(), Retriable: true, Err: fmt.Errorf("no candidates in response")}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &groundextract.InferenceError{Provider: g.Name(), Retriable: true, Err: fmt.Errorf("no parts in candidate content")}
	}
	part := candidate.Content.Parts[0]
	if part.Text == "" {
		return "", &groundextract.InferenceError{Provider: g.Name(), Retriable: true, Err: fmt.Errorf("no text in first response part")}
	}
	return part.Text, nil
}
