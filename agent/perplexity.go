package agent

import (
	"context"
	"fmt"

	"voxentry/llm"
)

// Perplexity asks the Perplexity chat API for a short plain-text answer.
type Perplexity struct {
	client *llm.Client
	key    string
}

func NewPerplexity(apiKey, model string) *Perplexity {
	return NewPerplexityAt(llm.PerplexityBaseURL, apiKey, model)
}

func NewPerplexityAt(baseURL, apiKey, model string) *Perplexity {
	return &Perplexity{
		client: llm.NewClient(baseURL, apiKey, model, 0.1, 2000),
		key:    apiKey,
	}
}

func (p *Perplexity) Name() string { return "perplexity" }

func (p *Perplexity) Run(ctx context.Context, text string) (string, error) {
	if p.key == "" {
		return "", fmt.Errorf("%w: PERPLEXITY_API_KEY not set", ErrUnavailable)
	}
	return p.client.Complete(ctx, llm.PlainAnswerPrompt, text)
}
