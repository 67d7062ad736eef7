package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const openAIURL = "https://api.openai.com/v1/audio/transcriptions"

type OpenAI struct {
	baseTranscriber
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIAt(openAIURL, apiKey, model)
}

// NewOpenAIAt targets a custom endpoint, such as a local proxy.
func NewOpenAIAt(apiURL, apiKey, model string) *OpenAI {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAI{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(),
			apiURL: apiURL,
			apiKey: apiKey,
			model:  model,
		},
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	resp, err := o.post(ctx, audioData, format, "json")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var oResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &oResp); err != nil {
		return nil, fmt.Errorf("openai response parse error: %w", err)
	}

	return &Result{
		Text:      oResp.Text,
		Metrics:   resp.Metrics,
		RateLimit: o.rateLimit(resp.Header),
	}, nil
}
