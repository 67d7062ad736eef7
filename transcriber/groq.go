package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	baseTranscriber
}

func NewGroq(apiKey, model string) *Groq {
	return NewGroqAt(groqURL, apiKey, model)
}

func NewGroqAt(apiURL, apiKey, model string) *Groq {
	if model == "" || model == "whisper-1" {
		model = "whisper-large-v3-turbo"
	}
	return &Groq{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(),
			apiURL: apiURL,
			apiKey: apiKey,
			model:  model,
		},
	}
}

func (g *Groq) Name() string { return "groq" }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	resp, err := g.post(ctx, audioData, format, "verbose_json")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	var noSpeechProb float64
	for _, seg := range gResp.Segments {
		noSpeechProb = max(noSpeechProb, seg.NoSpeechProb)
	}

	return &Result{
		Text:         gResp.Text,
		Metrics:      resp.Metrics,
		RateLimit:    g.rateLimit(resp.Header),
		NoSpeechProb: noSpeechProb,
		Duration:     gResp.Duration,
	}, nil
}
