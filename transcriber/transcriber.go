package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Result struct {
	Text         string
	Metrics      *NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	Duration     float64
}

// Transcriber turns one uploaded recording into text in a single request.
type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	Transcribe(ctx context.Context, audio []byte, format string) (*Result, error)
}

// Warmer is implemented by transcribers that can pre-open their
// connection while the user is still speaking.
type Warmer interface {
	Warm(ctx context.Context) time.Duration
}

type baseTranscriber struct {
	client *TracedClient
	apiURL string
	apiKey string
	model  string
	lang   string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

func (b *baseTranscriber) Warm(ctx context.Context) time.Duration {
	return b.client.WarmConnection(ctx, b.apiURL)
}

// post sends the multipart upload shared by the OpenAI-compatible
// transcription endpoints.
func (b *baseTranscriber) post(ctx context.Context, audioData []byte, format, responseFormat string) (*TracedResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}
	writer.WriteField("model", b.model)
	writer.WriteField("response_format", responseFormat)
	if b.lang != "" {
		writer.WriteField("language", b.lang)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return b.client.Do(req)
}

func (b *baseTranscriber) rateLimit(h http.Header) string {
	return firstNonEmpty(h, "x-ratelimit-remaining-requests") + "/" + firstNonEmpty(h, "x-ratelimit-limit-requests")
}

// New builds the transcriber for provider. An empty apiURL selects the
// provider's public endpoint.
func New(provider, apiURL, apiKey, model string) (Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for %s transcription", provider)
	}
	switch provider {
	case "openai":
		if apiURL == "" {
			apiURL = openAIURL
		}
		return NewOpenAIAt(apiURL, apiKey, model), nil
	case "groq":
		if apiURL == "" {
			apiURL = groqURL
		}
		return NewGroqAt(apiURL, apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", provider)
	}
}
