package transcriber

import (
	"context"
	"sync"
)

// FakeTranscriber returns a fixed text and records every upload.
type FakeTranscriber struct {
	text string
	err  error
	lang string

	mu      sync.Mutex
	formats []string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string            { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

func (f *FakeTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (*Result, error) {
	f.mu.Lock()
	f.formats = append(f.formats, format)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text, Metrics: &NetworkMetrics{}}, nil
}

// Calls returns the formats of all uploads so far.
func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.formats...)
}
