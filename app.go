package main

import (
	"fmt"
	"io"

	"voxentry/agent"
	"voxentry/audio"
	"voxentry/clipboard"
	"voxentry/config"
	"voxentry/llm"
	"voxentry/notify"
	"voxentry/pipeline"
	"voxentry/registry"
	"voxentry/transcriber"
)

// backgroundEnv marks the re-executed child of record --detach.
const backgroundEnv = "_VOXENTRY_BG"

// app holds what the commands share once setup has run. The function
// fields are replaced in tests.
type app struct {
	cfg *config.Config
	reg *registry.Registry

	selector       func() *pipeline.Selector
	newTranscriber func() (transcriber.Transcriber, error)
	openAudio      func() (audio.Context, error)
}

func (a *app) init(cfg *config.Config) {
	a.cfg = cfg
	a.reg = registry.New(cfg.PIDPath())
	if a.selector == nil {
		a.selector = a.buildSelector
	}
	if a.newTranscriber == nil {
		a.newTranscriber = func() (transcriber.Transcriber, error) {
			t, err := transcriber.New(cfg.Provider, cfg.TranscriptionURL, cfg.TranscriptionKey(), cfg.TranscriptionModel)
			if err != nil {
				return nil, err
			}
			if cfg.Language != "" {
				t.SetLanguage(cfg.Language)
			}
			return t, nil
		}
	}
	if a.openAudio == nil {
		a.openAudio = audio.NewContext
	}
}

// buildSelector wires the production sinks and services. The
// transcriber is attached by record only.
func (a *app) buildSelector() *pipeline.Selector {
	cfg := a.cfg
	baseURL := cfg.CompletionURL
	if baseURL == "" {
		baseURL = llm.OpenAIBaseURL
	}
	return &pipeline.Selector{
		Completer: llm.NewClient(baseURL, cfg.OpenAIKey, cfg.CompletionModel, cfg.Temperature, cfg.MaxTokens),
		Clipboard: clipboard.System{},
		Typist:    clipboard.NewTypist(cfg.TypeLockPath(), cfg.TypeDelay, cfg.TypeSettle),
		Agents: map[string]agent.Agent{
			pipeline.Goose:      agent.NewGoose(cfg.GooseBinary, cfg.GooseBuiltins),
			pipeline.Perplexity: agent.NewPerplexity(cfg.PerplexityKey, cfg.PerplexityModel),
		},
		Notifier:          notify.Desktop{},
		UploadFormat:      cfg.UploadFormat,
		TranscribeTimeout: cfg.TranscribeTimeout,
		CompletionTimeout: cfg.CompletionTimeout,
		AgentTimeout:      cfg.AgentTimeout,
		TypeTimeout:       cfg.TypeTimeout,
	}
}

func printOutcome(w io.Writer, out pipeline.Outcome) {
	switch {
	case out.Err != nil:
		fmt.Fprintf(w, "%s failed: %v\n", out.Mode, out.Err)
	case out.SinkErr != nil:
		fmt.Fprintf(w, "%s: %s\n(delivery to %s failed: %v)\n", out.Mode, notify.Preview(out.Text, 200), out.Sink, out.SinkErr)
	default:
		fmt.Fprintf(w, "%s -> %s: %s\n", out.Mode, out.Sink, notify.Preview(out.Text, 200))
	}
}
