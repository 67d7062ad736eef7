// Package pipeline turns a transcript into a result for the chosen mode
// and delivers it to the clipboard or the focused window.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voxentry/agent"
	"voxentry/audio"
	"voxentry/llm"
	"voxentry/log"
	"voxentry/notify"
	"voxentry/transcriber"
)

var (
	// ErrService wraps transcription, completion and agent failures.
	ErrService = errors.New("service")
	// ErrEmpty means there was nothing to work on: no speech in the
	// recording, or no selection or clipboard text for a direct run.
	ErrEmpty = errors.New("nothing to process")
)

const (
	SinkClipboard = "clipboard"
	SinkKeys      = "keys"
)

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Clipboard interface {
	Read() (string, error)
	ReadPrimary() (string, error)
	Write(text string) error
}

type Typist interface {
	Type(ctx context.Context, text string) error
}

type Notifier interface {
	Notify(title, body string)
}

// Outcome is the terminal result of one pipeline run. SinkErr records a
// delivery failure that was tolerated.
type Outcome struct {
	Mode    Mode
	Text    string
	Sink    string
	Err     error
	SinkErr error
}

type Selector struct {
	Transcriber transcriber.Transcriber
	Completer   Completer
	Clipboard   Clipboard
	Typist      Typist
	Agents      map[string]agent.Agent
	Notifier    Notifier

	UploadFormat      string
	TranscribeTimeout time.Duration
	CompletionTimeout time.Duration
	AgentTimeout      time.Duration
	TypeTimeout       time.Duration
}

// Process transcribes a finished recording and delivers the result.
func (s *Selector) Process(ctx context.Context, mode Mode, art audio.Artifact) Outcome {
	transcript, err := s.transcribe(ctx, art)
	if err != nil {
		return s.report(Outcome{Mode: mode, Err: err})
	}
	return s.report(s.apply(ctx, mode, transcript, ""))
}

// deliver runs mode on an existing transcript.
func (s *Selector) deliver(ctx context.Context, mode Mode, transcript string) Outcome {
	return s.report(s.apply(ctx, mode, transcript, ""))
}

// Direct runs mode without a recording, on the text the user has
// selected. Completion, TypeOut and agents take the primary selection,
// else the clipboard. Append adds the selection to the clipboard. Edit
// applies the selection as the instruction to the clipboard text.
func (s *Selector) Direct(ctx context.Context, mode Mode) Outcome {
	primary := s.read("primary selection", s.Clipboard.ReadPrimary)

	var input, original string
	switch mode.Kind {
	case Append:
		input = primary
	case Edit:
		input = primary
		original = s.read("clipboard", s.Clipboard.Read)
		if strings.TrimSpace(original) == "" {
			return s.report(Outcome{Mode: mode, Err: fmt.Errorf("%w: clipboard is empty, nothing to edit", ErrEmpty)})
		}
	default:
		input = primary
		if strings.TrimSpace(input) == "" {
			input = s.read("clipboard", s.Clipboard.Read)
		}
	}
	if strings.TrimSpace(input) == "" {
		return s.report(Outcome{Mode: mode, Err: fmt.Errorf("%w: no selected text", ErrEmpty)})
	}
	return s.report(s.apply(ctx, mode, input, original))
}

func (s *Selector) transcribe(ctx context.Context, art audio.Artifact) (string, error) {
	rec, err := audio.LoadArtifact(art.Path)
	if err != nil {
		return "", err
	}
	tctx, cancel := withTimeout(ctx, s.TranscribeTimeout)
	defer cancel()
	text, err := transcriber.Run(tctx, s.Transcriber, rec, s.UploadFormat)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrEmpty)
	}
	log.Debugf("transcript: %s", notify.Preview(text, 80))
	return text, nil
}

// apply computes the mode's result from input and hands it to the sink.
// original is the text to edit; when empty, Edit reads the clipboard and
// then the primary selection.
func (s *Selector) apply(ctx context.Context, mode Mode, input, original string) Outcome {
	out := Outcome{Mode: mode, Sink: SinkClipboard}
	input = strings.TrimSpace(input)
	if input == "" {
		out.Err = fmt.Errorf("%w: empty transcript", ErrEmpty)
		return out
	}

	switch mode.Kind {
	case Transcription:
		out.Text = input

	case Completion:
		out.Text, out.Err = s.complete(ctx, llm.CompletionPrompt, input)

	case Edit:
		if original == "" {
			original = s.read("clipboard", s.Clipboard.Read)
		}
		if strings.TrimSpace(original) == "" {
			original = s.read("primary selection", s.Clipboard.ReadPrimary)
		}
		if strings.TrimSpace(original) == "" {
			out.Err = fmt.Errorf("%w: no clipboard or selected text to edit", ErrEmpty)
			return out
		}
		out.Text, out.Err = s.complete(ctx, llm.EditPrompt, llm.EditRequest(original, input))

	case TypeOut:
		out.Text, out.Sink = input, SinkKeys
		tctx, cancel := withTimeout(ctx, s.TypeTimeout)
		defer cancel()
		if err := s.Typist.Type(tctx, input+"\n"); err != nil {
			log.Warnf("typing failed: %v", err)
			out.SinkErr = err
		}
		return out

	case AgentHandoff:
		out.Text, out.Err = s.handoff(ctx, mode.Agent, input)

	case Append:
		prev := s.read("clipboard", s.Clipboard.Read)
		out.Text = joinAppend(prev, input)

	default:
		out.Err = fmt.Errorf("unknown mode %v", mode)
	}

	if out.Err != nil {
		return out
	}
	if err := s.Clipboard.Write(out.Text); err != nil {
		log.Warnf("clipboard write failed: %v", err)
		out.SinkErr = err
	}
	return out
}

func (s *Selector) complete(ctx context.Context, system, user string) (string, error) {
	if s.Completer == nil {
		return "", fmt.Errorf("%w: no completion service configured", ErrService)
	}
	cctx, cancel := withTimeout(ctx, s.CompletionTimeout)
	defer cancel()
	text, err := s.Completer.Complete(cctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: completion: %v", ErrService, err)
	}
	return text, nil
}

func (s *Selector) handoff(ctx context.Context, name, input string) (string, error) {
	a, ok := s.Agents[name]
	if !ok {
		return "", fmt.Errorf("%w: %s is not configured", agent.ErrUnavailable, name)
	}
	actx, cancel := withTimeout(ctx, s.AgentTimeout)
	defer cancel()
	text, err := a.Run(actx, input)
	if errors.Is(err, agent.ErrUnavailable) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrService, name, err)
	}
	return text, nil
}

// read returns "" when the source fails; selection and clipboard access
// are best effort.
func (s *Selector) read(what string, fn func() (string, error)) string {
	text, err := fn()
	if err != nil {
		log.Warnf("reading %s: %v", what, err)
		return ""
	}
	return text
}

// report sends the one notification and the one summary line for a run.
func (s *Selector) report(out Outcome) Outcome {
	log.PipelineDone(out.Mode.String(), out.Sink, len(out.Text), out.Err)
	if s.Notifier == nil {
		return out
	}
	if out.Err != nil {
		s.Notifier.Notify(out.Mode.title()+" failed", out.Err.Error())
		return out
	}
	body := notify.Preview(out.Text, 200)
	if out.SinkErr != nil {
		body = fmt.Sprintf("%s\n(delivery failed: %v)", body, out.SinkErr)
	}
	s.Notifier.Notify(out.Mode.title(), body)
	return out
}

// joinAppend adds text after prev with one blank line between them.
// Clipboard tools hand back trailing newlines, so prev is trimmed first.
func joinAppend(prev, text string) string {
	prev = strings.TrimSpace(prev)
	if prev == "" {
		return text
	}
	return prev + "\n\n" + text
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
