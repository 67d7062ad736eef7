// Package session runs one recording session: claim the registry, record
// until a control signal names a mode, then stop, process and release.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voxentry/audio"
	"voxentry/beep"
	"voxentry/log"
	"voxentry/pipeline"
	"voxentry/registry"
	"voxentry/transcriber"
)

type State int

const (
	Idle State = iota
	Capturing
	Finalizing
	Dispatching
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case Dispatching:
		return "dispatching"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Requester yields the mode chosen by the first control signal.
type Requester interface {
	Requested() <-chan pipeline.Mode
}

type Processor interface {
	Process(ctx context.Context, mode pipeline.Mode, art audio.Artifact) pipeline.Outcome
}

type Notifier interface {
	Notify(title, body string)
}

type Session struct {
	ID       string
	PID      int
	Registry *registry.Registry
	Capture  *audio.CaptureLoop
	Control  Requester
	Pipeline Processor
	Notifier Notifier
	// Warm, if set, pre-opens the transcription connection while
	// recording.
	Warm transcriber.Warmer
	// Beep plays feedback tones; nil is silent.
	Beep func(beep.Sound)
	// Silence, if set, watches capture ticks for a microphone that hears
	// nothing. SilenceAutoStop ends the session as a Transcription.
	Silence *audio.SilenceMonitor

	mu    sync.Mutex
	state State
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	log.Debugf("session %s -> %s", prev, st)
}

func (s *Session) beep(snd beep.Sound) {
	if s.Beep != nil {
		s.Beep(snd)
	}
}

// Run claims ownership and records until a mode is requested or ctx
// ends; cancellation counts as a plain stop (Transcription). Every path
// after the claim ends in Done with the handle released. The returned
// error is non-nil only when no pipeline ran: another live owner
// (*registry.AlreadyOwnedError), a registry failure or a device error.
func (s *Session) Run(ctx context.Context) (pipeline.Outcome, error) {
	started := time.Now()
	if err := s.Registry.TryBecomeOwner(s.PID); err != nil {
		return pipeline.Outcome{}, err
	}
	defer s.release()

	quiet := make(chan struct{}, 1)
	if s.Silence != nil {
		s.Capture.OnTick(func(pcm []byte) {
			s.onSilence(s.Silence.Tick(audio.HasSpeech(pcm)), quiet)
		})
	}

	if err := s.Capture.Start(); err != nil {
		s.setState(Done)
		log.Exception(err, "capture start failed")
		s.beep(beep.Error)
		if s.Notifier != nil {
			s.Notifier.Notify("Recording failed", err.Error())
		}
		log.SessionEnd("none", "device_error", time.Since(started))
		return pipeline.Outcome{}, err
	}
	s.setState(Capturing)
	s.beep(beep.Start)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go s.Capture.Run(loopCtx)

	if s.Warm != nil {
		go func() {
			wctx, cancel := context.WithTimeout(loopCtx, 5*time.Second)
			defer cancel()
			if d := s.Warm.Warm(wctx); d > 0 {
				log.Debugf("transcription connection warmed in %v", d)
			}
		}()
	}

	var mode pipeline.Mode
	select {
	case mode = <-s.Control.Requested():
	case <-quiet:
		mode = pipeline.ModeTranscription
		log.Warn("no voice for too long, stopping")
	case <-ctx.Done():
		mode = pipeline.ModeTranscription
		log.Infof("session context ended (%v), stopping", context.Cause(ctx))
	}

	s.setState(Finalizing)
	art, err := s.Capture.Stop()
	stopLoop()
	<-s.Capture.Done()
	s.beep(beep.Stop)
	if err != nil {
		// The artifact is still loaded and validated downstream.
		log.Warnf("capture stop: %v", err)
	}

	s.setState(Dispatching)
	out := s.Pipeline.Process(context.Background(), mode, art)

	s.setState(Done)
	result := "ok"
	if out.Err != nil {
		result = classify(out.Err)
		s.beep(beep.Error)
	}
	log.SessionEnd(mode.String(), result, time.Since(started))
	return out, nil
}

// onSilence runs on the capture tick, so it only signals and hands
// feedback off to goroutines.
func (s *Session) onSilence(ev audio.SilenceEvent, quiet chan<- struct{}) {
	switch ev {
	case audio.SilenceWarn:
		log.Warn("no voice detected, check the microphone")
		go func() {
			s.beep(beep.Error)
			if s.Notifier != nil {
				s.Notifier.Notify("No voice detected", "Check that the right microphone is selected")
			}
		}()
	case audio.SilenceRepeat:
		go s.beep(beep.Error)
	case audio.SilenceWarnClear:
		log.Info("voice detected again")
	case audio.SilenceAutoStop:
		select {
		case quiet <- struct{}{}:
		default:
		}
	}
}

func (s *Session) release() {
	if _, err := s.Registry.Release(s.PID); err != nil {
		log.Warnf("release session handle: %v", err)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, audio.ErrArtifact):
		return "artifact_error"
	case errors.Is(err, pipeline.ErrEmpty):
		return "empty"
	case errors.Is(err, pipeline.ErrService):
		return "service_error"
	}
	return "error"
}
