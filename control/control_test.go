package control

import (
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"voxentry/pipeline"
)

func TestTableCoversEveryMode(t *testing.T) {
	modes := []pipeline.Mode{
		pipeline.ModeTranscription, pipeline.ModeCompletion, pipeline.ModeEdit,
		pipeline.ModeTypeOut, pipeline.ModeAppend, pipeline.ModeGoose, pipeline.ModePerplexity,
	}
	for _, m := range modes {
		sig, err := SignalFor(m)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		got, ok := ModeFor(sig)
		if !ok || got != m {
			t.Errorf("ModeFor(SignalFor(%v)) = %v, %v", m, got, ok)
		}
	}
}

func TestInterruptIsTranscription(t *testing.T) {
	for _, sig := range []os.Signal{unix.SIGINT, unix.SIGTERM, os.Interrupt} {
		if m, ok := ModeFor(sig); !ok || m != pipeline.ModeTranscription {
			t.Errorf("%v -> %v, %v", sig, m, ok)
		}
	}
	if sig, _ := SignalFor(pipeline.ModeTranscription); sig != unix.SIGINT {
		t.Errorf("transcription signal = %v", sig)
	}
}

func TestSignalsAreDistinct(t *testing.T) {
	seen := map[os.Signal]bool{}
	for _, s := range Signals() {
		if seen[s] {
			t.Errorf("duplicate signal %v", s)
		}
		seen[s] = true
	}
}

func TestDispatcherPublishesOnce(t *testing.T) {
	ch := make(chan os.Signal, 4)
	d := NewDispatcher(ch)
	defer d.Close()

	ch <- unix.SIGUSR1
	ch <- unix.SIGUSR2
	ch <- unix.SIGINT

	select {
	case m := <-d.Requested():
		if m != pipeline.ModeCompletion {
			t.Errorf("mode = %v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no mode published")
	}

	select {
	case m := <-d.Requested():
		t.Errorf("second mode published: %v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcherSkipsUnknownSignals(t *testing.T) {
	ch := make(chan os.Signal, 2)
	d := NewDispatcher(ch)
	defer d.Close()

	ch <- unix.SIGWINCH
	ch <- unix.SIGUSR2

	select {
	case m := <-d.Requested():
		if m != pipeline.ModeEdit {
			t.Errorf("mode = %v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no mode published")
	}
}

func TestInstallReceivesRealSignal(t *testing.T) {
	d := Install()
	defer d.Close()

	if err := unix.Kill(os.Getpid(), unix.SIGUSR2); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-d.Requested():
		if m != pipeline.ModeEdit {
			t.Errorf("mode = %v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := NewDispatcher(make(chan os.Signal))
	d.Close()
	d.Close()
}
