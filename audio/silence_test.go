package audio

import (
	"testing"
	"time"
)

func holdMonitor() *SilenceMonitor {
	return NewSilenceMonitor(100*time.Millisecond, false)
}

func autoStopMonitor() *SilenceMonitor {
	return NewSilenceMonitor(100*time.Millisecond, true)
}

func feedN(m *SilenceMonitor, speech bool, n int) SilenceEvent {
	var last SilenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func TestSilenceWarnAfter8s(t *testing.T) {
	m := holdMonitor()
	// 79 ticks of silence, no warning yet
	for i := 0; i < 79; i++ {
		if ev := m.Tick(false); ev != SilenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	// 80th tick triggers warning (8s)
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("expected SilenceWarn at tick 80, got %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := holdMonitor()
	feedN(m, false, 80)

	for i := 0; i < 80; i++ {
		if ev := m.Tick(true); ev == SilenceWarnClear {
			return
		}
	}
	t.Fatal("expected SilenceWarnClear after speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := holdMonitor()
	for i := 0; i < 200; i++ {
		if ev := m.Tick(true); ev == SilenceWarn {
			t.Fatalf("unexpected warn during speech at tick %d", i)
		}
	}
}

func TestRepeatWarning(t *testing.T) {
	m := autoStopMonitor()
	feedN(m, false, 80)
	for i := 0; i < 100; i++ {
		if ev := m.Tick(false); ev == SilenceRepeat {
			return
		}
	}
	t.Fatal("expected SilenceRepeat with auto-stop enabled")
}

func TestAutoStopPriorityOverRepeat(t *testing.T) {
	m := autoStopMonitor()
	for i := 0; i < 400; i++ {
		ev := m.Tick(false)
		if ev == SilenceAutoStop {
			if i != 299 {
				t.Errorf("auto-stop at tick %d, want 299", i)
			}
			return
		}
		if i >= 300 && ev == SilenceRepeat {
			t.Fatalf("SilenceRepeat fired at tick %d instead of SilenceAutoStop", i)
		}
	}
	t.Fatal("expected SilenceAutoStop within 400 ticks")
}

func TestNoAutoStopWhenDisabled(t *testing.T) {
	m := holdMonitor()
	for i := 0; i < 400; i++ {
		switch m.Tick(false) {
		case SilenceAutoStop, SilenceRepeat:
			t.Fatalf("unexpected event at tick %d", i)
		}
	}
}

func TestAutoStopPreventedBySpeech(t *testing.T) {
	m := autoStopMonitor()
	for i := 0; i < 500; i++ {
		if ev := m.Tick(i%10 < 7); ev == SilenceAutoStop {
			t.Fatalf("unexpected auto-stop with speech at tick %d", i)
		}
	}
}

func TestWarnOnlyOnce(t *testing.T) {
	m := holdMonitor()
	warns := 0
	for i := 0; i < 300; i++ {
		if m.Tick(false) == SilenceWarn {
			warns++
		}
	}
	if warns != 1 {
		t.Fatalf("expected exactly 1 SilenceWarn, got %d", warns)
	}
}

func TestWarnStaysDuringNoise(t *testing.T) {
	m := holdMonitor()
	feedN(m, false, 80)

	// Occasional false positives (< 25% speech) should not clear
	for i := 0; i < 80; i++ {
		if ev := m.Tick(i%10 == 0); ev == SilenceWarnClear {
			t.Fatalf("warning cleared at tick %d with 10%% speech", i)
		}
	}
}

func TestHasSpeech(t *testing.T) {
	if !HasSpeech(Tone(SampleRate / 10)) {
		t.Error("tone not detected")
	}
	if HasSpeech(make([]byte, SampleRate/10*BytesPerFrame)) {
		t.Error("silence detected as speech")
	}
	// Two loud frames are below the debounce.
	short := append(Tone(2*speechFrames), make([]byte, 4*speechFrames*BytesPerFrame)...)
	if HasSpeech(short) {
		t.Error("blip detected as speech")
	}
	if HasSpeech(nil) {
		t.Error("empty input detected as speech")
	}
}
