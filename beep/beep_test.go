package beep

import (
	"testing"
	"time"
)

func TestTones(t *testing.T) {
	for _, s := range []Sound{Start, Stop, Error} {
		samples := samplesFor(s)
		if len(samples) == 0 {
			t.Fatalf("sound %d has no samples", s)
		}
		if samples[0] != 0 {
			t.Errorf("sound %d does not start at zero crossing", s)
		}
	}
}

func TestTickDecays(t *testing.T) {
	samples := tick(1000, 0.1, 0.5, 60)
	if len(samples) != sampleRate/10 {
		t.Fatalf("len = %d", len(samples))
	}
	peak := func(s []int16) int16 {
		var p int16
		for _, v := range s {
			p = max(p, v, -v)
		}
		return p
	}
	head, tail := peak(samples[:500]), peak(samples[len(samples)-500:])
	if tail >= head {
		t.Errorf("no decay: head %d tail %d", head, tail)
	}
}

func TestDoubleBeepHasGap(t *testing.T) {
	one := tick(350, 0.08, 0.6, 30)
	two := doubleBeep(350, 0.08, 0.05, 0.6, 30)
	gap := int(sampleRate * 0.05)
	if len(two) != 2*len(one)+gap {
		t.Fatalf("len = %d", len(two))
	}
	for _, v := range two[len(one) : len(one)+gap] {
		if v != 0 {
			t.Fatal("gap is not silent")
		}
	}
}

func TestDisabledPlaysNothing(t *testing.T) {
	Disable()
	defer disabled.Store(false)

	Play(Start)
	start := time.Now()
	Wait(time.Second)
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Wait blocked with sounds disabled")
	}
}
