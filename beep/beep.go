// Package beep plays short feedback tones when recording starts, stops
// or fails.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

type Sound int

const (
	Start Sound = iota
	Stop
	Error
)

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Stop beep: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	disabled atomic.Bool
	playing  sync.WaitGroup

	tonesOnce sync.Once
	tones     map[Sound][]int16
)

func Disable() { disabled.Store(true) }

func samplesFor(s Sound) []int16 {
	tonesOnce.Do(func() {
		tones = map[Sound][]int16{
			Start: tick(startFreq, 0.12, startVolume, startDecay),
			Stop:  tick(stopFreq, 0.15, stopVolume, stopDecay),
			Error: doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
		}
	})
	return tones[s]
}

// Play starts s in the background.
func Play(s Sound) {
	if disabled.Load() {
		return
	}
	samples := samplesFor(s)
	playing.Add(1)
	go func() {
		defer playing.Done()
		play(samples)
	}()
}

// Wait blocks until queued sounds finish or timeout passes, so a tone
// is not cut off by process exit.
func Wait(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		playing.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// tick is a decaying sine, mono.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, 2*len(b)+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}
