package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	silenceWarnAfter = 8 * time.Second
	silenceStopAfter = 30 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)

	speechFrames   = SampleRate * 20 / 1000 // 20 ms analysis frames
	speechRMS      = 500
	speechDebounce = 3 // consecutive loud frames to count as voice
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // repeat warning (every 8s)
	SilenceAutoStop               // 30s without voice
)

// SilenceMonitor classifies capture ticks over a sliding window and
// reports when the microphone seems to hear nothing.
type SilenceMonitor struct {
	warnAt   int
	windowSz int
	autoStop bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	lastWarn    int
}

// NewSilenceMonitor sizes the windows for the given tick period. With
// autoStop, a long silence yields SilenceAutoStop and repeated warnings.
func NewSilenceMonitor(tick time.Duration, autoStop bool) *SilenceMonitor {
	windowSz := max(int(silenceStopAfter/tick), 1)
	return &SilenceMonitor{
		warnAt:   max(int(silenceWarnAfter/tick), 1),
		windowSz: windowSz,
		autoStop: autoStop,
		window:   make([]bool, windowSz),
	}
}

func (m *SilenceMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *SilenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastWarn = m.ticks
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}

	if !m.autoStop {
		return SilenceNone
	}

	// Auto-stop is checked before repeat.
	if m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		return SilenceAutoStop
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}

// HasSpeech reports whether pcm holds a run of loud 20 ms frames. It is
// an energy gate, not a voice model: steady loud noise counts too.
func HasSpeech(pcm []byte) bool {
	frameBytes := speechFrames * BytesPerFrame
	run := 0
	for off := 0; off+frameBytes <= len(pcm); off += frameBytes {
		if rms(pcm[off:off+frameBytes]) >= speechRMS {
			run++
			if run >= speechDebounce {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
