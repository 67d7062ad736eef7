package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// FakeContext replays fixed PCM through FakeCapture devices. It backs
// `record --simulate` and the tests.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

// NewFakeContext loads a 16 kHz mono 16-bit WAV file.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wavPath, err)
	}
	if dec.SampleRate != SampleRate || dec.NumChans != Channels || dec.BitDepth != BitsPerSample {
		return nil, fmt.Errorf("%s: want %d Hz mono 16-bit, got %d Hz %d ch %d bit",
			wavPath, SampleRate, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	pcm := make([]byte, len(buf.Data)*BytesPerFrame)
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	return NewFakeContextPCM(pcm, realtime), nil
}

func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime, audioDone: make(chan struct{})}, nil
}

// FakeCapture feeds its PCM in ChunkFrames chunks, then silence until
// stopped. Realtime mode paces chunks at the sample rate.
type FakeCapture struct {
	pcm       []byte
	realtime  bool
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once all PCM has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) emit(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/BytesPerFrame))
	}
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := ChunkFrames * BytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(ChunkFrames) * time.Second / SampleRate
	}

	go func() {
		defer close(f.feedDone)
		silence := make([]byte, chunkBytes)
		pos := 0
		for {
			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				f.emit(chunk)
				pos = end
				if pos == len(f.pcm) {
					close(f.audioDone)
				}
			} else {
				if len(f.pcm) == 0 {
					select {
					case <-f.audioDone:
					default:
						close(f.audioDone)
					}
				}
				f.emit(silence)
			}

			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

// Stop waits for the feeder to exit; no callback runs after it returns.
func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}

// FakeSource is an in-memory Source for capture tests.
type FakeSource struct {
	StartErr error
	// OnStop runs inside Stop, before input is halted, to model samples
	// that arrive at the stop instant.
	OnStop func(*FakeSource)

	mu      sync.Mutex
	pending []byte
	halted  bool
	events  []string
}

func (s *FakeSource) record(ev string) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// Events lists the lifecycle calls in order.
func (s *FakeSource) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Push buffers PCM as if the device had delivered it.
func (s *FakeSource) Push(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.halted {
		s.pending = append(s.pending, pcm...)
	}
}

func (s *FakeSource) Start() error {
	s.record("start")
	return s.StartErr
}

func (s *FakeSource) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *FakeSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *FakeSource) Stop() error {
	if s.OnStop != nil {
		s.OnStop(s)
	}
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
	s.record("stop")
	return nil
}

func (s *FakeSource) Close() error {
	s.record("close")
	return nil
}

func (s *FakeSource) Name() string { return "fake" }

// Tone returns n frames of a 440 Hz sine as little-endian PCM.
func Tone(n int) []byte {
	pcm := make([]byte, n*BytesPerFrame)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}
