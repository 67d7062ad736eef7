package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestLoop(t *testing.T, src Source) (*CaptureLoop, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxentry_audio.wav")
	l := NewCaptureLoop(func() (Source, error) { return src, nil }, path)
	l.SetInterval(5 * time.Millisecond)
	return l, path
}

func samplesOf(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestCaptureWritesAllSamples(t *testing.T) {
	src := &FakeSource{}
	l, path := newTestLoop(t, src)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	pcm := Tone(ChunkFrames * 5)
	for off := 0; off < len(pcm); off += 700 {
		src.Push(pcm[off:min(off+700, len(pcm))])
		time.Sleep(2 * time.Millisecond)
	}

	art, err := l.Stop()
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}

	if art.Path != path || art.Frames != ChunkFrames*5 {
		t.Errorf("artifact = %+v", art)
	}
	rec, err := LoadArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec.Samples, samplesOf(pcm)) {
		t.Error("artifact samples differ from pushed audio")
	}
}

func TestStopDrainsTail(t *testing.T) {
	src := &FakeSource{}
	tail := Tone(300)
	src.OnStop = func(s *FakeSource) { s.Push(tail) }

	// No Run: every sample must come from the final drain.
	l, path := newTestLoop(t, src)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	head := Tone(ChunkFrames * 3)
	src.Push(head)

	art, err := l.Stop()
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte(nil), head...), tail...)
	if art.Frames != len(want)/BytesPerFrame {
		t.Fatalf("frames = %d, want %d", art.Frames, len(want)/BytesPerFrame)
	}
	rec, err := LoadArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec.Samples, samplesOf(want)) {
		t.Error("tail samples missing from artifact")
	}
}

func TestStopOrder(t *testing.T) {
	src := &FakeSource{}
	l, _ := newTestLoop(t, src)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Stop(); err != nil {
		t.Fatal(err)
	}
	if got, want := src.Events(), []string{"start", "stop", "close"}; !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestStopBeforeAnySample(t *testing.T) {
	l, path := newTestLoop(t, &FakeSource{})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	art, err := l.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if art.Frames != 0 {
		t.Errorf("frames = %d", art.Frames)
	}
	if _, err := LoadArtifact(path); !errors.Is(err, ErrArtifact) {
		t.Errorf("empty artifact: err = %v, want ErrArtifact", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	src := &FakeSource{}
	l, _ := newTestLoop(t, src)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	src.Push(Tone(100))

	first, err := l.Stop()
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("second stop = %+v, want %+v", second, first)
	}
	if n := len(src.Events()); n != 3 {
		t.Errorf("source touched again on second stop: %v", src.Events())
	}
}

func TestStopWithoutStart(t *testing.T) {
	l, _ := newTestLoop(t, &FakeSource{})
	if _, err := l.Stop(); err == nil {
		t.Error("expected error stopping an unstarted loop")
	}
}

func TestStartDeviceError(t *testing.T) {
	src := &FakeSource{StartErr: ErrDevice}
	l, _ := newTestLoop(t, src)
	if err := l.Start(); !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}
	if got := src.Events(); !reflect.DeepEqual(got, []string{"start", "close"}) {
		t.Errorf("events = %v", got)
	}
}

func TestOpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	l := NewCaptureLoop(func() (Source, error) { return nil, ErrDevice }, path)
	if err := l.Start(); !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeviceSourceWithFakeCapture(t *testing.T) {
	pcm := Tone(ChunkFrames*2 + 17)
	ctx := NewFakeContextPCM(pcm, false)
	src, err := OpenDeviceSource(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	l, path := newTestLoop(t, src)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(runCtx)

	deadline := time.After(2 * time.Second)
	for l.frames() < len(pcm)/BytesPerFrame {
		select {
		case <-deadline:
			t.Fatal("fake audio never reached the sink")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := l.Stop(); err != nil {
		t.Fatal(err)
	}
	rec, err := LoadArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	got := rec.Samples[:len(pcm)/BytesPerFrame]
	if !bytes.Equal(int16Bytes(got), pcm) {
		t.Error("leading samples differ from fake device audio")
	}
}

func (l *CaptureLoop) frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Frames()
}

func int16Bytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
