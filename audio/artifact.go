package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// Artifact is a finished recording on disk.
type Artifact struct {
	Path   string
	Frames int
}

func (a Artifact) Duration() time.Duration {
	return time.Duration(a.Frames) * time.Second / SampleRate
}

// WAVSink appends PCM chunks to a WAV file. The header is written at
// creation and patched with the final sizes on Close.
type WAVSink struct {
	path   string
	f      *os.File
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int
	closed bool
}

func CreateWAV(path string) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrArtifact, path, err)
	}
	w := &WAVSink{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
			SourceBitDepth: BitsPerSample,
		},
	}
	// An empty write emits the header, so a recording stopped before the
	// first sample is still a valid file.
	if err := w.enc.Write(w.buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: wav header: %v", ErrArtifact, err)
	}
	return w, nil
}

// Write appends little-endian 16-bit samples. A trailing odd byte is dropped.
func (w *WAVSink) Write(pcm []byte) error {
	if w.closed {
		return fmt.Errorf("%w: write after close", ErrArtifact)
	}
	n := len(pcm) / BytesPerFrame
	if n == 0 {
		return nil
	}
	data := make([]int, n)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	w.buf.Data = data
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w: write: %v", ErrArtifact, err)
	}
	w.frames += n
	return nil
}

func (w *WAVSink) Frames() int { return w.frames }

// Close flushes the header sizes and closes the file. It is safe to call twice.
func (w *WAVSink) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	encErr := w.enc.Close()
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	if err := errors.Join(encErr, syncErr, closeErr); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrArtifact, w.path, err)
	}
	return nil
}

func (w *WAVSink) Artifact() Artifact {
	return Artifact{Path: w.path, Frames: w.frames}
}

// Recording is a loaded artifact: the file bytes as uploaded plus the
// decoded samples for re-encoding.
type Recording struct {
	WAV     []byte
	Samples []int16
}

func (r *Recording) Duration() time.Duration {
	return time.Duration(len(r.Samples)) * time.Second / SampleRate
}

// LoadArtifact reads and validates a recording. A missing file, a file
// that is not 16 kHz mono 16-bit WAV, or one without samples is an
// ErrArtifact.
func LoadArtifact(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid wav file", ErrArtifact, path)
	}
	if dec.SampleRate != SampleRate || dec.NumChans != Channels || dec.BitDepth != BitsPerSample {
		return nil, fmt.Errorf("%w: unexpected format %d Hz, %d ch, %d bit",
			ErrArtifact, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrArtifact, err)
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: %s holds no audio", ErrArtifact, path)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &Recording{WAV: data, Samples: samples}, nil
}
