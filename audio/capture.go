package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voxentry/log"
)

const DefaultPollInterval = 100 * time.Millisecond

var errNotStarted = errors.New("capture not started")

// CaptureLoop moves PCM from a Source into a WAVSink on a fixed tick.
// The source, sink and capturing flag are only touched with mu held, so
// a tick and Stop never interleave.
type CaptureLoop struct {
	open     func() (Source, error)
	path     string
	interval time.Duration

	mu        sync.Mutex
	source    Source
	sink      *WAVSink
	capturing bool
	stopped   bool
	artifact  Artifact
	stopErr   error
	ticks     int
	chunk     []byte
	last      []byte
	onTick    func(pcm []byte)
	done      chan struct{}
}

// NewCaptureLoop prepares a loop that records from open() into path.
func NewCaptureLoop(open func() (Source, error), path string) *CaptureLoop {
	return &CaptureLoop{
		open:     open,
		path:     path,
		interval: DefaultPollInterval,
		chunk:    make([]byte, ChunkFrames*BytesPerFrame),
		done:     make(chan struct{}),
	}
}

// SetInterval overrides the poll period; it must be called before Start.
func (l *CaptureLoop) SetInterval(d time.Duration) {
	l.interval = d
}

// OnTick registers fn to see the PCM read on each tick, possibly empty.
// fn runs with the loop locked and must not block or call back into the
// loop; pcm is only valid during the call. Call it before Start.
func (l *CaptureLoop) OnTick(fn func(pcm []byte)) {
	l.onTick = fn
}

// Start opens the source and the sink and begins accepting samples.
func (l *CaptureLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capturing || l.stopped {
		return errors.New("capture already started")
	}

	src, err := l.open()
	if err != nil {
		return err
	}
	sink, err := CreateWAV(l.path)
	if err != nil {
		src.Close()
		return err
	}
	if err := src.Start(); err != nil {
		src.Close()
		sink.Close()
		return err
	}

	l.source = src
	l.sink = sink
	l.capturing = true
	log.Infof("capture started on %s", src.Name())
	return nil
}

// Run polls until Stop is called or ctx ends. A read or write failure
// is logged and the tick skipped; the device stays open for Stop.
func (l *CaptureLoop) Run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !l.tick() {
			return
		}
	}
}

// Done is closed when Run returns.
func (l *CaptureLoop) Done() <-chan struct{} {
	return l.done
}

func (l *CaptureLoop) tick() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.capturing {
		return false
	}
	l.ticks++
	l.last = nil
	if err := l.pumpLocked(); err != nil {
		log.Warnf("capture tick: %v", err)
	}
	if l.onTick != nil {
		l.onTick(l.last)
	}
	return true
}

// pumpLocked performs at most one read of whatever the source has buffered.
func (l *CaptureLoop) pumpLocked() error {
	avail := l.source.Available()
	if avail <= 0 {
		return nil
	}
	if avail > len(l.chunk) {
		l.chunk = make([]byte, avail)
	}
	n, err := l.source.Read(l.chunk[:avail])
	l.last = l.chunk[:n]
	if n > 0 {
		if werr := l.sink.Write(l.chunk[:n]); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrDevice, err)
	}
	return nil
}

// Stop ends capture: it halts the source, drains what is still buffered,
// then closes the source and the sink, in that order. Later calls return
// the same result.
func (l *CaptureLoop) Stop() (Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return l.artifact, l.stopErr
	}
	if !l.capturing {
		return Artifact{}, errNotStarted
	}
	l.capturing = false
	l.stopped = true

	var errs []error
	if err := l.source.Stop(); err != nil {
		errs = append(errs, err)
	}
	for l.source.Available() > 0 {
		before := l.source.Available()
		if err := l.pumpLocked(); err != nil {
			errs = append(errs, err)
			break
		}
		if l.source.Available() >= before {
			break
		}
	}
	if err := l.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	l.artifact = l.sink.Artifact()
	l.stopErr = errors.Join(errs...)
	log.CaptureStats(l.artifact.Frames, l.ticks, l.artifact.Duration())
	return l.artifact, l.stopErr
}
