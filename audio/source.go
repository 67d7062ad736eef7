package audio

import (
	"fmt"
	"sync"
)

// Source is a pollable input stream. Start opens it, Available reports
// buffered bytes, Read drains them, Stop halts input while keeping the
// buffer readable, and Close releases the device.
type Source interface {
	Start() error
	Available() int
	Read(p []byte) (int, error)
	Stop() error
	Close() error
	Name() string
}

// DeviceSource buffers the pushes of a callback-driven CaptureDevice so
// the capture loop can poll it.
type DeviceSource struct {
	dev CaptureDevice

	mu      sync.Mutex
	pending []byte
	stopped bool
}

func NewDeviceSource(dev CaptureDevice) *DeviceSource {
	return &DeviceSource{dev: dev}
}

// OpenDeviceSource resolves the named device (empty for the default)
// and wraps a new capture at the fixed format.
func OpenDeviceSource(ctx Context, deviceName string) (*DeviceSource, error) {
	info, err := FindDevice(ctx, deviceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	dev, err := ctx.NewCapture(info, DefaultCaptureConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return NewDeviceSource(dev), nil
}

func (s *DeviceSource) push(data []byte, _ uint32) {
	s.mu.Lock()
	if !s.stopped {
		s.pending = append(s.pending, data...)
	}
	s.mu.Unlock()
}

func (s *DeviceSource) Start() error {
	s.dev.SetCallback(s.push)
	if err := s.dev.Start(); err != nil {
		s.dev.ClearCallback()
		return fmt.Errorf("%w: start %s: %v", ErrDevice, s.dev.DeviceName(), err)
	}
	return nil
}

func (s *DeviceSource) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *DeviceSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return n, nil
}

func (s *DeviceSource) Stop() error {
	s.dev.Stop()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *DeviceSource) Close() error {
	s.dev.ClearCallback()
	s.dev.Close()
	return nil
}

func (s *DeviceSource) Name() string { return s.dev.DeviceName() }
