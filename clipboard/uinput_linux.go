//go:build linux

package clipboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ioctl requests from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564
	uiSetKeybit = 0x40045565
	uiDevCreate = 0x5501
)

// linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01

	keyLeftShift = 42
)

const uinputName = "voxentry-keys"

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type uinputUserDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

var (
	uinput     *os.File
	uinputOnce sync.Once
	uinputErr  error
)

// initUinput creates the virtual keyboard once per process.
func initUinput() error {
	uinputOnce.Do(func() {
		uinput, uinputErr = createKeyboard()
	})
	return uinputErr
}

func createKeyboard() (*os.File, error) {
	path := "/dev/uinput"
	if _, err := os.Stat(path); err != nil {
		path = "/dev/input/uinput"
		if _, err := os.Stat(path); err != nil {
			return nil, errors.New("uinput device not found, try: sudo modprobe uinput")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())

	setup := func() error {
		for _, ev := range []int{evKey, evSyn} {
			if err := unix.IoctlSetInt(fd, uiSetEvbit, ev); err != nil {
				return fmt.Errorf("UI_SET_EVBIT: %w", err)
			}
		}
		// All standard keys, so udev classifies the device as a keyboard.
		for code := 0; code < 256; code++ {
			if err := unix.IoctlSetInt(fd, uiSetKeybit, code); err != nil {
				return fmt.Errorf("UI_SET_KEYBIT: %w", err)
			}
		}
		dev := uinputUserDev{Bustype: 0x03, Vendor: 0x1209, Product: 0x7665, Version: 1}
		copy(dev.Name[:], uinputName)
		if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
			return err
		}
		if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
			return fmt.Errorf("UI_DEV_CREATE: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		f.Close()
		return nil, err
	}

	// The compositor needs a moment to pick up a new input device.
	time.Sleep(200 * time.Millisecond)
	return f, nil
}

// emit writes one key event followed by a sync report.
func emit(code uint16, value int32) error {
	for _, ev := range []inputEvent{
		{Type: evKey, Code: code, Value: value},
		{Type: evSyn},
	} {
		if err := binary.Write(uinput, binary.LittleEndian, &ev); err != nil {
			return err
		}
	}
	return nil
}

func keyTap(code uint16, shift bool) error {
	if shift {
		if err := emit(keyLeftShift, 1); err != nil {
			return err
		}
	}
	if err := emit(code, 1); err != nil {
		return err
	}
	if err := emit(code, 0); err != nil {
		return err
	}
	if shift {
		return emit(keyLeftShift, 0)
	}
	return nil
}

// Verify creates the virtual keyboard, taps Shift and reads the event
// back from evdev to confirm the kernel delivers it.
func Verify() (string, error) {
	if err := initUinput(); err != nil {
		return "", fmt.Errorf("uinput init: %w", err)
	}

	entries, err := os.ReadDir("/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	var evdevPath string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "name"))
		if err == nil && strings.TrimSpace(string(data)) == uinputName {
			evdevPath = filepath.Join("/dev/input", e.Name())
			break
		}
	}
	if evdevPath == "" {
		return "", errors.New(uinputName + " evdev device not found")
	}

	evdev, err := os.Open(evdevPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", evdevPath, err)
	}
	defer evdev.Close()

	if err := keyTap(keyLeftShift, false); err != nil {
		return "", fmt.Errorf("send keystroke: %w", err)
	}

	seen := make(chan error, 1)
	go func() {
		buf := make([]byte, 24*16)
		n, err := evdev.Read(buf)
		if err != nil {
			seen <- err
			return
		}
		for i := 0; i+24 <= n; i += 24 {
			if binary.LittleEndian.Uint16(buf[i+16:]) == evKey && binary.LittleEndian.Uint16(buf[i+18:]) == keyLeftShift {
				seen <- nil
				return
			}
		}
		seen <- errors.New("shift event missing")
	}()

	select {
	case err := <-seen:
		if err != nil {
			return "", err
		}
		return "keystroke verified via " + evdevPath, nil
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("timed out waiting for keystroke events")
	}
}
