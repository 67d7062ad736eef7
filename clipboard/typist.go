package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"voxentry/log"
)

// Typist types text into the focused window. Concurrent invocations,
// including from other processes, are serialised by an flock on
// LockPath so their keystrokes never interleave.
type Typist struct {
	LockPath string
	// Delay is the pause between keystrokes passed to xdotool.
	Delay time.Duration
	// Settle is how long the lock stays held after typing so the target
	// window consumes the events before another writer starts.
	Settle time.Duration

	run      func(ctx context.Context, name string, args ...string) error
	fallback func(text string) error
}

func NewTypist(lockPath string, delay, settle time.Duration) *Typist {
	return &Typist{
		LockPath: lockPath,
		Delay:    delay,
		Settle:   settle,
		run:      runCommand,
		fallback: injectKeys,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Type sends text as one xdotool invocation. Without xdotool it falls
// back to the platform key injector.
func (t *Typist) Type(ctx context.Context, text string) error {
	unlock, err := t.lock(ctx)
	if err != nil {
		return fmt.Errorf("%w: type lock: %v", ErrSink, err)
	}
	defer unlock()

	delayMs := max(int(t.Delay/time.Millisecond), 0)
	err = t.run(ctx, "xdotool", "type", "--clearmodifiers", "--delay", strconv.Itoa(delayMs), "--", text)
	if errors.Is(err, exec.ErrNotFound) {
		log.Warn("xdotool not found, typing through the key injector")
		err = t.fallback(text)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(t.Settle):
	}
	return nil
}

// lock polls a non-blocking flock so a wedged holder cannot outlive ctx.
func (t *Typist) lock(ctx context.Context) (func(), error) {
	f, err := os.OpenFile(t.LockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, err
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
