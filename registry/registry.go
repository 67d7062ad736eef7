// Package registry tracks the single live recording session through a
// PID marker file. The marker is advisory: a pid that is no longer alive
// makes the handle stale, and the next reader removes it.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"voxentry/log"
)

// ErrStale marks a handle whose pid is no longer alive or is unreadable.
var ErrStale = errors.New("stale session handle")

// AlreadyOwnedError is returned by TryBecomeOwner when a live session exists.
type AlreadyOwnedError struct {
	PID int
}

func (e *AlreadyOwnedError) Error() string {
	return fmt.Sprintf("session already owned by pid %d", e.PID)
}

type Handle struct {
	PID     int
	Created time.Time
}

type Registry struct {
	path  string
	alive func(pid int) bool
	kill  func(pid int, sig unix.Signal) error
}

func New(path string) *Registry {
	return &Registry{path: path, alive: Alive, kill: unix.Kill}
}

func (r *Registry) Path() string { return r.path }

// Alive probes pid with the zero signal. Only ESRCH means the process is
// gone; EPERM and other errors count as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || !errors.Is(err, unix.ESRCH)
}

// TryBecomeOwner publishes pid as the session owner. A stale handle is
// removed and the claim retried once.
func (r *Registry) TryBecomeOwner(pid int) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := r.publish(pid)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("publish session handle: %w", err)
		}

		h, err := r.read()
		switch {
		case err == nil && h.PID == pid:
			return nil
		case err == nil && r.alive(h.PID):
			return &AlreadyOwnedError{PID: h.PID}
		case err == nil:
			log.Warnf("removing %v: pid %d", ErrStale, h.PID)
			r.removeIf(h.PID)
		case errors.Is(err, os.ErrNotExist):
			// released between publish and read
		default:
			log.Warnf("removing unreadable session handle: %v", err)
			os.Remove(r.path)
		}
	}
	return fmt.Errorf("claim session handle %s: lost race twice", r.path)
}

// publish writes the pid to a private temp file and hard-links it into
// place, so readers never observe a partially written handle.
func (r *Registry) publish(pid int) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%d.tmp", r.path, pid)
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return err
	}
	defer os.Remove(tmp)
	return os.Link(tmp, r.path)
}

func (r *Registry) read() (Handle, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Handle{}, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return Handle{}, fmt.Errorf("%w: content %q", ErrStale, string(data))
	}
	h := Handle{PID: pid}
	if fi, err := os.Stat(r.path); err == nil {
		h.Created = fi.ModTime()
	}
	return h, nil
}

// Current returns the live session handle. A stale handle is deleted and
// reported as no session.
func (r *Registry) Current() (Handle, bool) {
	h, err := r.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("removing unreadable session handle: %v", err)
			os.Remove(r.path)
		}
		return Handle{}, false
	}
	if !r.alive(h.PID) {
		log.Infof("removing %v: pid %d", ErrStale, h.PID)
		r.removeIf(h.PID)
		return Handle{}, false
	}
	return h, true
}

// Release deletes the handle only if it still names pid.
func (r *Registry) Release(pid int) (bool, error) {
	h, err := r.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if h.PID != pid {
		log.Warnf("not releasing session handle owned by pid %d", h.PID)
		return false, nil
	}
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, nil
}

// Signal delivers sig to the live owner and returns its pid.
func (r *Registry) Signal(sig unix.Signal) (int, error) {
	h, ok := r.Current()
	if !ok {
		return 0, os.ErrNotExist
	}
	if err := r.kill(h.PID, sig); err != nil {
		return h.PID, fmt.Errorf("signal pid %d: %w", h.PID, err)
	}
	return h.PID, nil
}

// removeIf deletes the handle if it still names pid, so a handle
// republished by another process in the meantime survives.
func (r *Registry) removeIf(pid int) {
	if h, err := r.read(); err == nil && h.PID == pid {
		os.Remove(r.path)
	}
}
