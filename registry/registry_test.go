package registry

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func newTestRegistry(t *testing.T, live map[int]bool) *Registry {
	t.Helper()
	r := New(filepath.Join(t.TempDir(), "voxentry.pid"))
	r.alive = func(pid int) bool { return live[pid] }
	return r
}

func writeHandle(t *testing.T, r *Registry, content string) {
	t.Helper()
	if err := os.WriteFile(r.path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestTryBecomeOwner(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{100: true})

	if err := r.TryBecomeOwner(100); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "100" {
		t.Errorf("handle content = %q, want 100", data)
	}
	h, ok := r.Current()
	if !ok || h.PID != 100 {
		t.Errorf("Current() = %+v, %v", h, ok)
	}
	if h.Created.IsZero() {
		t.Error("Created not populated")
	}
}

func TestTryBecomeOwnerLiveOwner(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{100: true, 200: true})
	if err := r.TryBecomeOwner(100); err != nil {
		t.Fatal(err)
	}

	err := r.TryBecomeOwner(200)
	var owned *AlreadyOwnedError
	if !errors.As(err, &owned) {
		t.Fatalf("err = %v, want AlreadyOwnedError", err)
	}
	if owned.PID != 100 {
		t.Errorf("owner = %d, want 100", owned.PID)
	}
}

func TestTryBecomeOwnerReplacesStale(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{200: true})
	writeHandle(t, r, "100")

	if err := r.TryBecomeOwner(200); err != nil {
		t.Fatal(err)
	}
	h, ok := r.Current()
	if !ok || h.PID != 200 {
		t.Errorf("Current() = %+v, %v", h, ok)
	}
}

func TestTryBecomeOwnerReplacesGarbage(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{200: true})
	writeHandle(t, r, "not a pid\n")

	if err := r.TryBecomeOwner(200); err != nil {
		t.Fatal(err)
	}
}

func TestCurrentStaleSelfHeals(t *testing.T) {
	r := newTestRegistry(t, nil)
	writeHandle(t, r, "4242")

	for i := 0; i < 2; i++ {
		if _, ok := r.Current(); ok {
			t.Fatalf("call %d: stale handle reported live", i)
		}
		if exists(r.path) {
			t.Fatalf("call %d: stale handle not removed", i)
		}
	}
}

func TestCurrentNoFile(t *testing.T) {
	r := newTestRegistry(t, nil)
	if _, ok := r.Current(); ok {
		t.Error("expected no session")
	}
}

func TestReleaseGuarded(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{100: true, 200: true})
	if err := r.TryBecomeOwner(200); err != nil {
		t.Fatal(err)
	}

	released, err := r.Release(100)
	if err != nil {
		t.Fatal(err)
	}
	if released || !exists(r.path) {
		t.Error("released a handle owned by another pid")
	}

	released, err = r.Release(200)
	if err != nil {
		t.Fatal(err)
	}
	if !released || exists(r.path) {
		t.Error("owner could not release its handle")
	}

	released, err = r.Release(200)
	if err != nil || released {
		t.Errorf("second release = %v, %v", released, err)
	}
}

func TestAtMostOneOwner(t *testing.T) {
	live := map[int]bool{}
	for pid := 1; pid <= 16; pid++ {
		live[pid] = true
	}
	r := newTestRegistry(t, live)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		owners []int
	)
	for pid := 1; pid <= 16; pid++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			if err := r.TryBecomeOwner(pid); err == nil {
				mu.Lock()
				owners = append(owners, pid)
				mu.Unlock()
			}
		}(pid)
	}
	wg.Wait()

	if len(owners) != 1 {
		t.Fatalf("owners = %v, want exactly one", owners)
	}
	h, ok := r.Current()
	if !ok || h.PID != owners[0] {
		t.Errorf("handle %+v does not name owner %d", h, owners[0])
	}
}

func TestSignal(t *testing.T) {
	r := newTestRegistry(t, map[int]bool{300: true})
	var gotPID int
	var gotSig unix.Signal
	r.kill = func(pid int, sig unix.Signal) error {
		gotPID, gotSig = pid, sig
		return nil
	}

	if _, err := r.Signal(unix.SIGUSR1); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("signal without session: err = %v", err)
	}

	if err := r.TryBecomeOwner(300); err != nil {
		t.Fatal(err)
	}
	pid, err := r.Signal(unix.SIGUSR1)
	if err != nil {
		t.Fatal(err)
	}
	if pid != 300 || gotPID != 300 || gotSig != unix.SIGUSR1 {
		t.Errorf("signalled pid %d/%d with %v", pid, gotPID, gotSig)
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	if Alive(0) || Alive(-1) {
		t.Error("non-positive pid reported alive")
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skip("true not available:", err)
	}
	if Alive(cmd.Process.Pid) {
		t.Errorf("reaped pid %s reported alive", strconv.Itoa(cmd.Process.Pid))
	}
}
