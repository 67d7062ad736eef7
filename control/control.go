// Package control maps OS signals to pipeline modes. A session owner
// listens for them; mode invocations send them.
package control

import (
	"fmt"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"voxentry/log"
	"voxentry/pipeline"
)

type entry struct {
	sig  unix.Signal
	mode pipeline.Mode
}

// Signals returns every control signal.
func Signals() []os.Signal {
	sigs := make([]os.Signal, len(table))
	for i, e := range table {
		sigs[i] = e.sig
	}
	return sigs
}

func ModeFor(sig os.Signal) (pipeline.Mode, bool) {
	for _, e := range table {
		if e.sig == sig {
			return e.mode, true
		}
	}
	return pipeline.Mode{}, false
}

// SignalFor returns the signal that requests mode.
func SignalFor(mode pipeline.Mode) (unix.Signal, error) {
	for _, e := range table {
		if e.mode == mode {
			return e.sig, nil
		}
	}
	return 0, fmt.Errorf("no control signal for mode %v", mode)
}

// Dispatcher turns the first control signal into a mode request. The
// signal path only enqueues; whoever reads Requested does the work.
type Dispatcher struct {
	sigs      <-chan os.Signal
	requested chan pipeline.Mode
	done      chan struct{}
	closeOnce sync.Once
	stop      func()
}

// Install starts receiving the control signals for this process.
func Install() *Dispatcher {
	ch := make(chan os.Signal, len(table))
	signal.Notify(ch, Signals()...)
	d := NewDispatcher(ch)
	d.stop = func() { signal.Stop(ch) }
	return d
}

// NewDispatcher reads signals from sigs.
func NewDispatcher(sigs <-chan os.Signal) *Dispatcher {
	d := &Dispatcher{
		sigs:      sigs,
		requested: make(chan pipeline.Mode, 1),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

// Requested yields at most one mode per session.
func (d *Dispatcher) Requested() <-chan pipeline.Mode {
	return d.requested
}

func (d *Dispatcher) loop() {
	fired := false
	for {
		select {
		case <-d.done:
			return
		case sig := <-d.sigs:
			mode, ok := ModeFor(sig)
			if !ok {
				log.Warnf("ignoring unexpected signal %v", sig)
				continue
			}
			if fired {
				log.Infof("ignoring %v (%s): a mode is already running", sig, mode)
				continue
			}
			fired = true
			log.Infof("received %v, mode %s", sig, mode)
			d.requested <- mode
		}
	}
}

// Close stops signal delivery. Signals arriving afterwards get their
// default disposition.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		if d.stop != nil {
			d.stop()
		}
		close(d.done)
	})
}
