package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"voxentry/audio"
	"voxentry/beep"
	"voxentry/control"
	"voxentry/log"
	"voxentry/notify"
	"voxentry/pipeline"
	"voxentry/registry"
	"voxentry/session"
	"voxentry/transcriber"
)

type recordOptions struct {
	detach   bool
	simulate string
	device   string
}

func newRecordCmd(a *app) *cobra.Command {
	opts := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Start recording, or finish the running session as a plain transcription",
		Long: "record starts a session that captures the microphone until a mode command\n" +
			"(or Ctrl+C) finishes it. If a session is already running, record finishes it\n" +
			"and the transcript goes to the clipboard.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.record(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.detach, "detach", false, "run the session in the background and return immediately")
	cmd.Flags().StringVar(&opts.simulate, "simulate", "", "record from a 16 kHz mono WAV file instead of the microphone")
	cmd.Flags().StringVar(&opts.device, "device", "", "use the named capture device for this session")
	return cmd
}

func (a *app) record(ctx context.Context, opts *recordOptions, out io.Writer) error {
	if pid, err := a.forward(pipeline.ModeTranscription); err == nil {
		log.Infof("session pid %d already running, finishing it", pid)
		fmt.Fprintf(out, "finishing session %d\n", pid)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if opts.detach && os.Getenv(backgroundEnv) == "" {
		return daemonize(out)
	}

	tr, err := a.newTranscriber()
	if err != nil {
		return err
	}
	if opts.device != "" {
		a.cfg.Device = opts.device
	}
	if !a.cfg.Sounds || opts.simulate != "" {
		beep.Disable()
	}

	var actx audio.Context
	if opts.simulate != "" {
		actx, err = audio.NewFakeContext(opts.simulate, true)
	} else {
		actx, err = a.openAudio()
	}
	if err != nil {
		return err
	}
	defer actx.Close()

	id := uuid.NewString()
	log.WithSession(id)

	dispatcher := control.Install()
	defer dispatcher.Close()

	sel := a.selector()
	sel.Transcriber = tr

	s := &session.Session{
		ID:       id,
		PID:      os.Getpid(),
		Registry: a.reg,
		Capture: audio.NewCaptureLoop(func() (audio.Source, error) {
			return audio.OpenDeviceSource(actx, a.cfg.Device)
		}, a.cfg.ArtifactPath()),
		Control:  dispatcher,
		Pipeline: sel,
		Notifier: notify.Desktop{},
		Beep:     beep.Play,
	}
	if w, ok := tr.(transcriber.Warmer); ok {
		s.Warm = w
	}
	if a.cfg.SilenceWarning || a.cfg.SilenceStop {
		s.Silence = audio.NewSilenceMonitor(audio.DefaultPollInterval, a.cfg.SilenceStop)
	}

	device := a.cfg.Device
	if device == "" {
		device = "default"
	}
	if opts.simulate != "" {
		device = "simulate:" + opts.simulate
	}
	log.SessionStart(id, device, audio.SampleRate)
	fmt.Fprintf(out, "recording on %s (pid %d); finish with voxentry <mode> or Ctrl+C\n", device, os.Getpid())

	result, err := s.Run(ctx)
	beep.Wait(time.Second)

	var owned *registry.AlreadyOwnedError
	switch {
	case errors.As(err, &owned):
		// Lost the claim to a session started in the meantime.
		fmt.Fprintf(out, "session %d is already recording\n", owned.PID)
		return nil
	case err != nil:
		// Device errors are already logged and notified; the owner
		// still exits cleanly.
		fmt.Fprintf(out, "recording failed: %v\n", err)
		return nil
	}
	printOutcome(out, result)
	return nil
}

// daemonize re-executes the command in a new session with its output
// discarded, so the shell gets its prompt back.
func daemonize(out io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), backgroundEnv+"=1")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Infof("detached session pid %d", cmd.Process.Pid)
	fmt.Fprintf(out, "recording in the background (pid %d)\n", cmd.Process.Pid)
	return cmd.Process.Release()
}
