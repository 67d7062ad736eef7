package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voxentry/audio"
	"voxentry/config"
	"voxentry/doctor"
	"voxentry/pipeline"
)

func newStopCmd(a *app) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Finish the running session; the transcript goes to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := pipeline.ParseMode(as)
			if err != nil {
				return err
			}
			pid, err := a.forward(mode)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "no session running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopping session %d as %s\n", pid, mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "transcription", "finish in this mode: transcription, completion, edit, type, append, goose, perplexity")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is recording",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			h, ok := a.reg.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "idle")
				return
			}
			age := "unknown time"
			if !h.Created.IsZero() {
				age = time.Since(h.Created).Round(time.Second).String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recording: pid %d for %s\n", h.PID, age)
		},
	}
}

func newDevicesCmd(a *app) *cobra.Command {
	var pick bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices, or pick one and save it to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actx, err := a.openAudio()
			if err != nil {
				return err
			}
			defer actx.Close()
			out := cmd.OutOrStdout()

			if pick {
				dev, err := audio.SelectDevice(actx, out)
				if err != nil {
					return err
				}
				path, err := config.SaveDevice(dev.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "using %s (saved to %s)\n", dev.Name, path)
				return nil
			}

			devices, err := actx.Devices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				marker := "  "
				if d.Name == a.cfg.Device {
					marker = "* "
				}
				suffix := ""
				if audio.IsBluetooth(d.Name) {
					suffix = " (bluetooth)"
				}
				fmt.Fprintf(out, "%s%s%s\n", marker, d.Name, suffix)
			}
			if a.cfg.Device == "" {
				fmt.Fprintln(out, "(using the system default)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a device interactively")
	return cmd
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, API keys, audio and clipboard access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if doctor.Run(a.cfg, cmd.OutOrStdout()) != 0 {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}
