package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"voxentry/config"
	"voxentry/log"
)

var version = "dev"

type rootOptions struct {
	logPath string
	quiet   bool
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		log.Errorf("%s: %v", cmd.Name(), err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Close()
		return 1
	}
	log.Close()
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:   "voxentry",
		Short: "Dictate into the clipboard, the focused window or an assistant",
		Long: "voxentry records from the microphone until a mode command tells the running\n" +
			"session what to do with the speech: copy it, complete it, edit the clipboard\n" +
			"with it, type it, append it, or hand it to an agent.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(opts)
		},
	}
	root.Version = version
	root.SetVersionTemplate("voxentry {{.Version}}\n")

	root.PersistentFlags().StringVar(&opts.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not mirror the log to stderr")

	root.AddCommand(newRecordCmd(a))
	for _, m := range modeCommands {
		root.AddCommand(newModeCmd(a, m))
	}
	root.AddCommand(newStopCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newDevicesCmd(a))
	root.AddCommand(newDoctorCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads the configuration and opens the log; every command but
// version runs it first.
func (a *app) setup(opts *rootOptions) error {
	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if opts.quiet || os.Getenv(backgroundEnv) != "" {
		log.SetConsole(nil)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	a.init(cfg)
	return nil
}

// initCrashLog sends fatal runtime errors to crash_log.txt next to the
// diagnostics log.
func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voxentry %s\n", version)
		},
	}
}
