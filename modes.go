package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"voxentry/control"
	"voxentry/log"
	"voxentry/pipeline"
)

type modeCommand struct {
	mode  pipeline.Mode
	short string
}

var modeCommands = []modeCommand{
	{pipeline.ModeCompletion, "Finish recording and answer the dictated request"},
	{pipeline.ModeEdit, "Finish recording and apply the dictated edit to the clipboard text"},
	{pipeline.ModeTypeOut, "Finish recording and type the transcript into the focused window"},
	{pipeline.ModeGoose, "Finish recording and hand the instructions to goose"},
	{pipeline.ModePerplexity, "Finish recording and ask Perplexity"},
	{pipeline.ModeAppend, "Finish recording and append the transcript to the clipboard"},
}

func newModeCmd(a *app, m modeCommand) *cobra.Command {
	return &cobra.Command{
		Use:   m.mode.String(),
		Short: m.short,
		Long: m.short + ".\n\nWith no session running, the mode runs on the selected text instead\n" +
			"(primary selection, else the clipboard).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.invoke(cmd.Context(), m.mode, cmd.OutOrStdout())
		},
	}
}

// forward signals the live session to finish in mode.
func (a *app) forward(mode pipeline.Mode) (int, error) {
	sig, err := control.SignalFor(mode)
	if err != nil {
		return 0, err
	}
	return a.reg.Signal(sig)
}

// invoke hands mode to the live session, or runs it directly on the
// current selection when there is none.
func (a *app) invoke(ctx context.Context, mode pipeline.Mode, out io.Writer) error {
	pid, err := a.forward(mode)
	if err == nil {
		log.Infof("forwarded %s to session pid %d", mode, pid)
		fmt.Fprintf(out, "%s -> session %d\n", mode, pid)
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	log.Infof("no session running, %s on the current selection", mode)
	printOutcome(out, a.selector().Direct(ctx, mode))
	return nil
}
