//go:build !linux

package control

import (
	"golang.org/x/sys/unix"

	"voxentry/pipeline"
)

// Without realtime signals the remaining modes borrow job-control and
// terminal signals that a background session never receives otherwise.
var table = []entry{
	{unix.SIGINT, pipeline.ModeTranscription},
	{unix.SIGTERM, pipeline.ModeTranscription},
	{unix.SIGUSR1, pipeline.ModeCompletion},
	{unix.SIGUSR2, pipeline.ModeEdit},
	{unix.SIGHUP, pipeline.ModeTypeOut},
	{unix.SIGQUIT, pipeline.ModeAppend},
	{unix.SIGTTIN, pipeline.ModeGoose},
	{unix.SIGTTOU, pipeline.ModePerplexity},
}
