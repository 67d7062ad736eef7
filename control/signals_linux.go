//go:build linux

package control

import (
	"golang.org/x/sys/unix"

	"voxentry/pipeline"
)

// glibc reserves the first two realtime signals.
const sigRTMin = unix.Signal(34)

var table = []entry{
	{unix.SIGINT, pipeline.ModeTranscription},
	{unix.SIGTERM, pipeline.ModeTranscription},
	{unix.SIGUSR1, pipeline.ModeCompletion},
	{unix.SIGUSR2, pipeline.ModeEdit},
	{sigRTMin + 1, pipeline.ModeTypeOut},
	{sigRTMin + 2, pipeline.ModeAppend},
	{sigRTMin + 3, pipeline.ModeGoose},
	{sigRTMin + 4, pipeline.ModePerplexity},
}
