// Package agent hands a transcript to an external assistant and returns
// its answer as plain text.
package agent

import (
	"context"
	"errors"
)

// ErrUnavailable means the agent cannot run here: its binary or API key
// is missing.
var ErrUnavailable = errors.New("agent unavailable")

type Agent interface {
	Name() string
	Run(ctx context.Context, text string) (string, error)
}
