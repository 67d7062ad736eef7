// Package notify shows desktop notifications for finished operations.
package notify

import (
	"strings"

	"github.com/gen2brain/beeep"

	"voxentry/log"
)

const (
	wrapWidth = 55
	maxLines  = 10
)

// Desktop sends notifications through the platform notification service.
// Delivery is best effort; failures are only logged.
type Desktop struct{}

func (Desktop) Notify(title, body string) {
	if err := beeep.Notify(title, Wrap(body, wrapWidth, maxLines), ""); err != nil {
		log.Warnf("notification %q: %v", title, err)
	}
}

// Wrap reflows text into lines of at most width columns (longer words
// stay whole) and keeps the first maxLines lines. Notification daemons
// truncate long single-line bodies.
func Wrap(text string, width, maxLines int) string {
	var (
		lines   []string
		current []string
		length  int
	)
	for _, w := range strings.Fields(text) {
		if len(current) > 0 && length+1+len(w) > width {
			lines = append(lines, strings.Join(current, " "))
			current, length = nil, 0
		}
		if len(current) > 0 {
			length++
		}
		current = append(current, w)
		length += len(w)
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

// Preview shortens text to n runes with an ellipsis, for log lines and
// notification summaries.
func Preview(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
