package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"voxentry/log"
)

// Goose runs the goose CLI once, without a persisted session, on the
// dictated instructions.
type Goose struct {
	Binary   string
	Builtins string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewGoose(binary, builtins string) *Goose {
	if binary == "" {
		binary = "goose"
	}
	return &Goose{
		Binary:   binary,
		Builtins: builtins,
		lookPath: exec.LookPath,
		run:      output,
	}
}

func output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func (g *Goose) Name() string { return "goose" }

func (g *Goose) Run(ctx context.Context, text string) (string, error) {
	bin, err := g.lookPath(g.Binary)
	if err != nil {
		log.Warnf("goose not found: %v", err)
		return "", fmt.Errorf("%w: %s not found", ErrUnavailable, g.Binary)
	}

	f, err := os.CreateTemp("", "voxentry-goose-*.txt")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(strings.TrimSpace(text)); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	args := []string{"run", "--no-session"}
	if g.Builtins != "" {
		args = append(args, "--with-builtin", g.Builtins)
	}
	args = append(args, "-q", "--output-format", "json", "-i", f.Name())

	log.Debugf("running %s %s", bin, strings.Join(args, " "))
	out, err := g.run(ctx, bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("goose: %w", ctxErr)
		}
		return "", fmt.Errorf("goose: %w", err)
	}
	return extractReply(out)
}

type gooseOutput struct {
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

// extractReply joins the text parts of the last assistant message.
func extractReply(out []byte) (string, error) {
	var parsed gooseOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", fmt.Errorf("goose output parse error: %w", err)
	}
	for i := len(parsed.Messages) - 1; i >= 0; i-- {
		m := parsed.Messages[i]
		if m.Role != "assistant" {
			continue
		}
		var parts []string
		for _, c := range m.Content {
			if c.Type == "text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
		if reply := strings.TrimSpace(strings.Join(parts, "\n")); reply != "" {
			return reply, nil
		}
	}
	return "", errors.New("goose returned no assistant text")
}
