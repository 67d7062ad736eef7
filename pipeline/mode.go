package pipeline

import "fmt"

type Kind int

const (
	Transcription Kind = iota
	Completion
	Edit
	TypeOut
	AgentHandoff
	Append
)

// Agent variants.
const (
	Goose      = "goose"
	Perplexity = "perplexity"
)

// Mode selects what happens to a transcript. Agent names the runner for
// AgentHandoff and is empty otherwise.
type Mode struct {
	Kind  Kind
	Agent string
}

var (
	ModeTranscription = Mode{Kind: Transcription}
	ModeCompletion    = Mode{Kind: Completion}
	ModeEdit          = Mode{Kind: Edit}
	ModeTypeOut       = Mode{Kind: TypeOut}
	ModeAppend        = Mode{Kind: Append}
	ModeGoose         = Mode{Kind: AgentHandoff, Agent: Goose}
	ModePerplexity    = Mode{Kind: AgentHandoff, Agent: Perplexity}
)

// String returns the command-line name of the mode.
func (m Mode) String() string {
	switch m.Kind {
	case Transcription:
		return "transcription"
	case Completion:
		return "completion"
	case Edit:
		return "edit"
	case TypeOut:
		return "type"
	case AgentHandoff:
		return m.Agent
	case Append:
		return "append"
	}
	return fmt.Sprintf("mode(%d)", int(m.Kind))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "transcription", "record":
		return ModeTranscription, nil
	case "completion":
		return ModeCompletion, nil
	case "edit":
		return ModeEdit, nil
	case "type":
		return ModeTypeOut, nil
	case "append":
		return ModeAppend, nil
	case Goose:
		return ModeGoose, nil
	case Perplexity:
		return ModePerplexity, nil
	}
	return Mode{}, fmt.Errorf("unknown mode %q", s)
}

// title heads the notification for a finished mode.
func (m Mode) title() string {
	switch m.Kind {
	case Completion:
		return "Completion"
	case Edit:
		return "Edit"
	case TypeOut:
		return "Typed"
	case AgentHandoff:
		switch m.Agent {
		case Goose:
			return "Goose"
		case Perplexity:
			return "Perplexity"
		}
		return m.Agent
	case Append:
		return "Appended"
	}
	return "Transcription"
}
