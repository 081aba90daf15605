package relay

import "strings"

// Kind distinguishes chat replies from command replies.
type Kind int

const (
	// Chat is broadcast verbatim.
	Chat Kind = iota
	// Command is submitted to the host's command dispatcher.
	Command
)

func (k Kind) String() string {
	switch k {
	case Chat:
		return "chat"
	case Command:
		return "command"
	default:
		return "unknown"
	}
}

// Reply is a classified backend answer. For Command, Text is the command
// without its leading slash.
type Reply struct {
	Kind Kind
	Text string
}

// Classify treats a reply starting with "/" as a command and anything else as
// chat text.
func Classify(text string) Reply {
	if cmd, ok := strings.CutPrefix(text, "/"); ok {
		return Reply{Kind: Command, Text: strings.TrimSpace(cmd)}
	}

	return Reply{Kind: Chat, Text: text}
}
