package relay

import "strings"

// ParsePrompt extracts the AI prompt from a chat message. A message triggers
// only when it equals prefix or starts with prefix followed by a space; the
// prompt is the trimmed remainder. It reports false for non-triggering
// messages, a bare prefix and empty prompts.
func ParsePrompt(message, prefix string) (string, bool) {
	if message == prefix {
		return "", false
	}

	rest, ok := strings.CutPrefix(message, prefix+" ")
	if !ok {
		return "", false
	}

	prompt := strings.TrimSpace(rest)
	if prompt == "" {
		return "", false
	}

	return prompt, true
}
