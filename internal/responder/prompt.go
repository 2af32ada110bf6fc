package responder

import (
	"fmt"
	"strings"
)

const systemPreamble = `You are a study assistant in a small group session.
Answer the latest question clearly and concisely. Use the conversation so
far for context, but reply only to the last message.`

// BuildPrompt renders a request into a single prompt string shared by all
// providers.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n")

	for _, turn := range req.History {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}

	fmt.Fprintf(&sb, "\n%s asks: %s\n", req.DisplayName, req.Content)
	return sb.String()
}
