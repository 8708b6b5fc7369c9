package context

import (
	"strings"

	"vla/internal/domain"
)

// MessageText is the text of a Message as it is rendered into a prompt, used
// for token counting.
func MessageText(msg domain.Message) string {
	return RoleLabel(msg.Role) + ": " + msg.Content
}

// RoleLabel names a role the way conversation transcripts are rendered.
func RoleLabel(role domain.MessageRole) string {
	switch role {
	case domain.RoleUser:
		return "Human"
	case domain.RoleAssistant:
		return "AI"
	case "":
		return "Unknown"
	}
	r := string(role)
	return strings.ToUpper(r[:1]) + r[1:]
}

// Render joins messages into a transcript, one "Role: content" line each.
func Render(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, MessageText(m))
	}
	return strings.Join(lines, "\n")
}
