package context

import (
	"testing"

	"vla/internal/domain"
)

// =============================================================================
// MessageText / Render
// =============================================================================

func TestMessageText_ShouldPrefixRoleLabel(t *testing.T) {
	tests := []struct {
		role domain.MessageRole
		want string
	}{
		{domain.RoleUser, "Human: hi"},
		{domain.RoleAssistant, "AI: hi"},
		{domain.RoleSystem, "System: hi"},
		{domain.RoleTool, "Tool: hi"},
		{"", "Unknown: hi"},
	}
	for _, tt := range tests {
		if got := MessageText(domain.Message{Role: tt.role, Content: "hi"}); got != tt.want {
			t.Errorf("%q: want %q, got %q", tt.role, tt.want, got)
		}
	}
}

func TestRender_ShouldJoinMessagesInOrder(t *testing.T) {
	got := Render([]domain.Message{
		{Role: domain.RoleUser, Content: "Do you allow cats?"},
		{Role: domain.RoleAssistant, Content: "Yes, cats are welcome."},
	})
	want := "Human: Do you allow cats?\nAI: Yes, cats are welcome."
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestRender_WhenEmpty_ShouldReturnEmptyString(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}
