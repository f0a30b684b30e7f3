package discord

import (
	"strings"
	"testing"
)

func TestStripBotMention(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain mention", "<@123> hello", " hello"},
		{"nickname mention", "<@!123> hello", " hello"},
		{"no mention", "hello there", "hello there"},
		{"other user mention kept", "<@456> hello", "<@456> hello"},
		{"mention mid-text", "hey <@123>, you there?", "hey , you there?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripBotMention(tt.content, "123"); got != tt.want {
				t.Errorf("stripBotMention(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short message untouched", func(t *testing.T) {
		chunks := splitMessage("hello", 2000)
		if len(chunks) != 1 || chunks[0] != "hello" {
			t.Errorf("chunks = %v", chunks)
		}
	})

	t.Run("long message split within limit", func(t *testing.T) {
		text := strings.Repeat("a", 4500)
		chunks := splitMessage(text, 2000)
		if len(chunks) != 3 {
			t.Fatalf("got %d chunks, want 3", len(chunks))
		}
		var total int
		for i, c := range chunks {
			if len(c) > 2000 {
				t.Errorf("chunk %d has %d chars, exceeds limit", i, len(c))
			}
			total += len(c)
		}
		if total != len(text) {
			t.Errorf("chunks cover %d chars, want %d", total, len(text))
		}
	})

	t.Run("prefers newline boundaries", func(t *testing.T) {
		text := strings.Repeat("b", 1500) + "\n" + strings.Repeat("c", 1000)
		chunks := splitMessage(text, 2000)
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(chunks))
		}
		if !strings.HasSuffix(chunks[0], "\n") {
			t.Error("first chunk does not end at the newline boundary")
		}
	})
}
