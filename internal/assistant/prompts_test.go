package assistant

import (
	"strings"
	"testing"
)

func mustPrompts(t *testing.T) *Prompts {
	t.Helper()
	p, err := DefaultPrompts()
	if err != nil {
		t.Fatalf("DefaultPrompts() error = %v", err)
	}
	return p
}

func TestPrompts_Language(t *testing.T) {
	p := mustPrompts(t)

	tests := []struct {
		hint string
		want string
	}{
		{"", "English"},
		{"   ", "English"},
		{"en", "English"},
		{"EN-US", "English"},
		{"english", "English"},
		{"en-uk", "English"},
		{"fr", "French"},
		{"French", "French"},
		{"fr-ca", "French"},
		{"fr-BE", "French"},
		{"zh", "Chinese"},
		{"zh-TW", "Chinese"},
		{"chinese", "Chinese"},
		{"de", "English"},
		{"klingon", "English"},
	}

	for _, tt := range tests {
		if got := p.Language(tt.hint); got != tt.want {
			t.Errorf("Language(%q) = %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func TestCurrency(t *testing.T) {
	tests := map[string]string{
		"":      "none",
		"  ":    "none",
		"EUR":   "EUR",
		" usd ": "usd",
	}
	for in, want := range tests {
		if got := Currency(in); got != want {
			t.Errorf("Currency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrompts_ChatSystemRendersDateAndCategories(t *testing.T) {
	p := mustPrompts(t)

	got, err := p.ChatSystem(chatPromptData{Today: "2025-06-10", Categories: "FOOD, OTHER"})
	if err != nil {
		t.Fatalf("ChatSystem() error = %v", err)
	}
	for _, want := range []string{"Today is 2025-06-10.", "Known categories: FOOD, OTHER.", "updateExpenseByDateAndDescription"} {
		if !strings.Contains(got, want) {
			t.Errorf("chat prompt missing %q:\n%s", want, got)
		}
	}
}

func TestPrompts_InsightUser(t *testing.T) {
	p := mustPrompts(t)

	got, err := p.InsightUser(insightPromptData{Language: "French", Currency: "none", Summary: `{"total":1}`})
	if err != nil {
		t.Fatalf("InsightUser() error = %v", err)
	}
	for _, want := range []string{"insights in French.", "Currency: none.", `Summary: {"total":1}`} {
		if !strings.Contains(got, want) {
			t.Errorf("insight prompt missing %q:\n%s", want, got)
		}
	}
}

func TestParsePrompts_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not toml", "[chat"},
		{"missing sections", `[chat]
system = "hi"`},
		{"unknown key", `[chat]
system = "a"
colour = "blue"
[insight]
system = "b"
user = "c"
[languages]
default = "English"`},
		{"bad template", `[chat]
system = "{{.Today"
[insight]
system = "b"
user = "c"
[languages]
default = "English"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePrompts(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
