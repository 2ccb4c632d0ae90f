package prompts

import (
	"strings"
	"testing"

	"github.com/pavelanni/jlptquiz/internal/model"
)

func TestBuildExplainPrompt(t *testing.T) {
	if err := Load(Templates); err != nil {
		t.Fatalf("Load: %v", err)
	}
	q := model.Question{
		TypeName: "Orthography",
		Content:  "この<question>書類</question>をていしゅつしてください。",
		Answers: []model.Answer{
			{Content: "提出", IsCorrect: true},
			{Content: "堤出"},
			{Content: "提主"},
			{Content: "低出"},
		},
	}

	tests := []struct {
		lang   string
		marker string
	}{
		{"en", "A. 提出 (correct)"},
		{"ru", "A. 提出 (правильный)"},
		{"ja", "A. 提出 (正解)"},
		{"de", "A. 提出 (correct)"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			prompt, err := BuildExplainPrompt(tt.lang, q, nil)
			if err != nil {
				t.Fatalf("BuildExplainPrompt: %v", err)
			}
			if !strings.Contains(prompt, tt.marker) {
				t.Errorf("prompt missing %q:\n%s", tt.marker, prompt)
			}
			if !strings.Contains(prompt, "D. 低出") {
				t.Error("all options should be listed")
			}
			if !strings.Contains(prompt, "この書類をていしゅつしてください。") {
				t.Error("question text should be stripped of delimiter tags")
			}
			if !strings.Contains(prompt, "Orthography") {
				t.Error("prompt should name the question type")
			}
		})
	}
}

func TestIsValidLanguage(t *testing.T) {
	for _, lang := range []string{"en", "ru", "ja"} {
		if !IsValidLanguage(lang) {
			t.Errorf("IsValidLanguage(%q) = false", lang)
		}
	}
	if IsValidLanguage("de") {
		t.Error("IsValidLanguage(de) = true")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  日本語  ", "日本語"},
		{"tags", "<Passage>a</passage ><question x='1'>b", "ab"},
		{"other tags kept", "<b>x</b>", "<b>x</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize(tt.in); got != tt.want {
				t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := strings.Repeat("あ", maxTextRunes+10)
	got := sanitize(long)
	if !strings.HasSuffix(got, "[truncated]") {
		t.Error("long text should be truncated")
	}
}
