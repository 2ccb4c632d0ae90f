package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/jlptquiz/internal/model"
)

//go:embed templates/*.txt
var Templates embed.FS

// Languages with an explanation template.
var Languages = []string{"en", "ru", "ja"}

const maxTextRunes = 4000

var tagRegex = regexp.MustCompile(`(?i)</?\s*(passage|question)\b[^>]*>`)

var (
	loadOnce         sync.Once
	loadErr          error
	explainTemplates map[string]*template.Template
)

// Option is one answer as shown in a prompt.
type Option struct {
	Label   string
	Content string
	Correct bool
}

// ExplainData holds template data for explanation prompts.
type ExplainData struct {
	TypeName string
	Passage  string
	Question string
	Options  []Option
}

// Load parses the explanation templates from fsys.
// Templates are parsed only once per process.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		explainTemplates = make(map[string]*template.Template)
		for _, lang := range Languages {
			file := "templates/explain_" + lang + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New("explain_" + lang).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			explainTemplates[lang] = tmpl
		}
	})
	return loadErr
}

// IsValidLanguage reports whether lang has an explanation template.
func IsValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// BuildExplainPrompt renders the explanation prompt for q in lang.
// Unknown languages fall back to English.
func BuildExplainPrompt(lang string, q model.Question, passage *model.ReadingPassage) (string, error) {
	if explainTemplates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := explainTemplates[lang]
	if !ok {
		tmpl = explainTemplates["en"]
	}

	data := ExplainData{
		TypeName: q.TypeName,
		Question: sanitize(q.Content),
	}
	if passage != nil {
		data.Passage = sanitize(passage.Content)
	}
	for i, a := range q.Answers {
		data.Options = append(data.Options, Option{
			Label:   string(rune('A' + i)),
			Content: sanitize(a.Content),
			Correct: a.IsCorrect,
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitize strips prompt delimiter tags and caps the text length.
func sanitize(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxTextRunes {
		runes := []rune(s)
		s = string(runes[:maxTextRunes]) + " [truncated]"
	}
	return s
}
