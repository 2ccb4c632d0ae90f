package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/jlptquiz/internal/model"
	"github.com/pavelanni/jlptquiz/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseFormats(t *testing.T) {
	data := []byte(`[
		{"chapter": "Глава 1", "type": 3, "content": "q1", "answers": [{"content": "a", "isCorrect": true}, {"content": "b"}]},
		{"chapter": "Глава 1", "type": "5", "content": "q2", "answers": ["x", "y", "z"], "correctAnswer": 2},
		{"type": "mondai8", "content": "q3", "explanation": "why", "answers": [{"content": "p", "correct": true}]},
		{"chapter": "Глава 2", "passageTitle": "T", "passageContent": "本文", "questions": [
			{"content": "r1", "order": 2, "answers": ["a", "b"], "correctAnswer": 1},
			{"content": "r2", "order": 1, "type": 9, "answers": [{"content": "c", "isCorrect": true}]}
		]},
		{"chapter": "Глава 3"}
	]`)

	items, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}

	tests := []struct {
		name        string
		item        model.CatalogItem
		wantChapter string
		wantType    int64
		wantCorrect []bool
	}{
		{"number type", items[0], "Глава 1", 3, []bool{true, false}},
		{"string type with plain answers", items[1], "Глава 1", 5, []bool{false, true, false}},
		{"mondai type default chapter", items[2], "General", 8, []bool{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.item.Chapter != tt.wantChapter {
				t.Errorf("chapter = %q, want %q", tt.item.Chapter, tt.wantChapter)
			}
			if len(tt.item.Questions) != 1 {
				t.Fatalf("expected 1 question, got %d", len(tt.item.Questions))
			}
			q := tt.item.Questions[0]
			if q.TypeID != tt.wantType {
				t.Errorf("type = %d, want %d", q.TypeID, tt.wantType)
			}
			if len(q.Answers) != len(tt.wantCorrect) {
				t.Fatalf("expected %d answers, got %d", len(tt.wantCorrect), len(q.Answers))
			}
			for i, want := range tt.wantCorrect {
				if q.Answers[i].IsCorrect != want {
					t.Errorf("answer %d correct = %v, want %v", i, q.Answers[i].IsCorrect, want)
				}
			}
		})
	}

	passage := items[3]
	if passage.Passage == nil || passage.Passage.Content != "本文" || *passage.Passage.Title != "T" {
		t.Fatalf("unexpected passage %+v", passage.Passage)
	}
	if len(passage.Questions) != 2 {
		t.Fatalf("expected 2 passage questions, got %d", len(passage.Questions))
	}
	for _, q := range passage.Questions {
		if q.TypeID != model.TypeReading {
			t.Errorf("passage question type = %d, want 9", q.TypeID)
		}
	}
	if passage.Questions[0].OrderInPassage != 2 || !passage.Questions[0].Answers[0].IsCorrect {
		t.Errorf("unexpected first passage question %+v", passage.Questions[0])
	}

	if items[4].Chapter != "Глава 3" || len(items[4].Questions) != 0 || items[4].Passage != nil {
		t.Errorf("expected chapter-only item, got %+v", items[4])
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an array", `{"chapter": "x"}`},
		{"bad type", `[{"type": true, "content": "q"}]`},
		{"broken json", `[{"content": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, model.ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestLoadFileGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chapter1.json")
	content := `[{"chapter": "Глава 1", "type": 1, "content": "q", "answers": [{"content": "a", "isCorrect": true}]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res, err := LoadFile(ctx, s, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if res.Status != Imported || res.Questions != 1 {
		t.Errorf("unexpected first result %+v", res)
	}

	res, err = LoadFile(ctx, s, path)
	if err != nil {
		t.Fatalf("LoadFile again: %v", err)
	}
	if res.Status != Unchanged {
		t.Errorf("expected Unchanged, got %v", res.Status)
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, err = LoadFile(ctx, s, path)
	if err != nil {
		t.Fatalf("LoadFile changed: %v", err)
	}
	if res.Status != Changed {
		t.Errorf("expected Changed, got %v", res.Status)
	}

	qs, _ := s.ListQuestions(ctx)
	if len(qs) != 1 {
		t.Errorf("expected 1 question after guarded imports, got %d", len(qs))
	}
}

func TestLoadInvalidQuestion(t *testing.T) {
	s := newTestStore(t)
	data := []byte(`[{"chapter": "Глава 1", "type": 12, "content": "q", "answers": [{"content": "a", "isCorrect": true}]}]`)
	_, err := Load(context.Background(), s, "bad.json", data)
	if !errors.Is(err, model.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestLoadSample(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := LoadSample(ctx, s)
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if res.Questions != 5 || res.Passages != 1 {
		t.Errorf("unexpected sample result %+v", res)
	}

	chapters, err := s.ListChapters(ctx)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	for i, c := range chapters {
		if c.OrderNum != i+1 {
			t.Errorf("chapter %q order = %d, want %d", c.Name, c.OrderNum, i+1)
		}
	}

	res, err = LoadSample(ctx, s)
	if err != nil {
		t.Fatalf("LoadSample again: %v", err)
	}
	if res.Status != Unchanged {
		t.Errorf("expected sample to be skipped, got %v", res.Status)
	}
}
