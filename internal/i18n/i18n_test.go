package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "JLPT N2 Trainer" {
		t.Errorf("T(AppTitle) = %q, want 'JLPT N2 Trainer'", got)
	}

	got = T(ctx, "AlreadyAnswered")
	if got != "Question already answered" {
		t.Errorf("T(AlreadyAnswered) = %q, want 'Question already answered'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "SessionNotFound")
	if got != "Сессия не найдена" {
		t.Errorf("T(SessionNotFound) = %q, want 'Сессия не найдена'", got)
	}
}

func TestTranslateJapanese(t *testing.T) {
	ctx := initLang(t, "ja")

	got := T(ctx, "AlreadyAnswered")
	if got != "この問題はすでに回答済みです" {
		t.Errorf("T(AlreadyAnswered) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsImported", 1)
	if got1 != "1 question imported." {
		t.Errorf("Tp(QuestionsImported, 1) = %q, want '1 question imported.'", got1)
	}

	got5 := Tp(ctx, "QuestionsImported", 5)
	if got5 != "5 questions imported." {
		t.Errorf("Tp(QuestionsImported, 5) = %q, want '5 questions imported.'", got5)
	}
}

func TestRussianPlural(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		count int
		want  string
	}{
		{1, "Импортирован 1 вопрос."},
		{3, "Импортировано 3 вопроса."},
		{5, "Импортировано 5 вопросов."},
	}
	for _, tt := range tests {
		if got := Tp(ctx, "QuestionsImported", tt.count); got != tt.want {
			t.Errorf("Tp(QuestionsImported, %d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ImportSkipped", map[string]any{"Path": "n2.json"})
	if got != "n2.json is already imported, skipping" {
		t.Errorf("Td(ImportSkipped) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}

	got = TOr(ctx, "NonExistentKey", "fallback text")
	if got != "fallback text" {
		t.Errorf("TOr(NonExistentKey) = %q, want 'fallback text'", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	if err := Init("ru"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("ru")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "SessionNotFound")
	}))

	tests := []struct {
		accept string
		want   string
	}{
		{"", "Сессия не найдена"},
		{"ja,en;q=0.8", "セッションが見つかりません"},
		{"en-US", "Session not found"},
		{"de", "Сессия не найдена"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept-Language", tt.accept)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("Accept-Language %q: got %q, want %q", tt.accept, got, tt.want)
		}
	}
}
