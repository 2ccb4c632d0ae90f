package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pavelanni/jlptquiz/internal/model"
)

const defaultChapter = "General"

var typeDigits = regexp.MustCompile(`\d+`)

// typeRef accepts 3, "3" or "mondai3".
type typeRef struct {
	id  int64
	set bool
}

func (t *typeRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		t.id, t.set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("type must be a number or string, got %s", data)
	}
	m := typeDigits.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return fmt.Errorf("type %q: %w", s, err)
	}
	t.id, t.set = n, true
	return nil
}

// rawAnswer accepts {"content": "...", "isCorrect": true} or a plain string.
type rawAnswer struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
	Correct   bool   `json:"correct"`
	plain     bool
}

func (a *rawAnswer) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		a.plain = true
		return json.Unmarshal(data, &a.Content)
	}
	type obj rawAnswer
	var o obj
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*a = rawAnswer(o)
	return nil
}

type rawQuestion struct {
	Type          typeRef     `json:"type"`
	Content       string      `json:"content"`
	Explanation   *string     `json:"explanation"`
	Order         int         `json:"order"`
	Answers       []rawAnswer `json:"answers"`
	CorrectAnswer int         `json:"correctAnswer"` // 1-based, for plain string answers
}

type rawItem struct {
	rawQuestion
	Chapter        string        `json:"chapter"`
	PassageTitle   *string       `json:"passageTitle"`
	PassageContent string        `json:"passageContent"`
	Questions      []rawQuestion `json:"questions"`
}

func (q rawQuestion) toModel(defaultType int64) model.Question {
	typeID := defaultType
	if q.Type.set {
		typeID = q.Type.id
	}
	out := model.Question{
		TypeID:         typeID,
		Content:        q.Content,
		Explanation:    q.Explanation,
		OrderInPassage: q.Order,
		Answers:        make([]model.Answer, 0, len(q.Answers)),
	}
	for i, a := range q.Answers {
		correct := a.IsCorrect || a.Correct
		if a.plain {
			correct = q.CorrectAnswer == i+1
		}
		out.Answers = append(out.Answers, model.Answer{Content: a.Content, IsCorrect: correct})
	}
	return out
}

// Parse decodes a catalog file: a JSON array whose items are standalone
// questions, passages with their questions, or bare {"chapter": ...}
// entries that only declare a chapter.
func Parse(data []byte) ([]model.CatalogItem, error) {
	var raw []rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidCatalog, err)
	}

	items := make([]model.CatalogItem, 0, len(raw))
	for _, r := range raw {
		item := model.CatalogItem{Chapter: r.Chapter}
		if item.Chapter == "" {
			item.Chapter = defaultChapter
		}
		switch {
		case r.PassageContent != "":
			item.Passage = &model.ReadingPassage{Title: r.PassageTitle, Content: r.PassageContent}
			for _, q := range r.Questions {
				item.Questions = append(item.Questions, q.toModel(model.TypeReading))
			}
		case r.Content != "" || len(r.Answers) > 0:
			item.Questions = []model.Question{r.rawQuestion.toModel(1)}
		}
		items = append(items, item)
	}
	return items, nil
}
