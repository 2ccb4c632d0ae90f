package model

import "time"

// Fixed question type ids with special handling.
const (
	// TypeSentenceOrdering is 問題8; answer order is part of the question.
	TypeSentenceOrdering int64 = 8
	// TypeReading is 問題9; its questions hang off a reading passage.
	TypeReading int64 = 9
)

// PresetMixedChapter selects the mixed-template mock exam.
const PresetMixedChapter = "mixed_chapter"

// TypeQuota is the number of questions the mixed template draws for one type.
type TypeQuota struct {
	TypeID int64
	Count  int
}

// MixedTemplateQuotas lists the mixed-template quotas in type order.
// The type 9 count is advisory: the chosen passage is always taken whole.
var MixedTemplateQuotas = []TypeQuota{
	{1, 5}, {2, 5}, {3, 5}, {4, 7}, {5, 5}, {6, 5}, {7, 12}, {8, 5}, {9, 5},
}

// MixedTemplateTotal returns the nominal size of a mixed-template session.
func MixedTemplateTotal() int {
	n := 0
	for _, q := range MixedTemplateQuotas {
		n += q.Count
	}
	return n
}

// Chapter groups questions thematically.
type Chapter struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	OrderNum      int    `json:"order_num"`
	QuestionCount int    `json:"question_count"`
}

// QuestionType is one of the nine fixed exam sections.
type QuestionType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	NameJa        string `json:"name_ja"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

// ReadingPassage is a text owning a set of reading questions.
type ReadingPassage struct {
	ID            int64   `json:"id"`
	ChapterID     int64   `json:"chapter_id"`
	Title         *string `json:"title"`
	Content       string  `json:"content"`
	ChapterName   string  `json:"chapter_name,omitempty"`
	QuestionCount int     `json:"question_count"`
}

// Question is a single multiple-choice item.
type Question struct {
	ID             int64    `json:"id"`
	ChapterID      int64    `json:"chapter_id"`
	TypeID         int64    `json:"type_id"`
	PassageID      *int64   `json:"passage_id"`
	Content        string   `json:"content"`
	OrderInPassage int      `json:"order_in_passage"`
	Explanation    *string  `json:"explanation"`
	ChapterName    string   `json:"chapter_name,omitempty"`
	TypeName       string   `json:"type_name,omitempty"`
	PassageTitle   *string  `json:"passage_title,omitempty"`
	Answers        []Answer `json:"answers"`
}

// Answer is one option of a question.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"is_correct"`
}

// TrainingSession is one quiz attempt.
type TrainingSession struct {
	ID             string
	StartedAt      time.Time
	Preset         string
	TypeFilter     *int64
	ChapterFilter  []int64
	TotalQuestions int
	CurrentIndex   int
	Completed      bool
}

// SessionQuestion is a question materialized at a fixed position of a session.
type SessionQuestion struct {
	ID           int64
	SessionID    string
	QuestionID   int64
	DisplayOrder int
	AnswerOrder  []int64
	UserAnswerID *int64
	IsCorrect    *bool
	AnsweredAt   *time.Time
}

// Answered reports whether the question already has a recorded answer.
func (sq SessionQuestion) Answered() bool {
	return sq.UserAnswerID != nil
}

// Candidate is the minimal projection of a question the session builder works on.
type Candidate struct {
	QuestionID     int64
	TypeID         int64
	PassageID      *int64
	OrderInPassage int
}

// Selection describes which questions a new session draws from.
type Selection struct {
	Preset     string
	TypeID     *int64
	ChapterIDs []int64
	Limit      int // 0 means no limit
}

// SessionQuestionDetail joins a session question with its catalog data.
type SessionQuestionDetail struct {
	SessionQuestion
	Content        string
	Explanation    *string
	TypeID         int64
	TypeName       string
	TypeNameJa     string
	PassageID      *int64
	PassageTitle   *string
	PassageContent *string
}

// ResultRow is one line of a session's results.
type ResultRow struct {
	DisplayOrder         int
	QuestionContent      string
	Explanation          *string
	TypeName             string
	TypeNameJa           string
	UserAnswerID         *int64
	UserAnswerContent    *string
	CorrectAnswerContent *string
	IsCorrect            *bool
}

// ServerConfig holds runtime HTTP parameters set via CLI flags.
type ServerConfig struct {
	BasePath       string   // URL prefix for sub-path deployments
	AllowedOrigins []string // CORS origins for the UI
	Lang           string   // message language (ru, en, ja)
}

// AnswerOutcome is the session state right after an answer was recorded.
type AnswerOutcome struct {
	AnsweredCount int
	Completed     bool
	NextIndex     *int // first unanswered position, nil when none remain
}
