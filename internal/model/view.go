package model

import (
	"math"
	"time"
)

// CreatedSession is returned when a new session has been persisted.
type CreatedSession struct {
	SessionID      string `json:"sessionId"`
	TotalQuestions int    `json:"totalQuestions"`
}

// AnswerOption is one answer as displayed, labeled by its frozen position.
type AnswerOption struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Label   string `json:"label"`
}

// QuestionBody is the displayable part of a question.
type QuestionBody struct {
	Content string         `json:"content"`
	Type    string         `json:"type"`
	TypeJa  string         `json:"typeJa"`
	Answers []AnswerOption `json:"answers"`
}

// PassageInfo places a question inside its reading passage as it appears in the session.
type PassageInfo struct {
	Content          string  `json:"content"`
	Title            *string `json:"title"`
	CurrentInPassage int     `json:"currentInPassage"`
	TotalInPassage   int     `json:"totalInPassage"`
}

// AnswerState is the recorded outcome of an answered question.
type AnswerState struct {
	UserAnswerID    int64   `json:"userAnswerId"`
	IsCorrect       bool    `json:"isCorrect"`
	CorrectAnswerID *int64  `json:"correctAnswerId"`
	Explanation     *string `json:"explanation"`
}

// QuestionView is the question at one position of a session.
type QuestionView struct {
	SessionID      string       `json:"sessionId"`
	CurrentIndex   int          `json:"currentIndex"`
	TotalQuestions int          `json:"totalQuestions"`
	Completed      bool         `json:"completed"`
	Question       QuestionBody `json:"question"`
	Passage        *PassageInfo `json:"passage"`
	Answer         *AnswerState `json:"answer"`
}

// AnswerResult is returned after an answer has been recorded.
type AnswerResult struct {
	IsCorrect            bool    `json:"isCorrect"`
	CorrectAnswerID      *int64  `json:"correctAnswerId"`
	CorrectAnswerContent *string `json:"correctAnswerContent"`
	Explanation          *string `json:"explanation"`
	HasNext              bool    `json:"hasNext"`
	NextIndex            *int    `json:"nextIndex"`
	AnsweredCount        int     `json:"answeredCount"`
	TotalQuestions       int     `json:"totalQuestions"`
	Completed            bool    `json:"completed"`
}

// QuestionStatus is the compact state of one position, for navigation maps.
type QuestionStatus struct {
	Index     int  `json:"index"`
	Answered  bool `json:"answered"`
	IsCorrect bool `json:"isCorrect"`
}

// SessionSummary is the progress overview of a session.
type SessionSummary struct {
	SessionID            string           `json:"sessionId"`
	TotalQuestions       int              `json:"totalQuestions"`
	AnsweredQuestions    int              `json:"answeredQuestions"`
	Completed            bool             `json:"completed"`
	CurrentIndex         int              `json:"currentIndex"`
	FirstUnansweredIndex *int             `json:"firstUnansweredIndex"`
	Questions            []QuestionStatus `json:"questions"`
}

// ResultDetail is one question of the results page.
type ResultDetail struct {
	QuestionContent string  `json:"questionContent"`
	Type            string  `json:"type"`
	TypeJa          string  `json:"typeJa"`
	UserAnswer      *string `json:"userAnswer"`
	CorrectAnswer   *string `json:"correctAnswer"`
	IsCorrect       bool    `json:"isCorrect"`
	Explanation     *string `json:"explanation"`
}

// SessionResults is the score sheet of a session, complete or not.
type SessionResults struct {
	SessionID         string         `json:"sessionId"`
	Completed         bool           `json:"completed"`
	TotalQuestions    int            `json:"totalQuestions"`
	AnsweredQuestions int            `json:"answeredQuestions"`
	CorrectAnswers    int            `json:"correctAnswers"`
	Percentage        int            `json:"percentage"`
	StartedAt         time.Time      `json:"startedAt"`
	Details           []ResultDetail `json:"details"`
}

// NewSessionResults scores a session from its result rows.
func NewSessionResults(sess TrainingSession, rows []ResultRow) SessionResults {
	res := SessionResults{
		SessionID:      sess.ID,
		Completed:      sess.Completed,
		TotalQuestions: sess.TotalQuestions,
		StartedAt:      sess.StartedAt,
		Details:        make([]ResultDetail, 0, len(rows)),
	}
	for _, r := range rows {
		correct := r.IsCorrect != nil && *r.IsCorrect
		if r.UserAnswerID != nil {
			res.AnsweredQuestions++
		}
		if correct {
			res.CorrectAnswers++
		}
		res.Details = append(res.Details, ResultDetail{
			QuestionContent: r.QuestionContent,
			Type:            r.TypeName,
			TypeJa:          r.TypeNameJa,
			UserAnswer:      r.UserAnswerContent,
			CorrectAnswer:   r.CorrectAnswerContent,
			IsCorrect:       correct,
			Explanation:     r.Explanation,
		})
	}
	res.Percentage = Percentage(res.CorrectAnswers, res.TotalQuestions)
	return res
}

// Percentage returns correct/total as a rounded percentage; 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
