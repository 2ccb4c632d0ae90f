package quiz

import (
	"context"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// Store is the persistence the session engine needs.
type Store interface {
	ListCandidates(ctx context.Context, typeID *int64, chapterIDs []int64) ([]model.Candidate, error)
	ListStandaloneByType(ctx context.Context, typeID int64) ([]model.Candidate, error)
	ListPassageIDsWithType(ctx context.Context, typeID int64) ([]int64, error)
	ListPassageQuestions(ctx context.Context, passageID, typeID int64) ([]model.Candidate, error)
	AnswerIDs(ctx context.Context, questionIDs []int64) (map[int64][]int64, error)
	CreateSession(ctx context.Context, sess model.TrainingSession, questions []model.SessionQuestion) error

	GetSession(ctx context.Context, id string) (model.TrainingSession, error)
	SetCurrentIndex(ctx context.Context, id string, index int) error
	GetSessionQuestion(ctx context.Context, sessionID string, displayOrder int) (model.SessionQuestionDetail, error)
	ListSessionQuestions(ctx context.Context, sessionID string) ([]model.SessionQuestion, error)
	PassagePositions(ctx context.Context, sessionID string, passageID int64) ([]int, error)
	AnswersByID(ctx context.Context, ids []int64) (map[int64]model.Answer, error)
	QuestionAnswer(ctx context.Context, questionID, answerID int64) (model.Answer, error)
	CorrectAnswer(ctx context.Context, questionID int64) (*model.Answer, error)
	RecordAnswer(ctx context.Context, sessionID string, displayOrder int, answerID int64, isCorrect bool) (model.AnswerOutcome, error)
	ListResultRows(ctx context.Context, sessionID string) ([]model.ResultRow, error)
}
