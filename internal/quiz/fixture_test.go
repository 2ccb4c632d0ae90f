package quiz

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pavelanni/jlptquiz/internal/model"
	"github.com/pavelanni/jlptquiz/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedSeed makes every build of a test deterministic.
func fixedSeed(a, b uint64) SeedFunc {
	return func() (uint64, uint64) { return a, b }
}

func addChapter(t *testing.T, s *store.Store, name string) int64 {
	t.Helper()
	c, err := s.CreateChapter(context.Background(), name)
	require.NoError(t, err)
	return c.ID
}

// addQuestions inserts n standalone questions of a type, each with four
// answers of which the first is correct.
func addQuestions(t *testing.T, s *store.Store, chapterID, typeID int64, n int) []int64 {
	t.Helper()
	var ids []int64
	for i := range n {
		content := fmt.Sprintf("type %d question %d", typeID, i)
		id, err := s.CreateQuestion(context.Background(), model.Question{
			ChapterID: chapterID,
			TypeID:    typeID,
			Content:   content,
			Answers: []model.Answer{
				{Content: content + " / 1", IsCorrect: true},
				{Content: content + " / 2"},
				{Content: content + " / 3"},
				{Content: content + " / 4"},
			},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// addPassage inserts a passage with n type 9 questions. Questions are
// inserted in reverse so that passage order differs from id order.
func addPassage(t *testing.T, s *store.Store, chapterID int64, n int) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	p, err := s.CreatePassage(ctx, model.ReadingPassage{ChapterID: chapterID, Content: "本文"})
	require.NoError(t, err)
	ids := make([]int64, n)
	for i := n - 1; i >= 0; i-- {
		id, err := s.CreateQuestion(ctx, model.Question{
			ChapterID:      chapterID,
			TypeID:         model.TypeReading,
			PassageID:      &p.ID,
			OrderInPassage: i + 1,
			Content:        fmt.Sprintf("passage %d question %d", p.ID, i+1),
			Answers: []model.Answer{
				{Content: "a", IsCorrect: true},
				{Content: "b"},
				{Content: "c"},
			},
		})
		require.NoError(t, err)
		ids[i] = id
	}
	return p.ID, ids
}

// sessionQuestionIDs returns the question ids of a session in display order.
func sessionQuestionIDs(t *testing.T, s *store.Store, sessionID string) []int64 {
	t.Helper()
	sqs, err := s.ListSessionQuestions(context.Background(), sessionID)
	require.NoError(t, err)
	ids := make([]int64, len(sqs))
	for i, sq := range sqs {
		require.Equal(t, i, sq.DisplayOrder)
		ids[i] = sq.QuestionID
	}
	return ids
}

func answerByCorrectness(t *testing.T, s *store.Store, questionID int64, correct bool) int64 {
	t.Helper()
	q, err := s.GetQuestion(context.Background(), questionID)
	require.NoError(t, err)
	for _, a := range q.Answers {
		if a.IsCorrect == correct {
			return a.ID
		}
	}
	t.Fatalf("question %d has no answer with correctness %v", questionID, correct)
	return 0
}

func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }
