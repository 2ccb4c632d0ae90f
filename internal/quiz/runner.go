package quiz

import (
	"context"
	"fmt"
	"slices"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// Runner serves and advances persisted sessions.
type Runner struct {
	store Store
}

// NewRunner returns a runner over st.
func NewRunner(st Store) *Runner {
	return &Runner{store: st}
}

// clampIndex bounds i to the positions of a session with total questions.
func clampIndex(i, total int) int {
	if i >= total {
		i = total - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// answerLabel names the answer at a displayed position: A, B, C...
func answerLabel(pos int) string {
	return string(rune('A' + pos))
}

// QuestionAt returns the question at index, or at the session cursor when
// index is nil. The index is clamped into range and becomes the new cursor.
func (r *Runner) QuestionAt(ctx context.Context, sessionID string, index *int) (model.QuestionView, error) {
	var view model.QuestionView

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return view, err
	}

	idx := sess.CurrentIndex
	if index != nil {
		idx = *index
	}
	idx = clampIndex(idx, sess.TotalQuestions)
	if idx != sess.CurrentIndex {
		if err := r.store.SetCurrentIndex(ctx, sessionID, idx); err != nil {
			return view, fmt.Errorf("set current index: %w", err)
		}
	}

	d, err := r.store.GetSessionQuestion(ctx, sessionID, idx)
	if err != nil {
		return view, err
	}

	answers, err := r.store.AnswersByID(ctx, d.AnswerOrder)
	if err != nil {
		return view, fmt.Errorf("load answers: %w", err)
	}
	options := make([]model.AnswerOption, 0, len(d.AnswerOrder))
	for pos, id := range d.AnswerOrder {
		a, ok := answers[id]
		if !ok {
			return view, fmt.Errorf("session %s position %d: answer %d is missing", sessionID, idx, id)
		}
		options = append(options, model.AnswerOption{ID: a.ID, Content: a.Content, Label: answerLabel(pos)})
	}

	view = model.QuestionView{
		SessionID:      sessionID,
		CurrentIndex:   idx,
		TotalQuestions: sess.TotalQuestions,
		Completed:      sess.Completed,
		Question: model.QuestionBody{
			Content: d.Content,
			Type:    d.TypeName,
			TypeJa:  d.TypeNameJa,
			Answers: options,
		},
	}

	if d.PassageID != nil {
		positions, err := r.store.PassagePositions(ctx, sessionID, *d.PassageID)
		if err != nil {
			return view, fmt.Errorf("passage positions: %w", err)
		}
		info := &model.PassageInfo{
			Title:            d.PassageTitle,
			CurrentInPassage: slices.Index(positions, idx) + 1,
			TotalInPassage:   len(positions),
		}
		if d.PassageContent != nil {
			info.Content = *d.PassageContent
		}
		view.Passage = info
	}

	if d.Answered() {
		correct, err := r.store.CorrectAnswer(ctx, d.QuestionID)
		if err != nil {
			return view, fmt.Errorf("correct answer: %w", err)
		}
		state := &model.AnswerState{
			UserAnswerID: *d.UserAnswerID,
			IsCorrect:    d.IsCorrect != nil && *d.IsCorrect,
			Explanation:  d.Explanation,
		}
		if correct != nil {
			state.CorrectAnswerID = &correct.ID
		}
		view.Answer = state
	}

	return view, nil
}

// Submit records the answer for the question at index, or at the session
// cursor when index is nil. Each question accepts exactly one answer.
func (r *Runner) Submit(ctx context.Context, sessionID string, answerID int64, index *int) (model.AnswerResult, error) {
	var res model.AnswerResult

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return res, err
	}

	idx := sess.CurrentIndex
	if index != nil {
		idx = *index
	}
	if idx < 0 || idx >= sess.TotalQuestions {
		return res, model.ErrIndexOutOfRange
	}

	d, err := r.store.GetSessionQuestion(ctx, sessionID, idx)
	if err != nil {
		return res, err
	}
	if d.Answered() {
		return res, model.ErrAlreadyAnswered
	}

	chosen, err := r.store.QuestionAnswer(ctx, d.QuestionID, answerID)
	if err != nil {
		return res, err
	}
	correct, err := r.store.CorrectAnswer(ctx, d.QuestionID)
	if err != nil {
		return res, fmt.Errorf("correct answer: %w", err)
	}

	out, err := r.store.RecordAnswer(ctx, sessionID, idx, chosen.ID, chosen.IsCorrect)
	if err != nil {
		return res, err
	}

	res = model.AnswerResult{
		IsCorrect:      chosen.IsCorrect,
		Explanation:    d.Explanation,
		HasNext:        out.NextIndex != nil,
		NextIndex:      out.NextIndex,
		AnsweredCount:  out.AnsweredCount,
		TotalQuestions: sess.TotalQuestions,
		Completed:      out.Completed,
	}
	if correct != nil {
		res.CorrectAnswerID = &correct.ID
		res.CorrectAnswerContent = &correct.Content
	}
	return res, nil
}

// Summary returns the progress map of a session.
func (r *Runner) Summary(ctx context.Context, sessionID string) (model.SessionSummary, error) {
	var sum model.SessionSummary

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return sum, err
	}
	questions, err := r.store.ListSessionQuestions(ctx, sessionID)
	if err != nil {
		return sum, fmt.Errorf("list session questions: %w", err)
	}

	sum = model.SessionSummary{
		SessionID:      sessionID,
		TotalQuestions: sess.TotalQuestions,
		Completed:      sess.Completed,
		CurrentIndex:   clampIndex(sess.CurrentIndex, sess.TotalQuestions),
		Questions:      make([]model.QuestionStatus, 0, len(questions)),
	}
	for _, sq := range questions {
		answered := sq.Answered()
		if answered {
			sum.AnsweredQuestions++
		} else if sum.FirstUnansweredIndex == nil {
			first := sq.DisplayOrder
			sum.FirstUnansweredIndex = &first
		}
		sum.Questions = append(sum.Questions, model.QuestionStatus{
			Index:     sq.DisplayOrder,
			Answered:  answered,
			IsCorrect: sq.IsCorrect != nil && *sq.IsCorrect,
		})
	}
	return sum, nil
}

// Results returns the score sheet of a session. Unanswered questions count
// as incorrect.
func (r *Runner) Results(ctx context.Context, sessionID string) (model.SessionResults, error) {
	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.SessionResults{}, err
	}
	rows, err := r.store.ListResultRows(ctx, sessionID)
	if err != nil {
		return model.SessionResults{}, fmt.Errorf("list results: %w", err)
	}
	return model.NewSessionResults(sess, rows), nil
}
