package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/jlptquiz/internal/model"
)

func scanCandidates(rows *sql.Rows) ([]model.Candidate, error) {
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.QuestionID, &c.TypeID, &c.PassageID, &c.OrderInPassage); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCandidates returns the questions matching the filters in staging
// order: standalone questions first, then by passage and position in it.
func (s *Store) ListCandidates(ctx context.Context, typeID *int64, chapterIDs []int64) ([]model.Candidate, error) {
	var conds []string
	var args []any
	if typeID != nil {
		conds = append(conds, "q.type_id = ?")
		args = append(args, *typeID)
	}
	if len(chapterIDs) > 0 {
		conds = append(conds, "q.chapter_id IN ("+placeholders(len(chapterIDs))+")")
		args = append(args, int64Args(chapterIDs)...)
	}
	query := `SELECT q.id, q.type_id, q.passage_id, q.order_in_passage FROM questions q`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY q.passage_id, q.order_in_passage, q.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

// ListStandaloneByType returns the questions of a type that have no passage.
func (s *Store) ListStandaloneByType(ctx context.Context, typeID int64) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type_id, passage_id, order_in_passage FROM questions
		 WHERE type_id = ? AND passage_id IS NULL ORDER BY id`, typeID)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

// ListPassageIDsWithType returns the passages owning at least one question of the type.
func (s *Store) ListPassageIDsWithType(ctx context.Context, typeID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT passage_id FROM questions
		 WHERE type_id = ? AND passage_id IS NOT NULL ORDER BY passage_id`, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPassageQuestions returns a passage's questions of a type in passage order.
func (s *Store) ListPassageQuestions(ctx context.Context, passageID, typeID int64) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type_id, passage_id, order_in_passage FROM questions
		 WHERE passage_id = ? AND type_id = ? ORDER BY order_in_passage, id`, passageID, typeID)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

// AnswerIDs returns the answer ids of each question in stored order.
func (s *Store) AnswerIDs(ctx context.Context, questionIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, id FROM answers WHERE question_id IN (`+placeholders(len(questionIDs))+`)
		 ORDER BY question_id, id`, int64Args(questionIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var qid, aid int64
		if err := rows.Scan(&qid, &aid); err != nil {
			return nil, err
		}
		out[qid] = append(out[qid], aid)
	}
	return out, rows.Err()
}

// CreateSession stores a session and all of its questions in one transaction.
func (s *Store) CreateSession(ctx context.Context, sess model.TrainingSession, questions []model.SessionQuestion) error {
	if sess.TotalQuestions != len(questions) {
		return fmt.Errorf("session %s: total %d does not match %d questions", sess.ID, sess.TotalQuestions, len(questions))
	}
	var chapterFilter *string
	if len(sess.ChapterFilter) > 0 {
		enc, err := encodeIDs(sess.ChapterFilter)
		if err != nil {
			return err
		}
		chapterFilter = &enc
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO training_sessions (id, started_at, preset, type_filter, chapter_filter, total_questions, current_index, completed)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0)`,
		sess.ID, sess.StartedAt.UTC(), sess.Preset, sess.TypeFilter, chapterFilter, sess.TotalQuestions,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, sq := range questions {
		if sq.DisplayOrder != i {
			return fmt.Errorf("session %s: question %d has display order %d", sess.ID, i, sq.DisplayOrder)
		}
		order, err := encodeIDs(sq.AnswerOrder)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_questions (session_id, question_id, display_order, shuffled_answer_order)
			 VALUES (?, ?, ?, ?)`,
			sess.ID, sq.QuestionID, sq.DisplayOrder, order,
		); err != nil {
			return fmt.Errorf("insert session question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("session created", "id", sess.ID, "preset", sess.Preset, "questions", sess.TotalQuestions)
	return nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (model.TrainingSession, error) {
	return getSession(ctx, s.db, id)
}

const sessionColumns = `id, started_at, preset, type_filter, chapter_filter, total_questions, current_index, completed`

func scanSession(sc interface{ Scan(...any) error }) (model.TrainingSession, error) {
	var sess model.TrainingSession
	var chapterFilter sql.NullString
	err := sc.Scan(&sess.ID, &sess.StartedAt, &sess.Preset, &sess.TypeFilter, &chapterFilter,
		&sess.TotalQuestions, &sess.CurrentIndex, &sess.Completed)
	if err != nil {
		return sess, err
	}
	if chapterFilter.Valid && chapterFilter.String != "" {
		if sess.ChapterFilter, err = decodeIDs(chapterFilter.String); err != nil {
			return sess, err
		}
	}
	return sess, nil
}

func getSession(ctx context.Context, q queryer, id string) (model.TrainingSession, error) {
	sess, err := scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sess, model.ErrSessionNotFound
	}
	return sess, err
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]model.TrainingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.TrainingSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetCurrentIndex moves a session's cursor.
func (s *Store) SetCurrentIndex(ctx context.Context, id string, index int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE training_sessions SET current_index = ? WHERE id = ?`, index, id)
	if err != nil {
		return err
	}
	return requireAffected(res, model.ErrSessionNotFound)
}

// GetSessionQuestion returns the question at a position of a session with its catalog data.
func (s *Store) GetSessionQuestion(ctx context.Context, sessionID string, displayOrder int) (model.SessionQuestionDetail, error) {
	var d model.SessionQuestionDetail
	var order string
	err := s.db.QueryRowContext(ctx, `
		SELECT sq.id, sq.session_id, sq.question_id, sq.display_order, sq.shuffled_answer_order,
		       sq.user_answer_id, sq.is_correct, sq.answered_at,
		       q.content, q.explanation, q.type_id, qt.name, qt.name_ja,
		       q.passage_id, rp.title, rp.content
		FROM session_questions sq
		JOIN questions q ON sq.question_id = q.id
		JOIN question_types qt ON q.type_id = qt.id
		LEFT JOIN reading_passages rp ON q.passage_id = rp.id
		WHERE sq.session_id = ? AND sq.display_order = ?`, sessionID, displayOrder,
	).Scan(&d.ID, &d.SessionID, &d.QuestionID, &d.DisplayOrder, &order,
		&d.UserAnswerID, &d.IsCorrect, &d.AnsweredAt,
		&d.Content, &d.Explanation, &d.TypeID, &d.TypeName, &d.TypeNameJa,
		&d.PassageID, &d.PassageTitle, &d.PassageContent)
	if errors.Is(err, sql.ErrNoRows) {
		return d, model.ErrQuestionNotFound
	}
	if err != nil {
		return d, err
	}
	d.AnswerOrder, err = decodeIDs(order)
	return d, err
}

// ListSessionQuestions returns every question of a session in display order.
func (s *Store) ListSessionQuestions(ctx context.Context, sessionID string) ([]model.SessionQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question_id, display_order, shuffled_answer_order, user_answer_id, is_correct, answered_at
		FROM session_questions WHERE session_id = ? ORDER BY display_order`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SessionQuestion
	for rows.Next() {
		var sq model.SessionQuestion
		var order string
		if err := rows.Scan(&sq.ID, &sq.SessionID, &sq.QuestionID, &sq.DisplayOrder, &order,
			&sq.UserAnswerID, &sq.IsCorrect, &sq.AnsweredAt); err != nil {
			return nil, err
		}
		if sq.AnswerOrder, err = decodeIDs(order); err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

// PassagePositions returns the display orders of a passage's questions within a session.
func (s *Store) PassagePositions(ctx context.Context, sessionID string, passageID int64) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sq.display_order
		FROM session_questions sq
		JOIN questions q ON sq.question_id = q.id
		WHERE sq.session_id = ? AND q.passage_id = ?
		ORDER BY sq.display_order`, sessionID, passageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// AnswersByID loads answers by id.
func (s *Store) AnswersByID(ctx context.Context, ids []int64) (map[int64]model.Answer, error) {
	out := make(map[int64]model.Answer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, content, is_correct FROM answers WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Content, &a.IsCorrect); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// QuestionAnswer returns the answer with the given id if it belongs to the question.
func (s *Store) QuestionAnswer(ctx context.Context, questionID, answerID int64) (model.Answer, error) {
	var a model.Answer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, content, is_correct FROM answers WHERE id = ? AND question_id = ?`,
		answerID, questionID,
	).Scan(&a.ID, &a.QuestionID, &a.Content, &a.IsCorrect)
	if errors.Is(err, sql.ErrNoRows) {
		return a, model.ErrInvalidAnswer
	}
	return a, err
}

// CorrectAnswer returns the first correct answer of a question, or nil if it has none.
func (s *Store) CorrectAnswer(ctx context.Context, questionID int64) (*model.Answer, error) {
	var a model.Answer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, content, is_correct FROM answers
		 WHERE question_id = ? AND is_correct = 1 ORDER BY id LIMIT 1`, questionID,
	).Scan(&a.ID, &a.QuestionID, &a.Content, &a.IsCorrect)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// RecordAnswer stores an answer for one session question unless it already
// has one, then refreshes the session's completed flag and cursor.
// A lost race surfaces as ErrAlreadyAnswered.
func (s *Store) RecordAnswer(ctx context.Context, sessionID string, displayOrder int, answerID int64, isCorrect bool) (model.AnswerOutcome, error) {
	var out model.AnswerOutcome

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE session_questions SET user_answer_id = ?, is_correct = ?, answered_at = ?
		 WHERE session_id = ? AND display_order = ? AND user_answer_id IS NULL`,
		answerID, isCorrect, time.Now().UTC(), sessionID, displayOrder,
	)
	if err != nil {
		return out, fmt.Errorf("record answer: %w", err)
	}
	if err := requireAffected(res, model.ErrAlreadyAnswered); err != nil {
		return out, err
	}

	sess, err := getSession(ctx, tx, sessionID)
	if err != nil {
		return out, err
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_questions WHERE session_id = ? AND user_answer_id IS NOT NULL`, sessionID,
	).Scan(&out.AnsweredCount); err != nil {
		return out, err
	}
	out.Completed = out.AnsweredCount >= sess.TotalQuestions

	if _, err := tx.ExecContext(ctx,
		`UPDATE training_sessions SET completed = ?, current_index = ? WHERE id = ?`,
		out.Completed, displayOrder, sessionID,
	); err != nil {
		return out, err
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT display_order FROM session_questions
		 WHERE session_id = ? AND user_answer_id IS NULL ORDER BY display_order LIMIT 1`, sessionID,
	).Scan(&next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return out, err
	default:
		out.NextIndex = &next
	}

	return out, tx.Commit()
}

// ListResultRows returns the per-question results of a session in display order.
func (s *Store) ListResultRows(ctx context.Context, sessionID string) ([]model.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sq.display_order, q.content, q.explanation, qt.name, qt.name_ja,
		       sq.user_answer_id, ua.content,
		       (SELECT ca.content FROM answers ca WHERE ca.question_id = q.id AND ca.is_correct = 1 ORDER BY ca.id LIMIT 1),
		       sq.is_correct
		FROM session_questions sq
		JOIN questions q ON sq.question_id = q.id
		JOIN question_types qt ON q.type_id = qt.id
		LEFT JOIN answers ua ON sq.user_answer_id = ua.id
		WHERE sq.session_id = ?
		ORDER BY sq.display_order`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.DisplayOrder, &r.QuestionContent, &r.Explanation, &r.TypeName, &r.TypeNameJa,
			&r.UserAnswerID, &r.UserAnswerContent, &r.CorrectAnswerContent, &r.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
