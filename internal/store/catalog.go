package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// ListChapters returns all chapters with their question counts, in order.
func (s *Store) ListChapters(ctx context.Context) ([]model.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.order_num, COUNT(q.id)
		FROM chapters c
		LEFT JOIN questions q ON q.chapter_id = c.id
		GROUP BY c.id
		ORDER BY c.order_num, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chapters := []model.Chapter{}
	for rows.Next() {
		var c model.Chapter
		if err := rows.Scan(&c.ID, &c.Name, &c.OrderNum, &c.QuestionCount); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// GetChapter returns a chapter by ID.
func (s *Store) GetChapter(ctx context.Context, id int64) (model.Chapter, error) {
	var c model.Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.order_num, (SELECT COUNT(*) FROM questions WHERE chapter_id = c.id)
		 FROM chapters c WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.OrderNum, &c.QuestionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return c, model.ErrChapterNotFound
	}
	return c, err
}

// CreateChapter appends a chapter after the last one.
func (s *Store) CreateChapter(ctx context.Context, name string) (model.Chapter, error) {
	return createChapter(ctx, s.db, name)
}

func createChapter(ctx context.Context, q queryer, name string) (model.Chapter, error) {
	if name == "" {
		return model.Chapter{}, model.ErrMissingField
	}
	var maxOrder sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(order_num) FROM chapters`).Scan(&maxOrder); err != nil {
		return model.Chapter{}, err
	}
	c := model.Chapter{Name: name, OrderNum: int(maxOrder.Int64) + 1}
	res, err := q.ExecContext(ctx, `INSERT INTO chapters (name, order_num) VALUES (?, ?)`, c.Name, c.OrderNum)
	if err != nil {
		return model.Chapter{}, err
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return model.Chapter{}, err
	}
	slog.Info("created chapter", "id", c.ID, "name", c.Name, "order_num", c.OrderNum)
	return c, nil
}

// chapterIDByName finds a chapter by exact name, creating it if missing.
func chapterIDByName(ctx context.Context, q queryer, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM chapters WHERE name = ? ORDER BY id LIMIT 1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	c, err := createChapter(ctx, q, name)
	return c.ID, err
}

// UpdateChapter renames a chapter.
func (s *Store) UpdateChapter(ctx context.Context, id int64, name string) error {
	if name == "" {
		return model.ErrMissingField
	}
	res, err := s.db.ExecContext(ctx, `UPDATE chapters SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	return requireAffected(res, model.ErrChapterNotFound)
}

// DeleteChapter removes an empty chapter. Chapters that still own
// questions or passages are refused.
func (s *Store) DeleteChapter(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM questions WHERE chapter_id = ?) + (SELECT COUNT(*) FROM reading_passages WHERE chapter_id = ?)`,
		id, id,
	).Scan(&owned)
	if err != nil {
		return err
	}
	if owned > 0 {
		return model.ErrChapterNotEmpty
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, model.ErrChapterNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// ListQuestionTypes returns the nine question types with their question counts.
func (s *Store) ListQuestionTypes(ctx context.Context) ([]model.QuestionType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT qt.id, qt.name, qt.name_ja, qt.description, COUNT(q.id)
		FROM question_types qt
		LEFT JOIN questions q ON q.type_id = qt.id
		GROUP BY qt.id
		ORDER BY qt.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []model.QuestionType
	for rows.Next() {
		var t model.QuestionType
		if err := rows.Scan(&t.ID, &t.Name, &t.NameJa, &t.Description, &t.QuestionCount); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// ListPassages returns all reading passages with chapter names and question counts.
func (s *Store) ListPassages(ctx context.Context) ([]model.ReadingPassage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rp.id, rp.chapter_id, rp.title, rp.content, c.name,
		       (SELECT COUNT(*) FROM questions WHERE passage_id = rp.id)
		FROM reading_passages rp
		JOIN chapters c ON rp.chapter_id = c.id
		ORDER BY rp.chapter_id, rp.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passages := []model.ReadingPassage{}
	for rows.Next() {
		var p model.ReadingPassage
		if err := rows.Scan(&p.ID, &p.ChapterID, &p.Title, &p.Content, &p.ChapterName, &p.QuestionCount); err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// CreatePassage stores a reading passage in an existing chapter.
func (s *Store) CreatePassage(ctx context.Context, p model.ReadingPassage) (model.ReadingPassage, error) {
	if p.ChapterID == 0 || p.Content == "" {
		return p, model.ErrMissingField
	}
	if _, err := s.GetChapter(ctx, p.ChapterID); err != nil {
		return p, err
	}
	id, err := insertPassage(ctx, s.db, p)
	if err != nil {
		return p, err
	}
	p.ID = id
	return p, nil
}

func insertPassage(ctx context.Context, q queryer, p model.ReadingPassage) (int64, error) {
	if p.Title != nil && *p.Title == "" {
		p.Title = nil
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO reading_passages (chapter_id, title, content) VALUES (?, ?, ?)`,
		p.ChapterID, p.Title, p.Content,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeletePassage removes a passage together with its questions and their answers.
// It is refused with ErrQuestionInUse while any session references one of
// those questions.
func (s *Store) DeletePassage(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	inUse, err := referencedBySessions(ctx, tx, `SELECT id FROM questions WHERE passage_id = ?`, id)
	if err != nil {
		return err
	}
	if inUse {
		return model.ErrQuestionInUse
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM answers WHERE question_id IN (SELECT id FROM questions WHERE passage_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE passage_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reading_passages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, model.ErrPassageNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

const questionColumns = `q.id, q.chapter_id, q.type_id, q.passage_id, q.content, q.order_in_passage, q.explanation,
	c.name, qt.name_ja, rp.title`

const questionJoins = `FROM questions q
	JOIN chapters c ON q.chapter_id = c.id
	JOIN question_types qt ON q.type_id = qt.id
	LEFT JOIN reading_passages rp ON q.passage_id = rp.id`

func scanQuestion(sc interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	err := sc.Scan(&q.ID, &q.ChapterID, &q.TypeID, &q.PassageID, &q.Content, &q.OrderInPassage, &q.Explanation,
		&q.ChapterName, &q.TypeName, &q.PassageTitle)
	return q, err
}

// ListQuestions returns every question with names and answers, for the admin editor.
func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` `+questionJoins+` ORDER BY q.chapter_id, q.type_id, q.id`)
	if err != nil {
		return nil, err
	}
	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byQuestion, err := s.answersByQuestion(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Answers = byQuestion[questions[i].ID]
		if questions[i].Answers == nil {
			questions[i].Answers = []model.Answer{}
		}
	}
	return questions, nil
}

// GetQuestion returns a question with its answers.
func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` `+questionJoins+` WHERE q.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return q, model.ErrQuestionNotFound
	}
	if err != nil {
		return q, err
	}
	byQuestion, err := s.answersByQuestion(ctx, []int64{id})
	if err != nil {
		return q, err
	}
	q.Answers = byQuestion[id]
	return q, nil
}

// answersByQuestion loads answers in stored order, for the given questions or all when ids is nil.
func (s *Store) answersByQuestion(ctx context.Context, ids []int64) (map[int64][]model.Answer, error) {
	query := `SELECT id, question_id, content, is_correct FROM answers`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return map[int64][]model.Answer{}, nil
		}
		query += ` WHERE question_id IN (` + placeholders(len(ids)) + `)`
		args = int64Args(ids)
	}
	query += ` ORDER BY question_id, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]model.Answer)
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Content, &a.IsCorrect); err != nil {
			return nil, err
		}
		out[a.QuestionID] = append(out[a.QuestionID], a)
	}
	return out, rows.Err()
}

// CreateQuestion stores a question and its answers atomically.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (int64, error) {
	if q.ChapterID == 0 || q.TypeID == 0 {
		return 0, model.ErrMissingField
	}
	if !IsValidType(q.TypeID) {
		return 0, model.ErrUnknownType
	}
	if err := model.ValidateAnswers(q.Content, q.Answers); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT id FROM chapters WHERE id = ?`, q.ChapterID).Scan(new(int64)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrChapterNotFound
		}
		return 0, err
	}
	if q.PassageID != nil {
		if err := tx.QueryRowContext(ctx, `SELECT id FROM reading_passages WHERE id = ?`, *q.PassageID).Scan(new(int64)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, model.ErrPassageNotFound
			}
			return 0, err
		}
	}

	id, err := insertQuestion(ctx, tx, q)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func insertQuestion(ctx context.Context, qr queryer, q model.Question) (int64, error) {
	if q.Explanation != nil && *q.Explanation == "" {
		q.Explanation = nil
	}
	res, err := qr.ExecContext(ctx,
		`INSERT INTO questions (chapter_id, type_id, passage_id, content, order_in_passage, explanation)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ChapterID, q.TypeID, q.PassageID, q.Content, q.OrderInPassage, q.Explanation,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertAnswers(ctx, qr, id, q.Answers); err != nil {
		return 0, err
	}
	return id, nil
}

func insertAnswers(ctx context.Context, qr queryer, questionID int64, answers []model.Answer) error {
	for _, a := range answers {
		if _, err := qr.ExecContext(ctx,
			`INSERT INTO answers (question_id, content, is_correct) VALUES (?, ?, ?)`,
			questionID, a.Content, a.IsCorrect,
		); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}
	return nil
}

// UpdateQuestion replaces content and explanation, and the answer set when
// answers is non-empty. Answers of a question already used by a session are
// frozen into that session and cannot be replaced.
func (s *Store) UpdateQuestion(ctx context.Context, id int64, content string, explanation *string, answers []model.Answer) error {
	if content == "" {
		return model.ErrMissingField
	}
	if len(answers) > 0 {
		if err := model.ValidateAnswers(content, answers); err != nil {
			return err
		}
	}
	if explanation != nil && *explanation == "" {
		explanation = nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE questions SET content = ?, explanation = ? WHERE id = ?`, content, explanation, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, model.ErrQuestionNotFound); err != nil {
		return err
	}

	if len(answers) > 0 {
		inUse, err := referencedBySessions(ctx, tx, `SELECT ?`, id)
		if err != nil {
			return err
		}
		if inUse {
			return model.ErrQuestionInUse
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id = ?`, id); err != nil {
			return err
		}
		if err := insertAnswers(ctx, tx, id, answers); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetExplanation stores an explanation for a question.
func (s *Store) SetExplanation(ctx context.Context, id int64, explanation string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET explanation = ? WHERE id = ?`, explanation, id)
	if err != nil {
		return err
	}
	return requireAffected(res, model.ErrQuestionNotFound)
}

// ListQuestionsWithoutExplanation returns up to limit questions lacking an explanation.
func (s *Store) ListQuestionsWithoutExplanation(ctx context.Context, limit int) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` `+questionJoins+`
		 WHERE q.explanation IS NULL OR q.explanation = ''
		 ORDER BY q.id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	var ids []int64
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	byQuestion, err := s.answersByQuestion(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Answers = byQuestion[questions[i].ID]
	}
	return questions, nil
}

// GetPassage returns a passage by ID.
func (s *Store) GetPassage(ctx context.Context, id int64) (model.ReadingPassage, error) {
	var p model.ReadingPassage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chapter_id, title, content FROM reading_passages WHERE id = ?`, id,
	).Scan(&p.ID, &p.ChapterID, &p.Title, &p.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.ErrPassageNotFound
	}
	return p, err
}

// DeleteQuestion removes a question and its answers.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	inUse, err := referencedBySessions(ctx, tx, `SELECT ?`, id)
	if err != nil {
		return err
	}
	if inUse {
		return model.ErrQuestionInUse
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, model.ErrQuestionNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// referencedBySessions reports whether any question selected by idQuery appears in a session.
func referencedBySessions(ctx context.Context, q queryer, idQuery string, arg any) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_questions WHERE question_id IN (`+idQuery+`)`, arg,
	).Scan(&n)
	return n > 0, err
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
