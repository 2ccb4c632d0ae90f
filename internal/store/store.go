package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Pragmas are applied by the driver to every pooled connection.
// BEGIN IMMEDIATE takes the write lock up front so concurrent writers
// queue on busy_timeout instead of failing on lock upgrade.
const dsnParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

type Store struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dbPath+sep+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chapters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		order_num INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS question_types (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		name_ja TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS reading_passages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chapter_id INTEGER NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		FOREIGN KEY (chapter_id) REFERENCES chapters(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chapter_id INTEGER NOT NULL,
		type_id INTEGER NOT NULL,
		passage_id INTEGER,
		content TEXT NOT NULL,
		order_in_passage INTEGER NOT NULL DEFAULT 0,
		explanation TEXT,
		FOREIGN KEY (chapter_id) REFERENCES chapters(id),
		FOREIGN KEY (type_id) REFERENCES question_types(id),
		FOREIGN KEY (passage_id) REFERENCES reading_passages(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS training_sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		preset TEXT NOT NULL DEFAULT '',
		type_filter INTEGER,
		chapter_filter TEXT,
		total_questions INTEGER NOT NULL,
		current_index INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS session_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		display_order INTEGER NOT NULL,
		shuffled_answer_order TEXT NOT NULL,
		user_answer_id INTEGER,
		is_correct INTEGER,
		answered_at DATETIME,
		UNIQUE (session_id, display_order),
		FOREIGN KEY (session_id) REFERENCES training_sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id),
		FOREIGN KEY (user_answer_id) REFERENCES answers(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_questions_chapter ON questions(chapter_id);
	CREATE INDEX IF NOT EXISTS idx_questions_type ON questions(type_id);
	CREATE INDEX IF NOT EXISTS idx_questions_passage ON questions(passage_id);
	CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
	CREATE INDEX IF NOT EXISTS idx_session_questions_question ON session_questions(question_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedQuestionTypes()
}

// questionTypes are the nine fixed sections of the JLPT N2 language-knowledge paper.
var questionTypes = [...]struct {
	name, nameJa, description string
}{
	{"mondai1", "問題1 - 漢字読み", "Чтение кандзи: выбрать правильное чтение подчёркнутого слова"},
	{"mondai2", "問題2 - 漢字書き", "Написание кандзи: выбрать кандзи для хираганы"},
	{"mondai3", "問題3 - 語形成", "Образование слов: выбрать подходящее слово в контексте"},
	{"mondai4", "問題4 - 文脈規定", "Контекст: выбрать слово для заполнения пропуска"},
	{"mondai5", "問題5 - 言い換え", "Синонимы: выбрать близкое по значению слово"},
	{"mondai6", "問題6 - 用法", "Употребление: выбрать правильное использование слова"},
	{"mondai7", "問題7 - 文法", "Грамматика: выбрать правильную грамматическую конструкцию"},
	{"mondai8", "問題8 - 文の組み立て", "Порядок: расставить части предложения (★)"},
	{"mondai9", "問題9 - 読解", "Чтение: прочитать текст и ответить на вопросы"},
}

func (s *Store) seedQuestionTypes() error {
	for i, qt := range questionTypes {
		_, err := s.db.Exec(
			`INSERT INTO question_types (id, name, name_ja, description) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, name_ja = excluded.name_ja, description = excluded.description`,
			i+1, qt.name, qt.nameJa, qt.description,
		)
		if err != nil {
			return fmt.Errorf("seed question type %d: %w", i+1, err)
		}
	}
	return nil
}

// IsValidType reports whether id names one of the fixed question types.
func IsValidType(id int64) bool {
	return id >= 1 && id <= int64(len(questionTypes))
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

func decodeIDs(raw string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode id list %q: %w", raw, err)
	}
	return ids, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
