package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// ImportStats counts what an import created.
type ImportStats struct {
	Questions int
	Passages  int
}

// ImportCatalog stores catalog items in one transaction, creating chapters
// by name as needed. When path is non-empty its hash is recorded in the
// same transaction.
func (s *Store) ImportCatalog(ctx context.Context, items []model.CatalogItem, path, hash string) (ImportStats, error) {
	var stats ImportStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	chapters := make(map[string]int64)
	for i, item := range items {
		chapterID, ok := chapters[item.Chapter]
		if !ok {
			if chapterID, err = chapterIDByName(ctx, tx, item.Chapter); err != nil {
				return stats, fmt.Errorf("item %d: chapter %q: %w", i+1, item.Chapter, err)
			}
			chapters[item.Chapter] = chapterID
		}

		var passageID *int64
		if item.Passage != nil {
			p := *item.Passage
			p.ChapterID = chapterID
			id, err := insertPassage(ctx, tx, p)
			if err != nil {
				return stats, fmt.Errorf("item %d: passage: %w", i+1, err)
			}
			passageID = &id
			stats.Passages++
		}

		for j, q := range item.Questions {
			if !IsValidType(q.TypeID) {
				return stats, fmt.Errorf("item %d question %d: %w", i+1, j+1, model.ErrUnknownType)
			}
			if err := model.ValidateAnswers(q.Content, q.Answers); err != nil {
				return stats, fmt.Errorf("item %d question %d: %w", i+1, j+1, err)
			}
			q.ChapterID = chapterID
			q.PassageID = passageID
			if _, err := insertQuestion(ctx, tx, q); err != nil {
				return stats, fmt.Errorf("item %d question %d: %w", i+1, j+1, err)
			}
			stats.Questions++
		}
	}

	if path != "" {
		if err := setImportedFileHash(ctx, tx, path, hash); err != nil {
			return stats, err
		}
	}
	if err := tx.Commit(); err != nil {
		return stats, err
	}
	slog.Info("catalog imported", "path", path, "questions", stats.Questions, "passages", stats.Passages)
	return stats, nil
}
