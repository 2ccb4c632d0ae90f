package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// ExportAllSessions builds export-ready results from all sessions.
func (s *Store) ExportAllSessions(ctx context.Context) (model.ResultsExport, error) {
	export := model.ResultsExport{
		ExportedAt: time.Now().UTC(),
		Sessions:   []model.SessionExport{},
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return export, fmt.Errorf("list sessions: %w", err)
	}

	for _, sess := range sessions {
		rows, err := s.ListResultRows(ctx, sess.ID)
		if err != nil {
			return export, fmt.Errorf("results for session %s: %w", sess.ID, err)
		}
		export.Sessions = append(export.Sessions, model.SessionExport{
			Preset:        sess.Preset,
			TypeFilter:    sess.TypeFilter,
			ChapterFilter: sess.ChapterFilter,
			Results:       model.NewSessionResults(sess, rows),
		})
	}

	return export, nil
}
