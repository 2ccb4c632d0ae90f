package store

import (
	"context"
	"database/sql"
	"errors"
)

// SetImportedFileHash records the sha256 of an imported catalog file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return setImportedFileHash(ctx, s.db, path, hash)
}

func setImportedFileHash(ctx context.Context, q queryer, path, hash string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO imported_files (path, sha256) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET sha256 = excluded.sha256`,
		path, hash,
	)
	return err
}

// GetImportedFileHash returns the recorded hash for a catalog file.
// Returns empty string and nil error if the file was never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT sha256 FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}
