package importer

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/pavelanni/jlptquiz/internal/model"
	"github.com/pavelanni/jlptquiz/internal/store"
)

//go:embed sample.json
var sampleCatalog []byte

// SampleName is the import key under which the sample catalog is recorded.
const SampleName = "builtin:sample.json"

// Store is what an import writes to.
type Store interface {
	GetImportedFileHash(ctx context.Context, path string) (string, error)
	ImportCatalog(ctx context.Context, items []model.CatalogItem, path, hash string) (store.ImportStats, error)
}

// Status tells what happened to one catalog file.
type Status int

const (
	Imported Status = iota
	Unchanged
	Changed
)

// Result describes one catalog file import.
type Result struct {
	Path      string
	Status    Status
	Questions int
	Passages  int
}

// Load imports catalog data recorded under name. Data that was already
// imported under the same name is skipped; so is data that changed since,
// because re-importing would duplicate questions behind existing sessions.
func Load(ctx context.Context, st Store, name string, data []byte) (Result, error) {
	res := Result{Path: name}
	hash := sha256sum(data)

	storedHash, err := st.GetImportedFileHash(ctx, name)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", name, err)
	}
	if storedHash == hash {
		slog.Info("catalog file unchanged, skipping", "path", name)
		res.Status = Unchanged
		return res, nil
	}
	if storedHash != "" {
		slog.Warn("catalog file changed since last import, skipping to avoid breaking existing sessions",
			"path", name)
		res.Status = Changed
		return res, nil
	}

	items, err := Parse(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	stats, err := st.ImportCatalog(ctx, items, name, hash)
	if err != nil {
		return res, fmt.Errorf("import %s: %w", name, err)
	}
	res.Status = Imported
	res.Questions = stats.Questions
	res.Passages = stats.Passages
	return res, nil
}

// LoadFile imports a catalog file from disk.
func LoadFile(ctx context.Context, st Store, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("read %s: %w", path, err)
	}
	return Load(ctx, st, path, data)
}

// LoadSample imports the built-in sample catalog once.
func LoadSample(ctx context.Context, st Store) (Result, error) {
	return Load(ctx, st, SampleName, sampleCatalog)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
