package model

import "time"

// ResultsExport is the top-level JSON structure for session result export.
type ResultsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Sessions   []SessionExport `json:"sessions"`
}

// SessionExport holds one session's filters and results for export.
type SessionExport struct {
	Preset        string         `json:"preset,omitempty"`
	TypeFilter    *int64         `json:"type_filter,omitempty"`
	ChapterFilter []int64        `json:"chapter_filter,omitempty"`
	Results       SessionResults `json:"results"`
}

// CatalogItem is one normalized entry of a catalog import: a standalone
// question, or a passage together with its questions.
type CatalogItem struct {
	Chapter   string
	Passage   *ReadingPassage
	Questions []Question
}
