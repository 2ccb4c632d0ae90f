package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/jlptquiz/internal/importer"
	"github.com/pavelanni/jlptquiz/internal/model"
)

func (h *Handler) adminRoutes(r chi.Router) {
	r.Get("/questions", h.handleAdminListQuestions)
	r.Post("/questions", h.handleCreateQuestion)
	r.Put("/questions/{questionID}", h.handleUpdateQuestion)
	r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
	r.Post("/chapters", h.handleCreateChapter)
	r.Put("/chapters/{chapterID}", h.handleUpdateChapter)
	r.Delete("/chapters/{chapterID}", h.handleDeleteChapter)
	r.Get("/passages", h.handleListPassages)
	r.Post("/passages", h.handleCreatePassage)
	r.Delete("/passages/{passageID}", h.handleDeletePassage)
	r.Post("/import", h.handleUploadCatalog)
}

type successResponse struct {
	Success bool `json:"success"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type answerInput struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
}

func toAnswers(in []answerInput) []model.Answer {
	out := make([]model.Answer, 0, len(in))
	for _, a := range in {
		out = append(out, model.Answer{Content: a.Content, IsCorrect: a.IsCorrect})
	}
	return out
}

func (h *Handler) handleAdminListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

type questionRequest struct {
	ChapterID      int64         `json:"chapterId"`
	TypeID         int64         `json:"typeId"`
	PassageID      *int64        `json:"passageId"`
	Content        string        `json:"content"`
	Explanation    *string       `json:"explanation"`
	OrderInPassage int           `json:"orderInPassage"`
	Answers        []answerInput `json:"answers"`
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PassageID != nil && *req.PassageID == 0 {
		req.PassageID = nil
	}

	id, err := h.store.CreateQuestion(r.Context(), model.Question{
		ChapterID:      req.ChapterID,
		TypeID:         req.TypeID,
		PassageID:      req.PassageID,
		Content:        req.Content,
		Explanation:    req.Explanation,
		OrderInPassage: req.OrderInPassage,
		Answers:        toAnswers(req.Answers),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("question created via admin", "id", id, "chapter_id", req.ChapterID, "type_id", req.TypeID)
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "questionID")
	if !ok {
		return
	}
	var req questionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.UpdateQuestion(r.Context(), id, req.Content, req.Explanation, toAnswers(req.Answers)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "questionID")
	if !ok {
		return
	}
	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type chapterRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req chapterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.store.CreateChapter(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "chapterID")
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.UpdateChapter(r.Context(), id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "chapterID")
	if !ok {
		return
	}
	if err := h.store.DeleteChapter(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleListPassages(w http.ResponseWriter, r *http.Request) {
	passages, err := h.store.ListPassages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passages)
}

type passageRequest struct {
	ChapterID int64   `json:"chapterId"`
	Title     *string `json:"title"`
	Content   string  `json:"content"`
}

func (h *Handler) handleCreatePassage(w http.ResponseWriter, r *http.Request) {
	var req passageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.store.CreatePassage(r.Context(), model.ReadingPassage{
		ChapterID: req.ChapterID,
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeletePassage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "passageID")
	if !ok {
		return
	}
	if err := h.store.DeletePassage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type importResponse struct {
	Status    string `json:"status"`
	Questions int    `json:"questions"`
	Passages  int    `json:"passages"`
}

var importStatusNames = map[importer.Status]string{
	importer.Imported:  "imported",
	importer.Unchanged: "unchanged",
	importer.Changed:   "changed",
}

func (h *Handler) handleUploadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, r, errInvalidRequest)
		return
	}

	file, header, err := r.FormFile("catalog_file")
	if err != nil {
		writeError(w, r, model.ErrMissingField)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := importer.Load(r.Context(), h.store, header.Filename, data)
	if err != nil {
		slog.Warn("catalog upload rejected", "filename", header.Filename, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("uploaded catalog via admin", "filename", header.Filename, "questions", res.Questions)
	writeJSON(w, http.StatusOK, importResponse{
		Status:    importStatusNames[res.Status],
		Questions: res.Questions,
		Passages:  res.Passages,
	})
}
