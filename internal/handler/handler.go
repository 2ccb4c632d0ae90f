package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/jlptquiz/internal/i18n"
	"github.com/pavelanni/jlptquiz/internal/model"
	"github.com/pavelanni/jlptquiz/internal/quiz"
	"github.com/pavelanni/jlptquiz/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	builder *quiz.Builder
	runner  *quiz.Runner
	config  model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, b *quiz.Builder, r *quiz.Runner, cfg model.ServerConfig) (*Handler, error) {
	if s == nil || b == nil || r == nil {
		return nil, errors.New("handler: store, builder and runner are required")
	}
	return &Handler{store: s, builder: b, runner: r, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/chapters", h.handleListChapters)
		r.Get("/types", h.handleListTypes)
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{sessionID}", h.handleGetQuestion)
		r.Post("/sessions/{sessionID}/answer", h.handleSubmitAnswer)
		r.Get("/sessions/{sessionID}/summary", h.handleSummary)
		r.Get("/sessions/{sessionID}/results", h.handleResults)
		r.Route("/admin", h.adminRoutes)
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *Handler) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.store.ListChapters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListQuestionTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

type createSessionRequest struct {
	Preset     string  `json:"preset"`
	TypeID     *int64  `json:"typeId"`
	ChapterIDs []int64 `json:"chapterIds"`
	Limit      int     `json:"limit"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sel := model.Selection{
		Preset:     req.Preset,
		TypeID:     req.TypeID,
		ChapterIDs: req.ChapterIDs,
		Limit:      req.Limit,
	}
	// 0 is how the UI says "all types".
	if sel.TypeID != nil && *sel.TypeID == 0 {
		sel.TypeID = nil
	}

	created, err := h.builder.Create(r.Context(), sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := h.runner.QuestionAt(r.Context(), chi.URLParam(r, "sessionID"), parseIndex(r.URL.Query().Get("index")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitAnswerRequest struct {
	AnswerID      int64           `json:"answerId"`
	QuestionIndex json.RawMessage `json:"questionIndex"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AnswerID == 0 {
		writeError(w, r, model.ErrMissingField)
		return
	}

	res, err := h.runner.Submit(r.Context(), chi.URLParam(r, "sessionID"), req.AnswerID, parseRawIndex(req.QuestionIndex))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.runner.Summary(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Results(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// leadingInt matches an optional sign and the digits that follow leading
// whitespace; trailing garbage such as ".5" or "abc" is ignored.
var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// parseIndex returns the leading integer of s, or nil when s has none.
// Values beyond the int32 range saturate.
func parseIndex(s string) *int {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	i := int(n)
	return &i
}

// parseRawIndex accepts a JSON number, truncated toward zero, or a string
// parsed like parseIndex. null and anything else is nil.
func parseRawIndex(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		f = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Trunc(f)))
		i := int(f)
		return &i
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseIndex(s)
	}
	return nil
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeError(w, r, errInvalidRequest)
		return 0, false
	}
	return id, true
}

var errInvalidRequest = &model.Error{Kind: model.KindInvalidInput, Code: "InvalidRequest", Msg: "invalid request body"}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeError(w, r, errInvalidRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with a localized message. Unclassified errors are
// logged and reported as internal without leaking details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := model.AsError(err)
	if e == nil {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		e = &model.Error{Kind: model.KindInternal, Code: "InternalError", Msg: "internal server error"}
	}
	writeJSON(w, statusFor(e.Kind), errorResponse{
		Error: appI18n.TOr(r.Context(), e.Code, e.Msg),
		Code:  e.Code,
	})
}
