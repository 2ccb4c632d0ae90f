package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// Builder materializes new training sessions.
type Builder struct {
	store Store
	seed  SeedFunc
	now   func() time.Time
}

// NewBuilder returns a builder over st. A nil seed draws fresh seeds for every session.
func NewBuilder(st Store, seed SeedFunc) *Builder {
	if seed == nil {
		seed = randomSeed
	}
	return &Builder{store: st, seed: seed, now: time.Now}
}

// Create selects, orders and persists the questions of a new session.
func (b *Builder) Create(ctx context.Context, sel model.Selection) (model.CreatedSession, error) {
	rng := newRand(b.seed)

	var ordered []model.Candidate
	var err error
	switch sel.Preset {
	case "":
		ordered, err = b.filtered(ctx, rng, sel)
	case model.PresetMixedChapter:
		ordered, err = b.mixed(ctx, rng)
	default:
		return model.CreatedSession{}, model.ErrUnknownPreset
	}
	if err != nil {
		return model.CreatedSession{}, err
	}
	if len(ordered) == 0 {
		return model.CreatedSession{}, model.ErrNoQuestionsMatched
	}

	questions, err := b.freezeAnswers(ctx, rng, ordered)
	if err != nil {
		return model.CreatedSession{}, err
	}

	sess := model.TrainingSession{
		ID:             uuid.NewString(),
		StartedAt:      b.now(),
		Preset:         sel.Preset,
		TotalQuestions: len(questions),
	}
	if sel.Preset == "" {
		sess.TypeFilter = sel.TypeID
		sess.ChapterFilter = sel.ChapterIDs
	}
	if err := b.store.CreateSession(ctx, sess, questions); err != nil {
		return model.CreatedSession{}, fmt.Errorf("create session: %w", err)
	}
	return model.CreatedSession{SessionID: sess.ID, TotalQuestions: sess.TotalQuestions}, nil
}

func (b *Builder) filtered(ctx context.Context, rng *rand.Rand, sel model.Selection) ([]model.Candidate, error) {
	cands, err := b.store.ListCandidates(ctx, sel.TypeID, sel.ChapterIDs)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	standalone, groups := partition(cands)
	ordered := arrange(rng, standalone, groups)
	if sel.Limit > 0 && sel.Limit < len(ordered) {
		ordered = ordered[:sel.Limit]
	}
	return ordered, nil
}

// freezeAnswers fixes the displayed answer order of every position.
// Sentence-ordering questions keep the stored order.
func (b *Builder) freezeAnswers(ctx context.Context, rng *rand.Rand, ordered []model.Candidate) ([]model.SessionQuestion, error) {
	ids := make([]int64, len(ordered))
	for i, c := range ordered {
		ids[i] = c.QuestionID
	}
	answers, err := b.store.AnswerIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	questions := make([]model.SessionQuestion, len(ordered))
	for i, c := range ordered {
		order := slices.Clone(answers[c.QuestionID])
		if order == nil {
			order = []int64{}
		}
		if c.TypeID != model.TypeSentenceOrdering {
			shuffle(rng, order)
		}
		questions[i] = model.SessionQuestion{
			QuestionID:   c.QuestionID,
			DisplayOrder: i,
			AnswerOrder:  order,
		}
	}
	return questions, nil
}
