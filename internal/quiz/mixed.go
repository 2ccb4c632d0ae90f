package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// mixed draws the mock-exam template: a random sample of standalone
// questions per type, plus one whole reading passage.
func (b *Builder) mixed(ctx context.Context, rng *rand.Rand) ([]model.Candidate, error) {
	var standalone []model.Candidate
	var groups [][]model.Candidate

	for _, quota := range model.MixedTemplateQuotas {
		if quota.TypeID == model.TypeReading {
			group, err := b.pickPassage(ctx, rng, quota.TypeID)
			if err != nil {
				return nil, err
			}
			if len(group) > 0 {
				groups = append(groups, group)
			}
			continue
		}
		pool, err := b.store.ListStandaloneByType(ctx, quota.TypeID)
		if err != nil {
			return nil, fmt.Errorf("list type %d: %w", quota.TypeID, err)
		}
		standalone = append(standalone, sample(rng, pool, quota.Count)...)
	}

	return arrange(rng, standalone, groups), nil
}

// pickPassage returns all questions of the type from one random passage.
func (b *Builder) pickPassage(ctx context.Context, rng *rand.Rand, typeID int64) ([]model.Candidate, error) {
	passages, err := b.store.ListPassageIDsWithType(ctx, typeID)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	if len(passages) == 0 {
		return nil, nil
	}
	passageID := passages[rng.IntN(len(passages))]
	group, err := b.store.ListPassageQuestions(ctx, passageID, typeID)
	if err != nil {
		return nil, fmt.Errorf("list passage %d: %w", passageID, err)
	}
	return group, nil
}
