package quiz

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/pavelanni/jlptquiz/internal/model"
)

// SeedFunc returns the PCG seed words for one session build.
type SeedFunc func() (uint64, uint64)

func randomSeed() (uint64, uint64) {
	return rand.Uint64(), rand.Uint64()
}

func newRand(seed SeedFunc) *rand.Rand {
	return rand.New(rand.NewPCG(seed()))
}

func shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// sample draws up to n elements without replacement.
func sample[T any](rng *rand.Rand, pool []T, n int) []T {
	out := slices.Clone(pool)
	shuffle(rng, out)
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

func comparePassageOrder(a, b model.Candidate) int {
	return cmp.Or(cmp.Compare(a.OrderInPassage, b.OrderInPassage), cmp.Compare(a.QuestionID, b.QuestionID))
}

// partition splits candidates into standalone questions and passage groups.
// Each group is sorted by position in its passage.
func partition(cands []model.Candidate) ([]model.Candidate, [][]model.Candidate) {
	var standalone []model.Candidate
	var groups [][]model.Candidate
	index := make(map[int64]int)
	for _, c := range cands {
		if c.PassageID == nil {
			standalone = append(standalone, c)
			continue
		}
		i, ok := index[*c.PassageID]
		if !ok {
			i = len(groups)
			index[*c.PassageID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	for _, g := range groups {
		slices.SortStableFunc(g, comparePassageOrder)
	}
	return standalone, groups
}

// arrange shuffles standalone questions and passage groups separately, then
// interleaves them as whole items and flattens the result. Questions of a
// group stay adjacent and in passage order.
func arrange(rng *rand.Rand, standalone []model.Candidate, groups [][]model.Candidate) []model.Candidate {
	shuffle(rng, standalone)
	shuffle(rng, groups)

	items := make([][]model.Candidate, 0, len(standalone)+len(groups))
	for _, c := range standalone {
		items = append(items, []model.Candidate{c})
	}
	items = append(items, groups...)
	shuffle(rng, items)

	var out []model.Candidate
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}
