package train

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/okian/sackline/internal/domain/model"
)

// Default split settings.
const (
	DefaultTestFraction = 0.25
	DefaultSeed         = 42
)

// Split partitions rows into train and test sets, keeping the label ratio of
// each set close to the whole. Both sets keep the input order.
func Split(rows []model.DefenderFeatureRow, testFraction float64, seed uint64) (train, test []model.DefenderFeatureRow, err error) {
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}
	if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSplit, testFraction)
	}

	var classes [2][]int
	for i, r := range rows {
		c := min(max(r.Sack, 0), 1)
		classes[c] = append(classes[c], i)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	held := make([]bool, len(rows))
	for _, idx := range classes {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		n := int(math.Round(float64(len(idx)) * testFraction))
		for _, i := range idx[:n] {
			held[i] = true
		}
	}

	for i, r := range rows {
		if held[i] {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	return slices.Clip(train), slices.Clip(test), nil
}
