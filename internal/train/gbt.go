package train

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
)

// Params controls gradient boosting.
type Params struct {
	Trees          int     `json:"trees"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinChildWeight float64 `json:"min_child_weight"`
	Lambda         float64 `json:"lambda"` // L2 on leaf weights
	Gamma          float64 `json:"gamma"`  // minimum gain to split
	MaxBins        int     `json:"max_bins"`
}

// DefaultParams returns the parameters used by sackctl train.
func DefaultParams() Params {
	return Params{
		Trees:          200,
		LearningRate:   0.05,
		MaxDepth:       4,
		MinChildWeight: 1,
		Lambda:         1,
		Gamma:          0,
		MaxBins:        64,
	}
}

func (p Params) validate() error {
	switch {
	case p.Trees <= 0:
		return fmt.Errorf("%w: trees %d", ErrInvalidParams, p.Trees)
	case p.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate %v", ErrInvalidParams, p.LearningRate)
	case p.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth %d", ErrInvalidParams, p.MaxDepth)
	case p.MaxBins < 2 || p.MaxBins > missingBin:
		return fmt.Errorf("%w: max bins %d", ErrInvalidParams, p.MaxBins)
	case p.Lambda < 0 || p.MinChildWeight < 0 || p.Gamma < 0:
		return fmt.Errorf("%w: negative regularisation", ErrInvalidParams)
	}
	return nil
}

const missingBin = math.MaxUint16

// binned is a quantized copy of the feature matrix. Values in bin b satisfy
// cuts[b-1] <= v < cuts[b].
type binned struct {
	cuts [][]float64 // per feature
	bins [][]uint16  // per feature, per row
}

func quantize(x *mat.Dense, maxBins int) *binned {
	rows, cols := x.Dims()
	b := &binned{cuts: make([][]float64, cols), bins: make([][]uint16, cols)}
	col := make([]float64, rows)
	for f := range cols {
		mat.Col(col, f, x)
		b.cuts[f] = cutPoints(col, maxBins)
		codes := make([]uint16, rows)
		for i, v := range col {
			codes[i] = binOf(b.cuts[f], v)
		}
		b.bins[f] = codes
	}
	return b
}

func cutPoints(col []float64, maxBins int) []float64 {
	vals := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	slices.Sort(vals)
	vals = slices.Compact(vals)
	if len(vals) < 2 {
		return nil
	}
	if len(vals) <= maxBins {
		return slices.Clone(vals[1:])
	}
	cuts := make([]float64, 0, maxBins-1)
	for i := 1; i < maxBins; i++ {
		c := vals[i*len(vals)/maxBins]
		if c > vals[0] && (len(cuts) == 0 || c > cuts[len(cuts)-1]) {
			cuts = append(cuts, c)
		}
	}
	return cuts
}

func binOf(cuts []float64, v float64) uint16 {
	if math.IsNaN(v) {
		return missingBin
	}
	return uint16(sort.Search(len(cuts), func(i int) bool { return cuts[i] > v })) //nolint:gosec // bounded by MaxBins
}

type split struct {
	feature     int
	bin         int // rows in bins <= bin go left
	gain        float64
	defaultLeft bool
}

type grower struct {
	p    Params
	data *binned
	grad []float64
	hess []float64
}

func (g *grower) leaf(gs, hs float64) float64 {
	return -gs / (hs + g.p.Lambda) * g.p.LearningRate
}

func (g *grower) score(gs, hs float64) float64 {
	return gs * gs / (hs + g.p.Lambda)
}

func (g *grower) sums(idx []int) (gs, hs float64) {
	for _, i := range idx {
		gs += g.grad[i]
		hs += g.hess[i]
	}
	return gs, hs
}

func (g *grower) best(idx []int, gs, hs float64) (split, bool) {
	best := split{gain: g.p.Gamma}
	found := false
	parent := g.score(gs, hs)

	for f, cuts := range g.data.cuts {
		if len(cuts) == 0 {
			continue
		}
		hg := make([]float64, len(cuts)+1)
		hh := make([]float64, len(cuts)+1)
		var mg, mh float64
		codes := g.data.bins[f]
		for _, i := range idx {
			if b := codes[i]; b == missingBin {
				mg += g.grad[i]
				mh += g.hess[i]
			} else {
				hg[b] += g.grad[i]
				hh[b] += g.hess[i]
			}
		}

		// k == len(cuts) sends every present value left and only missing right.
		var lg, lh float64
		for k := range len(cuts) + 1 {
			lg += hg[k]
			lh += hh[k]
			for _, missLeft := range []bool{false, true} {
				l, lw := lg, lh
				if missLeft {
					l, lw = lg+mg, lh+mh
				}
				r, rw := gs-l, hs-lw
				if lw < g.p.MinChildWeight || rw < g.p.MinChildWeight || lw <= 0 || rw <= 0 {
					continue
				}
				gain := 0.5*(g.score(l, lw)+g.score(r, rw)-parent) - g.p.Gamma
				if gain > best.gain {
					best = split{feature: f, bin: k, gain: gain, defaultLeft: missLeft}
					found = true
				}
			}
		}
	}
	return best, found
}

// grow appends the subtree for idx to t and returns its root index.
func (g *grower) grow(t *scoring.Tree, idx []int, depth int) int {
	gs, hs := g.sums(idx)
	n := len(t.Feature)
	t.Feature = append(t.Feature, scoring.Leaf)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, 0)
	t.Right = append(t.Right, 0)
	t.DefaultLeft = append(t.DefaultLeft, false)
	t.Value = append(t.Value, g.leaf(gs, hs))
	t.Gain = append(t.Gain, 0)

	if depth >= g.p.MaxDepth || len(idx) < 2 {
		return n
	}
	s, ok := g.best(idx, gs, hs)
	if !ok {
		return n
	}

	var left, right []int
	codes := g.data.bins[s.feature]
	for _, i := range idx {
		b := codes[i]
		if (b == missingBin && s.defaultLeft) || (b != missingBin && int(b) <= s.bin) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.Feature[n] = s.feature
	t.Threshold[n] = math.MaxFloat64
	if cuts := g.data.cuts[s.feature]; s.bin < len(cuts) {
		t.Threshold[n] = cuts[s.bin]
	}
	t.DefaultLeft[n] = s.defaultLeft
	t.Gain[n] = s.gain
	t.Value[n] = 0
	l := g.grow(t, left, depth+1)
	r := g.grow(t, right, depth+1)
	t.Left[n], t.Right[n] = l, r
	return n
}

// Fit boosts an ensemble on the encoded matrix x with binary labels y.
// Progress goes to log at debug level; a nil log keeps Fit silent.
func Fit(ctx context.Context, x *mat.Dense, y []float64, p Params, log logger.Logger) (*scoring.Ensemble, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrNoRows, rows, len(y))
	}

	var pos float64
	for _, v := range y {
		pos += v
	}
	e := &scoring.Ensemble{Width: cols, BaseScore: scoring.Logit(pos / float64(rows))}

	g := &grower{
		p:    p,
		data: quantize(x, p.MaxBins),
		grad: make([]float64, rows),
		hess: make([]float64, rows),
	}
	margin := make([]float64, rows)
	for i := range margin {
		margin[i] = e.BaseScore
	}
	all := make([]int, rows)
	for i := range all {
		all[i] = i
	}

	for round := range p.Trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range rows {
			pr := scoring.Sigmoid(margin[i])
			g.grad[i] = pr - y[i]
			g.hess[i] = math.Max(pr*(1-pr), 1e-16)
		}
		var t scoring.Tree
		g.grow(&t, all, 0)
		for i := range rows {
			margin[i] += t.Eval(x.RawRowView(i))
		}
		e.Trees = append(e.Trees, t)

		if log != nil && (round+1)%50 == 0 {
			log.Debug(ctx, "boosting progress",
				logger.Int("trees", round+1),
				logger.Float64("train_log_loss", logLossOfMargins(margin, y)),
			)
		}
	}
	return e, nil
}

func logLossOfMargins(margin, y []float64) float64 {
	p := make([]float64, len(margin))
	for i, m := range margin {
		p[i] = scoring.Sigmoid(m)
	}
	return LogLoss(p, y)
}
