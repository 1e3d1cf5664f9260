package train

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
)

// CalibrationBins is the number of equal-width probability buckets.
const CalibrationBins = 10

const probEps = 1e-15

// Brier is the mean squared error of probabilities p against labels y.
func Brier(p, y []float64) float64 {
	sq := make([]float64, len(p))
	for i := range p {
		d := p[i] - y[i]
		sq[i] = d * d
	}
	return stat.Mean(sq, nil)
}

// LogLoss is the mean negative log-likelihood, with p clamped away from 0 and 1.
func LogLoss(p, y []float64) float64 {
	ll := make([]float64, len(p))
	for i := range p {
		q := math.Min(math.Max(p[i], probEps), 1-probEps)
		ll[i] = -(y[i]*math.Log(q) + (1-y[i])*math.Log(1-q))
	}
	return stat.Mean(ll, nil)
}

// AUC is the area under the ROC curve, NaN when only one class is present.
func AUC(p, y []float64) float64 {
	type pair struct{ p, y float64 }
	pairs := make([]pair, len(p))
	for i := range p {
		pairs[i] = pair{p[i], y[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	scores := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	var pos int
	for i, pr := range pairs {
		scores[i] = pr.p
		classes[i] = pr.y == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(pairs) {
		return math.NaN()
	}
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Calibration buckets predictions into equal-width bins. Empty bins are kept
// with zero count.
func Calibration(p, y []float64) []artifact.CalibrationBin {
	preds := make([][]float64, CalibrationBins)
	obs := make([][]float64, CalibrationBins)
	for i, v := range p {
		b := min(int(v*CalibrationBins), CalibrationBins-1)
		b = max(b, 0)
		preds[b] = append(preds[b], v)
		obs[b] = append(obs[b], y[i])
	}
	out := make([]artifact.CalibrationBin, CalibrationBins)
	for b := range out {
		out[b] = artifact.CalibrationBin{
			Lower: float64(b) / CalibrationBins,
			Upper: float64(b+1) / CalibrationBins,
			Count: len(preds[b]),
		}
		if len(preds[b]) > 0 {
			out[b].MeanPredicted = stat.Mean(preds[b], nil)
			out[b].ObservedRate = stat.Mean(obs[b], nil)
		}
	}
	return out
}

// Importance names the ensemble's split gains by column, largest first.
func Importance(e *scoring.Ensemble, s *schema.Schema) []artifact.FeatureImportance {
	cols := s.Columns()
	gains := e.Importance()
	out := make([]artifact.FeatureImportance, 0, len(gains))
	for i, g := range gains {
		if g > 0 && i < len(cols) {
			out = append(out, artifact.FeatureImportance{Feature: cols[i], Gain: g})
		}
	}
	slices.SortFunc(out, func(a, b artifact.FeatureImportance) int {
		if c := cmp.Compare(b.Gain, a.Gain); c != 0 {
			return c
		}
		return cmp.Compare(a.Feature, b.Feature)
	})
	return out
}
