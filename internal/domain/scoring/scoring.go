// Package scoring defines the contract for turning an encoded feature vector
// into a sack probability and a gradient-boosted tree ensemble implementing it.
package scoring

import (
	"context"
	"fmt"
	"math"
)

// Scorer computes a probability in [0,1] from one encoded vector.
type Scorer interface {
	// Score honours ctx for cancellation.
	Score(ctx context.Context, features []float64) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, features []float64) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, features []float64) (float64, error) {
	return f(ctx, features)
}

// Leaf marks a terminal node in Tree.Feature.
const Leaf = -1

// Tree is a regression tree stored as parallel node arrays; node 0 is the root.
// Samples with x[Feature] < Threshold go left. NaN follows DefaultLeft.
type Tree struct {
	Feature     []int     `json:"feature"`
	Threshold   []float64 `json:"threshold"`
	Left        []int     `json:"left"`
	Right       []int     `json:"right"`
	DefaultLeft []bool    `json:"default_left"`
	Value       []float64 `json:"value"`
	Gain        []float64 `json:"gain"`
}

// Nodes returns the number of nodes.
func (t *Tree) Nodes() int { return len(t.Feature) }

// Eval returns the leaf value reached by x.
func (t *Tree) Eval(x []float64) float64 {
	n := 0
	for t.Feature[n] != Leaf {
		v := x[t.Feature[n]]
		switch {
		case math.IsNaN(v):
			if t.DefaultLeft[n] {
				n = t.Left[n]
			} else {
				n = t.Right[n]
			}
		case v < t.Threshold[n]:
			n = t.Left[n]
		default:
			n = t.Right[n]
		}
	}
	return t.Value[n]
}

func (t *Tree) validate(width int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidModel)
	}
	for _, l := range []int{len(t.Threshold), len(t.Left), len(t.Right), len(t.DefaultLeft), len(t.Value), len(t.Gain)} {
		if l != n {
			return fmt.Errorf("%w: node arrays differ in length", ErrInvalidModel)
		}
	}
	for i, f := range t.Feature {
		if f == Leaf {
			continue
		}
		if f < 0 || f >= width {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidModel, i, f, width)
		}
		// Children always follow their parent, so walks terminate.
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("%w: node %d has children out of range", ErrInvalidModel, i)
		}
	}
	return nil
}

// Ensemble is a boosted sum of trees passed through the logistic function.
type Ensemble struct {
	Width     int     `json:"width"`
	BaseScore float64 `json:"base_score"` // margin, log-odds
	Trees     []Tree  `json:"trees"`
}

// Validate checks the ensemble's structure against its declared width.
func (e *Ensemble) Validate() error {
	if e.Width <= 0 {
		return fmt.Errorf("%w: width %d", ErrInvalidModel, e.Width)
	}
	for i := range e.Trees {
		if err := e.Trees[i].validate(e.Width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// Margin is the raw log-odds of x.
func (e *Ensemble) Margin(x []float64) float64 {
	m := e.BaseScore
	for i := range e.Trees {
		m += e.Trees[i].Eval(x)
	}
	return m
}

// Predict returns the probability of x without checks.
func (e *Ensemble) Predict(x []float64) float64 {
	return Sigmoid(e.Margin(x))
}

// Score implements Scorer.
func (e *Ensemble) Score(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	if len(features) != e.Width {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureWidth, len(features), e.Width)
	}
	return e.Predict(features), nil
}

// Importance sums split gain per feature across all trees.
func (e *Ensemble) Importance() []float64 {
	imp := make([]float64, e.Width)
	for i := range e.Trees {
		t := &e.Trees[i]
		for n, f := range t.Feature {
			if f != Leaf {
				imp[f] += t.Gain[n]
			}
		}
	}
	return imp
}

// Sigmoid is the logistic function.
func Sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

// Logit is the inverse of Sigmoid, clamped away from 0 and 1.
func Logit(p float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}
