// Package scenario rebuilds training-layout feature vectors from a hand-built
// defensive front and game situation.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/personnel"
	"github.com/okian/sackline/internal/domain/roles"
	"github.com/okian/sackline/internal/domain/schema"
)

// Input limits.
const (
	MaxDefenders = 11
	MaxDepth     = 45.0
	MaxLateral   = 26.66
)

// Defender is one hypothetical defender. Exactly one of RelY or Technique is set.
type Defender struct {
	Label        string   `json:"label,omitempty" yaml:"label,omitempty"`
	Position     string   `json:"position" yaml:"position"`
	RelX         float64  `json:"rel_x" yaml:"rel_x"`
	RelY         *float64 `json:"rel_y,omitempty" yaml:"rel_y,omitempty"`
	Technique    string   `json:"technique,omitempty" yaml:"technique,omitempty"`
	Side         string   `json:"side,omitempty" yaml:"side,omitempty"`
	Speed        *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
}

// Scenario is a situation plus up to eleven defenders.
type Scenario struct {
	Down             int        `json:"down" yaml:"down"`
	OffensePersonnel string     `json:"offense_personnel" yaml:"offense_personnel"`
	DefenseFormation string     `json:"defense_formation" yaml:"defense_formation"`
	BallSpot         string     `json:"ball_spot" yaml:"ball_spot"`
	OffenseFormation string     `json:"offense_formation" yaml:"offense_formation"`
	YardsToGo        float64    `json:"yards_to_go" yaml:"yards_to_go"`
	Yardline         float64    `json:"yardline" yaml:"yardline"`
	DefendersInBox   float64    `json:"defenders_in_box" yaml:"defenders_in_box"`
	Defenders        []Defender `json:"defenders" yaml:"defenders"`
}

// Derived holds the per-defender values reported next to a probability.
type Derived struct {
	Label      string
	Position   roles.Position
	RelX       float64
	RelY       float64
	DistFromQB float64
}

// Batch is the encoded scenario: one matrix row per defender in input order.
type Batch struct {
	Features  *mat.Dense
	Rows      []model.DefenderFeatureRow
	Defenders []Derived
	Formation Formation
	QB        QBAlignment
}

// Row returns the encoded features of defender i.
func (b *Batch) Row(i int) []float64 { return b.Features.RawRowView(i) }

// Len is the number of defenders.
func (b *Batch) Len() int { return len(b.Defenders) }

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithTables replaces the default lookup tables.
func WithTables(t Tables) Option {
	return func(r *Reconstructor) { r.tables = t }
}

// Reconstructor turns scenarios into feature batches using a stored schema.
// It holds no mutable state.
type Reconstructor struct {
	schema *schema.Schema
	tables Tables
}

// NewReconstructor creates a reconstructor bound to s.
func NewReconstructor(s *schema.Schema, opts ...Option) *Reconstructor {
	r := &Reconstructor{schema: s, tables: DefaultTables()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tables returns the lookup tables in use.
func (r *Reconstructor) Tables() Tables { return r.tables }

type situation struct {
	offense   personnel.Offense
	defense   personnel.Defense
	spot      BallSpot
	formation Formation
	qb        QBAlignment
}

func (r *Reconstructor) situation(sc Scenario) (situation, error) {
	var (
		st  situation
		err error
	)
	if sc.Down < 1 || sc.Down > 4 {
		return st, fmt.Errorf("%w: down %d not in 1..4", ErrInvalidScenario, sc.Down)
	}
	if st.offense, err = personnel.OffenseFromCode(sc.OffensePersonnel); err != nil {
		return st, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if st.defense, err = personnel.DefenseFromFormation(sc.DefenseFormation); err != nil {
		return st, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if st.spot, err = ParseBallSpot(sc.BallSpot); err != nil {
		return st, err
	}
	if st.formation, err = ParseFormation(sc.OffenseFormation); err != nil {
		return st, err
	}
	qb, ok := r.tables.QB(st.formation)
	if !ok {
		return st, fmt.Errorf("%w: no quarterback alignment for %s", ErrInvalidScenario, st.formation)
	}
	st.qb = qb
	switch {
	case sc.YardsToGo <= 0 || sc.YardsToGo > 99:
		return st, fmt.Errorf("%w: yards to go %v not in (0, 99]", ErrInvalidScenario, sc.YardsToGo)
	case sc.Yardline < 0 || sc.Yardline > 120:
		return st, fmt.Errorf("%w: yardline %v not in 0..120", ErrInvalidScenario, sc.Yardline)
	case sc.DefendersInBox < 0 || sc.DefendersInBox > MaxDefenders:
		return st, fmt.Errorf("%w: defenders in box %v not in 0..11", ErrInvalidScenario, sc.DefendersInBox)
	case len(sc.Defenders) == 0 || len(sc.Defenders) > MaxDefenders:
		return st, fmt.Errorf("%w: %d defenders, want 1..11", ErrInvalidScenario, len(sc.Defenders))
	}
	return st, nil
}

func (r *Reconstructor) lateral(i int, d Defender) (float64, error) {
	switch {
	case d.RelY != nil && d.Technique != "":
		return 0, fmt.Errorf("%w: defender %d sets both rel_y and technique", ErrInvalidScenario, i+1)
	case d.RelY != nil:
		if math.IsNaN(*d.RelY) || math.Abs(*d.RelY) > MaxLateral {
			return 0, fmt.Errorf("%w: defender %d rel_y %v not in ±%v", ErrInvalidScenario, i+1, *d.RelY, MaxLateral)
		}
		return *d.RelY, nil
	case d.Technique != "":
		side, err := ParseSide(d.Side)
		if err != nil {
			return 0, fmt.Errorf("defender %d: %w", i+1, err)
		}
		return r.tables.LateralOffset(d.Technique, side), nil
	}
	return 0, fmt.Errorf("%w: defender %d needs rel_y or technique", ErrInvalidScenario, i+1)
}

// Build validates sc and encodes one row per defender. Any value outside the
// closed enums or the stored schema rejects the whole scenario.
func (r *Reconstructor) Build(sc Scenario) (*Batch, error) {
	st, err := r.situation(sc)
	if err != nil {
		return nil, err
	}

	n := len(sc.Defenders)
	b := &Batch{
		Features:  mat.NewDense(n, r.schema.Width(), nil),
		Rows:      make([]model.DefenderFeatureRow, n),
		Defenders: make([]Derived, n),
		Formation: st.formation,
		QB:        st.qb,
	}
	defaults := r.schema.Defaults
	qbDist := math.Hypot(st.qb.Depth, st.qb.Offset)

	for i, d := range sc.Defenders {
		pos, err := roles.ParsePosition(d.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: defender %d: %w", ErrInvalidScenario, i+1, err)
		}
		if math.IsNaN(d.RelX) || d.RelX < 0 || d.RelX > MaxDepth {
			return nil, fmt.Errorf("%w: defender %d rel_x %v not in 0..%v", ErrInvalidScenario, i+1, d.RelX, MaxDepth)
		}
		relY, err := r.lateral(i, d)
		if err != nil {
			return nil, err
		}

		kin := defaults.KinematicsFor(string(pos))
		if d.Speed != nil {
			kin.S = *d.Speed
		}
		if d.Acceleration != nil {
			kin.A = *d.Acceleration
		}

		row := model.DefenderFeatureRow{
			Down:                   sc.Down,
			YardsToGo:              sc.YardsToGo,
			AbsoluteYardlineNumber: sc.Yardline,
			DefendersInBox:         sc.DefendersInBox,
			OffenseFormation:       string(st.formation),
			NumRB:                  st.offense.RB,
			NumTE:                  st.offense.TE,
			NumWR:                  st.offense.WR,
			NumDL:                  st.defense.DL,
			NumLB:                  st.defense.LB,
			NumDB:                  st.defense.DB,
			Position:               string(pos),
			RelX:                   d.RelX,
			RelY:                   relY,
			S:                      kin.S,
			A:                      kin.A,
			BallX:                  sc.Yardline,
			BallY:                  st.spot.Y(),
			OlineMin:               defaults.OlineMin,
			OlineMax:               defaults.OlineMax,
			OlineWidth:             defaults.OlineWidth,
			QBDistFromBall:         qbDist,
			QBRelX:                 -st.qb.Depth,
			QBRelY:                 st.qb.Offset,
			DistFromQB:             math.Hypot(d.RelX+st.qb.Depth, relY-st.qb.Offset),
		}
		if err := r.schema.Validate(row); err != nil {
			if errors.Is(err, schema.ErrUnknownCategory) {
				return nil, fmt.Errorf("%w: defender %d: %w", ErrInvalidScenario, i+1, err)
			}
			return nil, err
		}
		r.schema.EncodeInto(b.Features.RawRowView(i), row)

		label := d.Label
		if label == "" {
			label = "Player " + strconv.Itoa(i+1)
		}
		b.Rows[i] = row
		b.Defenders[i] = Derived{
			Label:      label,
			Position:   pos,
			RelX:       d.RelX,
			RelY:       relY,
			DistFromQB: row.DistFromQB,
		}
	}
	return b, nil
}
