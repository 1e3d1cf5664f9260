// Package pipeline joins snap tracking, rosters, play context and scouting
// outcomes into one feature row per (game, play, defender).
//
// Every join is an inner join: anything missing a required input is dropped,
// counted in a DropReport and logged. Nothing is imputed.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/okian/sackline/internal/domain/field"
	"github.com/okian/sackline/internal/domain/geometry"
	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/personnel"
	"github.com/okian/sackline/internal/domain/roles"
	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
)

// Result is the assembled dataset and its drop accounting.
type Result struct {
	Rows  []model.DefenderFeatureRow
	Drops DropReport
	Plays int // plays that produced at least one row
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// Assembler builds DefenderFeatureRows. It keeps no state between runs.
type Assembler struct {
	log logger.Logger
}

// NewAssembler creates an Assembler. The global logger must be initialised
// unless WithLogger is given.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Named("pipeline")
	}
	return a
}

type outcomeKey struct {
	play model.PlayKey
	nfl  int64
}

// Assemble runs the joins. Output rows are sorted by game, play and
// defender id, so unchanged input always yields the same dataset.
func (a *Assembler) Assemble(ctx context.Context, ds *model.Dataset) (Result, error) {
	res := Result{Drops: DropReport{}}

	byPlay := map[model.PlayKey][]model.TrackedFrame{}
	for _, f := range ds.Snaps {
		k := f.Key()
		byPlay[k] = append(byPlay[k], f)
	}
	keys := make([]model.PlayKey, 0, len(byPlay))
	for k := range byPlay {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, comparePlayKeys)

	roster := make(map[int64]string, len(ds.Players))
	for _, p := range ds.Players {
		roster[p.NflID] = p.OfficialPosition
	}
	plays := make(map[model.PlayKey]model.Play, len(ds.Plays))
	for _, p := range ds.Plays {
		plays[p.Key()] = p
	}
	outcomes := make(map[outcomeKey]*float64, len(ds.Outcomes))
	for _, o := range ds.Outcomes {
		outcomes[outcomeKey{model.PlayKey{GameID: o.GameID, PlayID: o.PlayID}, o.NflID}] = o.Sack
	}

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rows := a.play(k, byPlay[k], roster, plays, outcomes, res.Drops)
		if len(rows) > 0 {
			res.Plays++
			res.Rows = append(res.Rows, rows...)
		}
	}

	slices.SortFunc(res.Rows, func(x, y model.DefenderFeatureRow) int {
		if c := comparePlayKeys(model.PlayKey{GameID: x.GameID, PlayID: x.PlayID}, model.PlayKey{GameID: y.GameID, PlayID: y.PlayID}); c != 0 {
			return c
		}
		return cmp.Compare(x.NflID, y.NflID)
	})

	a.report(ctx, res)
	return res, nil
}

func comparePlayKeys(x, y model.PlayKey) int {
	if c := cmp.Compare(x.GameID, y.GameID); c != 0 {
		return c
	}
	return cmp.Compare(x.PlayID, y.PlayID)
}

// play assembles one play's rows, recording drops.
func (a *Assembler) play(
	k model.PlayKey,
	frames []model.TrackedFrame,
	roster map[int64]string,
	plays map[model.PlayKey]model.Play,
	outcomes map[outcomeKey]*float64,
	drops DropReport,
) []model.DefenderFeatureRow {
	ball, err := roles.Ball(frames)
	switch {
	case errors.Is(err, roles.ErrMultipleBalls):
		drops.Add(DropMultipleBalls, 1)
		return nil
	case err != nil:
		// No entity of the play can be placed without a ball reference.
		drops.Add(DropNoBall, len(frames))
		return nil
	}
	dir, err := field.ParseDirection(ball.PlayDirection)
	if err != nil {
		drops.Add(DropInvalidDirection, 1)
		return nil
	}

	entities := make([]model.SnapState, 0, len(frames)-1)
	for _, f := range frames {
		if f.IsBall() {
			continue
		}
		pos, ok := roster[f.NflID]
		if !ok {
			drops.Add(DropNoRoster, 1)
			continue
		}
		relX, relY := field.Normalize(dir, f.X, f.Y, ball.X, ball.Y)
		entities = append(entities, model.SnapState{
			GameID:   f.GameID,
			PlayID:   f.PlayID,
			NflID:    f.NflID,
			Team:     f.Team,
			Position: pos,
			X:        f.X,
			Y:        f.Y,
			RelX:     relX,
			RelY:     relY,
			S:        f.S,
			A:        f.A,
		})
	}

	line, ok := geometry.OffensiveLineOf(entities)
	if !ok {
		drops.Add(DropNoOffensiveLine, 1)
		return nil
	}
	qbState, ok := roles.Quarterback(entities, ball.Y)
	if !ok {
		drops.Add(DropNoQuarterback, 1)
		return nil
	}
	qb := geometry.QuarterbackOf(qbState, ball.X, ball.Y)

	p, ok := plays[k]
	switch {
	case !ok:
		drops.Add(DropNoPlayContext, 1)
		return nil
	case p.Down == 0:
		drops.Add(DropNotADown, 1)
		return nil
	case p.Down < 1 || p.Down > 4 || p.YardsToGo == nil || p.AbsoluteYardlineNumber == nil ||
		p.DefendersInBox == nil || p.OffenseFormation == "":
		drops.Add(DropIncompletePlay, 1)
		return nil
	}
	off := personnel.ParseOffense(p.PersonnelO)
	def := personnel.ParseDefense(p.PersonnelD)

	var rows []model.DefenderFeatureRow
	for _, d := range roles.Defenders(entities, qbState) {
		sack, ok := outcomes[outcomeKey{k, d.NflID}]
		if !ok {
			drops.Add(DropNoOutcome, 1)
			continue
		}
		pos := roles.Collapse(d.Position)
		if pos == roles.Other {
			drops.Add(DropOtherPosition, 1)
			continue
		}
		label := 0
		if sack != nil && *sack != 0 {
			label = 1
		}
		rows = append(rows, model.DefenderFeatureRow{
			GameID:                 k.GameID,
			PlayID:                 k.PlayID,
			NflID:                  d.NflID,
			Down:                   p.Down,
			YardsToGo:              *p.YardsToGo,
			AbsoluteYardlineNumber: *p.AbsoluteYardlineNumber,
			DefendersInBox:         *p.DefendersInBox,
			OffenseFormation:       p.OffenseFormation,
			NumRB:                  off.RB,
			NumTE:                  off.TE,
			NumWR:                  off.WR,
			NumDL:                  def.DL,
			NumLB:                  def.LB,
			NumDB:                  def.DB,
			Position:               string(pos),
			RelX:                   d.RelX,
			RelY:                   d.RelY,
			S:                      d.S,
			A:                      d.A,
			BallX:                  ball.X,
			BallY:                  ball.Y,
			OlineMin:               line.Min,
			OlineMax:               line.Max,
			OlineWidth:             line.Width,
			QBDistFromBall:         qb.DistFromBall,
			QBRelX:                 qb.RelX,
			QBRelY:                 qb.RelY,
			DistFromQB:             geometry.DistanceFromQB(d, qb),
			Sack:                   label,
		})
	}
	return rows
}

func (a *Assembler) report(ctx context.Context, res Result) {
	metrics.RecordPipelineRows(len(res.Rows))
	fields := []logger.Field{
		logger.Int("rows", len(res.Rows)),
		logger.Int("plays", res.Plays),
		logger.Int("dropped", res.Drops.Total()),
	}
	for _, r := range res.Drops.Reasons() {
		n := res.Drops[r]
		metrics.RecordPipelineDrops(string(r), n)
		fields = append(fields, logger.Int("drop_"+string(r), n))
	}
	a.log.Info(ctx, "dataset assembled", fields...)
}
