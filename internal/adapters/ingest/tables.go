package ingest

import (
	"errors"
	"io"
	"math"

	"github.com/okian/sackline/internal/domain/model"
)

// ReadSnapFrames streams a tracking table and keeps only ball_snap frames.
func ReadSnapFrames(name string, r io.Reader) ([]model.TrackedFrame, error) {
	t, err := newTable(name, r, "gameId", "playId", "nflId", "team", "playDirection", "x", "y", "s", "a", "event")
	if err != nil {
		return nil, err
	}
	var out []model.TrackedFrame
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if t.get(rec, "event") != model.EventBallSnap {
			continue
		}
		f, err := t.frame(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
}

func (t *table) frame(rec []string) (model.TrackedFrame, error) {
	var (
		f   model.TrackedFrame
		err error
	)
	if f.GameID, err = t.id(rec, "gameId"); err != nil {
		return f, err
	}
	if f.PlayID, err = t.id(rec, "playId"); err != nil {
		return f, err
	}
	if f.NflID, err = t.optID(rec, "nflId"); err != nil {
		return f, err
	}
	if f.X, err = t.float(rec, "x"); err != nil {
		return f, err
	}
	if f.Y, err = t.float(rec, "y"); err != nil {
		return f, err
	}
	f.Event = model.EventBallSnap
	f.Team = t.str(rec, "team")
	f.PlayDirection = t.str(rec, "playDirection")
	f.S = orNaN(t.optFloat(rec, "s"))
	f.A = orNaN(t.optFloat(rec, "a"))
	f.Dir = orNaN(t.optFloat(rec, "dir"))
	f.O = orNaN(t.optFloat(rec, "o"))
	if fr := t.optFloat(rec, "frameId"); fr != nil {
		f.FrameID = int(*fr)
	}
	return f, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ReadPlayers reads the roster table.
func ReadPlayers(name string, r io.Reader) ([]model.Player, error) {
	t, err := newTable(name, r, "nflId", "officialPosition")
	if err != nil {
		return nil, err
	}
	var out []model.Player
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		id, err := t.id(rec, "nflId")
		if err != nil {
			return nil, err
		}
		out = append(out, model.Player{
			NflID:            id,
			OfficialPosition: t.str(rec, "officialPosition"),
			DisplayName:      t.str(rec, "displayName"),
		})
	}
}

// ReadPlays reads the play metadata table. Missing situational values stay nil.
func ReadPlays(name string, r io.Reader) ([]model.Play, error) {
	t, err := newTable(name, r, "gameId", "playId", "down", "yardsToGo", "absoluteYardlineNumber",
		"offenseFormation", "personnelO", "defendersInBox", "personnelD")
	if err != nil {
		return nil, err
	}
	var out []model.Play
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var p model.Play
		if p.GameID, err = t.id(rec, "gameId"); err != nil {
			return nil, err
		}
		if p.PlayID, err = t.id(rec, "playId"); err != nil {
			return nil, err
		}
		if d := t.optFloat(rec, "down"); d != nil {
			p.Down = int(*d)
		}
		p.YardsToGo = t.optFloat(rec, "yardsToGo")
		p.AbsoluteYardlineNumber = t.optFloat(rec, "absoluteYardlineNumber")
		p.DefendersInBox = t.optFloat(rec, "defendersInBox")
		p.OffenseFormation = t.str(rec, "offenseFormation")
		p.PersonnelO = t.str(rec, "personnelO")
		p.PersonnelD = t.str(rec, "personnelD")
		out = append(out, p)
	}
}

// ReadOutcomes reads the per-player scouting table's sack flag.
func ReadOutcomes(name string, r io.Reader) ([]model.Outcome, error) {
	t, err := newTable(name, r, "gameId", "playId", "nflId", "pff_sack")
	if err != nil {
		return nil, err
	}
	var out []model.Outcome
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var o model.Outcome
		if o.GameID, err = t.id(rec, "gameId"); err != nil {
			return nil, err
		}
		if o.PlayID, err = t.id(rec, "playId"); err != nil {
			return nil, err
		}
		if o.NflID, err = t.id(rec, "nflId"); err != nil {
			return nil, err
		}
		o.Sack = t.optFloat(rec, "pff_sack")
		out = append(out, o)
	}
}
