package schema

import (
	"math"

	"github.com/okian/sackline/internal/domain/model"
)

// Fallback serving geometry for offensive-line span when training provided none.
const (
	FallbackOlineMin   = -2.61
	FallbackOlineMax   = 3.0
	FallbackOlineWidth = 5.61
)

// Kinematics is a mean speed and acceleration at the snap.
type Kinematics struct {
	S float64 `json:"s"`
	A float64 `json:"a"`
}

// Defaults are the per-role constants used to fill features a hand-built
// scenario cannot supply. They are learned at training time and never set by callers.
type Defaults struct {
	OlineMin   float64               `json:"oline_min"`
	OlineMax   float64               `json:"oline_max"`
	OlineWidth float64               `json:"oline_width"`
	Kinematics map[string]Kinematics `json:"kinematics"`
}

// FallbackDefaults returns the defaults used when there are no training rows.
func FallbackDefaults() Defaults {
	return Defaults{
		OlineMin:   FallbackOlineMin,
		OlineMax:   FallbackOlineMax,
		OlineWidth: FallbackOlineWidth,
		Kinematics: map[string]Kinematics{},
	}
}

// KinematicsFor returns the mean kinematics of a position, zero when unknown.
func (d Defaults) KinematicsFor(position string) Kinematics {
	return d.Kinematics[position]
}

// DeriveDefaults averages offensive-line span once per play and speed and
// acceleration per position. Missing kinematics are skipped.
func DeriveDefaults(rows []model.DefenderFeatureRow) Defaults {
	if len(rows) == 0 {
		return FallbackDefaults()
	}

	var (
		plays                 = map[model.PlayKey]struct{}{}
		minSum, maxSum, wdSum float64
	)
	type acc struct {
		s, a   float64
		ns, na int
	}
	byPos := map[string]*acc{}

	for _, r := range rows {
		k := model.PlayKey{GameID: r.GameID, PlayID: r.PlayID}
		if _, seen := plays[k]; !seen {
			plays[k] = struct{}{}
			minSum += r.OlineMin
			maxSum += r.OlineMax
			wdSum += r.OlineWidth
		}
		p := byPos[r.Position]
		if p == nil {
			p = &acc{}
			byPos[r.Position] = p
		}
		if !math.IsNaN(r.S) {
			p.s += r.S
			p.ns++
		}
		if !math.IsNaN(r.A) {
			p.a += r.A
			p.na++
		}
	}

	n := float64(len(plays))
	d := Defaults{
		OlineMin:   minSum / n,
		OlineMax:   maxSum / n,
		OlineWidth: wdSum / n,
		Kinematics: make(map[string]Kinematics, len(byPos)),
	}
	for pos, p := range byPos {
		var k Kinematics
		if p.ns > 0 {
			k.S = p.s / float64(p.ns)
		}
		if p.na > 0 {
			k.A = p.a / float64(p.na)
		}
		d.Kinematics[pos] = k
	}
	return d
}
